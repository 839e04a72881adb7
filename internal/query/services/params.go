package services

import (
	"fmt"
	"math"
	"strings"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/repositories"
	"github.com/zatekoja/localdiscovery/internal/query/builders"
	apperrors "github.com/zatekoja/localdiscovery/pkg/errors"
	"github.com/zatekoja/localdiscovery/pkg/geo"
)

// SortMode is the requested result ordering
type SortMode string

const (
	SortNewest        SortMode = "newest"
	SortRating        SortMode = "rating"
	SortName          SortMode = "name"
	SortDistance      SortMode = "distance"
	SortPopularNearby SortMode = "popular_nearby"
	SortPriceAsc      SortMode = "price_asc"
	SortPriceDesc     SortMode = "price_desc"
)

// ParseSortMode returns the sort mode for s. An empty string is accepted and
// left for the defaults to fill.
func ParseSortMode(s string) (SortMode, bool) {
	mode := SortMode(strings.ToLower(strings.TrimSpace(s)))
	switch mode {
	case "", SortNewest, SortRating, SortName, SortDistance, SortPopularNearby, SortPriceAsc, SortPriceDesc:
		return mode, true
	}
	return "", false
}

// IsDistanceBased reports whether the mode ranks by proximity
func (m SortMode) IsDistanceBased() bool {
	return m == SortDistance || m == SortPopularNearby
}

// IsPriceBased reports whether the mode ranks by price
func (m SortMode) IsPriceBased() bool {
	return m == SortPriceAsc || m == SortPriceDesc
}

// storeSort maps a request sort to the store ordering used without an origin
func (m SortMode) storeSort() repositories.SortField {
	switch m {
	case SortRating:
		return repositories.SortRating
	case SortName:
		return repositories.SortName
	case SortPriceAsc:
		return repositories.SortPriceAsc
	case SortPriceDesc:
		return repositories.SortPriceDesc
	}
	return repositories.SortNewest
}

// SearchParams is the full parameter set shared by the merged search and the
// single-entity listings. Each surface reads the filters that apply to it.
type SearchParams struct {
	Query         string
	Page          int
	Limit         int
	Sort          SortMode
	Origin        *geo.Point
	MaxDistanceKm *float64
	OpenNow       bool

	Business builders.BusinessFilter
	Sale     builders.SaleFilter
	Promo    builders.PromoFilter

	// Viewer is the optional identity behind the request
	Viewer *entities.User
}

func (p *SearchParams) applyDefaults(defaultLimit int) {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.Limit == 0 {
		p.Limit = defaultLimit
	}
	if p.Sort == "" {
		p.Sort = SortNewest
	}
	// A proximity sort without an origin has nothing to measure from
	if p.Sort.IsDistanceBased() && p.Origin == nil {
		p.Sort = SortNewest
	}
	p.Business.Query = p.Query
	p.Sale.Query = p.Query
	p.Promo.Query = p.Query
	p.Sale.PriceSorted = p.Sort.IsPriceBased()
}

// validate rejects malformed parameters before any store access
func (p *SearchParams) validate(maxLimit int, allowPriceSort bool) error {
	if p.Page < 1 {
		return apperrors.NewValidationError("page must be at least 1")
	}
	if p.Limit < 1 || p.Limit > maxLimit {
		return apperrors.NewValidationError(fmt.Sprintf("limit must be between 1 and %d", maxLimit))
	}
	if p.Sort.IsPriceBased() && !allowPriceSort {
		return apperrors.NewValidationError("sort " + string(p.Sort) + " is only supported for sale ads")
	}
	if p.Origin != nil && !p.Origin.Valid() {
		return apperrors.NewValidationError("lat must be within [-90,90] and lng within [-180,180]")
	}
	if p.MaxDistanceKm != nil {
		if p.Origin == nil {
			return apperrors.NewValidationError("maxDistance requires lat and lng")
		}
		if !(*p.MaxDistanceKm > 0) || math.IsInf(*p.MaxDistanceKm, 0) {
			return apperrors.NewValidationError("maxDistance must be a positive number of kilometers")
		}
	}
	if r := p.Business.MinRating; r != nil && !(*r >= 0 && *r <= 5) {
		return apperrors.NewValidationError("rating must be between 0 and 5")
	}
	lo, hi := p.Sale.PriceMin, p.Sale.PriceMax
	if (lo != nil && !(*lo >= 0)) || (hi != nil && !(*hi >= 0)) {
		return apperrors.NewValidationError("price bounds must be non-negative")
	}
	if lo != nil && hi != nil && *lo > *hi {
		return apperrors.NewValidationError("priceMin must not exceed priceMax")
	}
	return nil
}
