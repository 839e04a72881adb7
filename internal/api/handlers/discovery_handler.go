package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/zatekoja/localdiscovery/internal/api/middleware"
	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/predicates"
	"github.com/zatekoja/localdiscovery/internal/domain/providers"
	"github.com/zatekoja/localdiscovery/internal/query/builders"
	queryservices "github.com/zatekoja/localdiscovery/internal/query/services"
	apperrors "github.com/zatekoja/localdiscovery/pkg/errors"
	"github.com/zatekoja/localdiscovery/pkg/geo"
)

// SearchService is the merged cross-entity search
type SearchService interface {
	Search(ctx context.Context, params queryservices.SearchParams) (*entities.Page[entities.NormalizedItem], error)
}

// ListingService is the single-entity listing surface
type ListingService interface {
	ListBusinesses(ctx context.Context, params queryservices.SearchParams) (*entities.Page[entities.NormalizedItem], error)
	ListSaleAds(ctx context.Context, params queryservices.SearchParams) (*entities.Page[entities.NormalizedItem], error)
	ListPromoAds(ctx context.Context, params queryservices.SearchParams) (*entities.Page[entities.NormalizedItem], error)
}

// DiscoveryHandler handles the search and listing endpoints
type DiscoveryHandler struct {
	search   SearchService
	listings ListingService
	geocoder providers.GeolocationProvider
}

// NewDiscoveryHandler creates a new discovery handler. geocoder may be nil,
// in which case the near parameter is rejected.
func NewDiscoveryHandler(search SearchService, listings ListingService, geocoder providers.GeolocationProvider) *DiscoveryHandler {
	return &DiscoveryHandler{
		search:   search,
		listings: listings,
		geocoder: geocoder,
	}
}

// Search handles GET /api/search
func (h *DiscoveryHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r.URL.Query())
	params := h.commonParams(q, r)
	params.Business = businessFilter(q)
	params.Sale = saleFilter(q, "saleCategoryId")

	h.serve(w, r, q, &params, h.search.Search)
}

// ListBusinesses handles GET /api/businesses
func (h *DiscoveryHandler) ListBusinesses(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r.URL.Query())
	params := h.commonParams(q, r)
	params.Business = businessFilter(q)
	params.Business.IncludeInactive = q.bool("includeInactive")

	h.serve(w, r, q, &params, h.listings.ListBusinesses)
}

// ListSaleAds handles GET /api/sale-ads
func (h *DiscoveryHandler) ListSaleAds(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r.URL.Query())
	params := h.commonParams(q, r)
	params.Sale = saleFilter(q, "categoryId")

	h.serve(w, r, q, &params, h.listings.ListSaleAds)
}

// ListPromoAds handles GET /api/promo-ads
func (h *DiscoveryHandler) ListPromoAds(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r.URL.Query())
	params := h.commonParams(q, r)

	status, ok := predicates.ParsePromoStatus(q.str("status"))
	if !ok {
		q.fail("status", "one of all, active, upcoming, expired")
	}
	params.Promo = builders.PromoFilter{Status: status, City: q.str("city")}

	h.serve(w, r, q, &params, h.listings.ListPromoAds)
}

type pageFunc func(context.Context, queryservices.SearchParams) (*entities.Page[entities.NormalizedItem], error)

func (h *DiscoveryHandler) serve(w http.ResponseWriter, r *http.Request, q *queryReader, params *queryservices.SearchParams, run pageFunc) {
	if err := q.Err(); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if err := h.resolveOrigin(r.Context(), q, params); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	page, err := run(r.Context(), *params)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, page)
}

func (h *DiscoveryHandler) commonParams(q *queryReader, r *http.Request) queryservices.SearchParams {
	sort, ok := queryservices.ParseSortMode(q.str("sort"))
	if !ok {
		q.fail("sort", "one of newest, rating, name, distance, popular_nearby, price_asc, price_desc")
	}
	return queryservices.SearchParams{
		Query:         q.str("q"),
		Page:          q.int("page"),
		Limit:         q.int("limit"),
		Sort:          sort,
		MaxDistanceKm: q.float("maxDistance"),
		OpenNow:       q.bool("openNow"),
		Viewer:        middleware.UserFromContext(r.Context()),
	}
}

// resolveOrigin reads lat/lng, or geocodes near when both are absent
func (h *DiscoveryHandler) resolveOrigin(ctx context.Context, q *queryReader, params *queryservices.SearchParams) error {
	lat, lng := q.float("lat"), q.float("lng")
	if err := q.Err(); err != nil {
		return err
	}
	switch {
	case lat != nil && lng != nil:
		origin := geo.NewPoint(*lat, *lng)
		params.Origin = &origin
		return nil
	case lat != nil || lng != nil:
		return apperrors.NewValidationError("lat and lng must be provided together")
	}

	near := q.str("near")
	if near == "" {
		return nil
	}
	if h.geocoder == nil {
		return apperrors.NewValidationError("near is not supported")
	}

	addr, err := h.geocoder.Geocode(ctx, near)
	if errors.Is(err, providers.ErrAddressNotFound) {
		return apperrors.NewValidationError("could not resolve near address")
	}
	if err != nil {
		return apperrors.NewExternalError("geocoding failed", err)
	}
	origin := geo.NewPoint(addr.Coordinates.Latitude, addr.Coordinates.Longitude)
	params.Origin = &origin
	return nil
}

func businessFilter(q *queryReader) builders.BusinessFilter {
	return builders.BusinessFilter{
		CategoryID:   q.str("categoryId"),
		CategoryName: q.str("categoryName"),
		Services:     q.list("services"),
		MinRating:    q.float("rating"),
	}
}

func saleFilter(q *queryReader, categoryParam string) builders.SaleFilter {
	return builders.SaleFilter{
		CategoryIDs:    q.list(categoryParam),
		SubcategoryIDs: q.list("subcategoryId"),
		PriceMin:       q.float("priceMin"),
		PriceMax:       q.float("priceMax"),
		IncludeNoPrice: q.bool("includeNoPrice"),
	}
}
