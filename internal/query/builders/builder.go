// Package builders translates raw request filters into typed store predicates,
// resolving category and service names along the way.
package builders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/predicates"
	"github.com/zatekoja/localdiscovery/internal/domain/repositories"
	apperrors "github.com/zatekoja/localdiscovery/pkg/errors"
)

// MaxQueryTokens caps how many OR'ed terms a text query expands to
const MaxQueryTokens = 8

// BusinessFilter holds the raw business parameters of a request
type BusinessFilter struct {
	Query           string
	CategoryID      string
	CategoryName    string
	Services        []string
	MinRating       *float64
	IncludeInactive bool
}

// HasBusinessOnlyFilter reports whether any filter only businesses can satisfy is set
func (f BusinessFilter) HasBusinessOnlyFilter() bool {
	return f.CategoryID != "" || f.CategoryName != "" || len(f.Services) > 0 || f.MinRating != nil
}

// SaleFilter holds the raw sale ad parameters of a request
type SaleFilter struct {
	Query          string
	CategoryIDs    []string
	SubcategoryIDs []string
	PriceMin       *float64
	PriceMax       *float64
	IncludeNoPrice bool
	// PriceSorted is set when results are ranked by price
	PriceSorted bool
}

// HasPriceFilter reports whether either price bound is set
func (f SaleFilter) HasPriceFilter() bool {
	return f.PriceMin != nil || f.PriceMax != nil
}

// HasSaleOnlyFilter reports whether a sale category or subcategory is set
func (f SaleFilter) HasSaleOnlyFilter() bool {
	return len(f.CategoryIDs) > 0 || len(f.SubcategoryIDs) > 0
}

// PromoFilter holds the raw promo ad parameters of a request
type PromoFilter struct {
	Query  string
	Status predicates.PromoStatus
	City   string
	Now    time.Time
}

// Builder builds predicates from filters
type Builder struct {
	refs repositories.ReferenceRepository
}

// NewBuilder creates a new predicate builder
func NewBuilder(refs repositories.ReferenceRepository) *Builder {
	return &Builder{refs: refs}
}

// Business builds the business predicate. Services take precedence over the category.
func (b *Builder) Business(ctx context.Context, f BusinessFilter) (predicates.Business, error) {
	pred := predicates.Business{
		IncludeInactive: f.IncludeInactive,
		Text:            Tokenize(f.Query),
		MinRating:       f.MinRating,
	}

	if services := compact(f.Services); len(services) > 0 {
		ids, err := b.resolve(ctx, entities.ReferenceService, services)
		if err != nil {
			return predicates.Business{}, err
		}
		if len(ids) == 0 {
			return predicates.NoBusinesses(), nil
		}
		pred.ServiceIDs = ids
		return pred, nil
	}

	category := strings.TrimSpace(f.CategoryID)
	if category == "" {
		category = strings.TrimSpace(f.CategoryName)
	}
	if category != "" {
		ids, err := b.resolve(ctx, entities.ReferenceBusinessCategory, []string{category})
		if err != nil {
			return predicates.Business{}, err
		}
		if len(ids) == 0 {
			return predicates.NoBusinesses(), nil
		}
		pred.CategoryIDs = ids
	}

	return pred, nil
}

// SaleAd builds the sale ad predicate
func (b *Builder) SaleAd(ctx context.Context, f SaleFilter) (predicates.SaleAd, error) {
	pred := predicates.SaleAd{
		Text:         Tokenize(f.Query),
		PriceMin:     f.PriceMin,
		PriceMax:     f.PriceMax,
		RequirePrice: f.HasPriceFilter() || (f.PriceSorted && !f.IncludeNoPrice),
	}

	if cats := compact(f.CategoryIDs); len(cats) > 0 {
		ids, err := b.resolve(ctx, entities.ReferenceSaleCategory, cats)
		if err != nil {
			return predicates.SaleAd{}, err
		}
		if len(ids) == 0 {
			return predicates.NoSaleAds(), nil
		}
		pred.CategoryIDs = ids
	}

	if subs := compact(f.SubcategoryIDs); len(subs) > 0 {
		ids, err := b.resolve(ctx, entities.ReferenceSaleSubcategory, subs)
		if err != nil {
			return predicates.SaleAd{}, err
		}
		if len(ids) == 0 {
			return predicates.NoSaleAds(), nil
		}
		pred.SubcategoryIDs = ids
	}

	return pred, nil
}

// PromoAd builds the promo ad predicate
func (b *Builder) PromoAd(_ context.Context, f PromoFilter) (predicates.PromoAd, error) {
	status := f.Status
	if status == "" {
		status = predicates.PromoStatusAll
	}
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}
	return predicates.PromoAd{
		Text:   Tokenize(f.Query),
		Status: status,
		City:   strings.TrimSpace(f.City),
		Now:    now,
	}, nil
}

// resolve maps each value to reference ids. UUIDs pass through, anything else
// is looked up by name. The result is the de-duplicated union.
func (b *Builder) resolve(ctx context.Context, kind entities.ReferenceKind, values []string) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	for _, v := range values {
		if parsed, err := uuid.Parse(v); err == nil {
			add(parsed.String())
			continue
		}
		matches, err := b.refs.FindIDsByName(ctx, kind, v)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to resolve "+string(kind), err)
		}
		for _, id := range matches {
			add(id)
		}
	}
	return ids, nil
}

// Tokenize lowercases q and splits it on whitespace, dropping duplicates
func Tokenize(q string) predicates.TextMatch {
	raw := strings.TrimSpace(q)
	var tokens []string
	seen := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(raw)) {
		if _, ok := seen[field]; ok {
			continue
		}
		seen[field] = struct{}{}
		tokens = append(tokens, field)
		if len(tokens) == MaxQueryTokens {
			break
		}
	}
	return predicates.TextMatch{Raw: raw, Tokens: tokens}
}

// compact splits comma separated values and drops blanks
func compact(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
