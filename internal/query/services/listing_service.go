package services

import (
	"context"
	"math"
	"time"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/predicates"
	"github.com/zatekoja/localdiscovery/internal/domain/repositories"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/observability"
	"github.com/zatekoja/localdiscovery/internal/query/builders"
	"github.com/zatekoja/localdiscovery/pkg/config"
	apperrors "github.com/zatekoja/localdiscovery/pkg/errors"
)

// ListingService serves the single-entity list endpoints
type ListingService struct {
	businesses repositories.BusinessRepository
	sales      repositories.SaleAdRepository
	promos     repositories.PromoAdRepository
	builder    *builders.Builder
	cfg        config.SearchConfig
	loc        *time.Location
	now        func() time.Time
}

// NewListingService creates a new listing service
func NewListingService(
	businesses repositories.BusinessRepository,
	sales repositories.SaleAdRepository,
	promos repositories.PromoAdRepository,
	builder *builders.Builder,
	cfg config.SearchConfig,
	loc *time.Location,
) *ListingService {
	if loc == nil {
		loc = time.UTC
	}
	return &ListingService{
		businesses: businesses,
		sales:      sales,
		promos:     promos,
		builder:    builder,
		cfg:        cfg,
		loc:        loc,
		now:        time.Now,
	}
}

// listing bundles the per-type hooks the generic paths need
type listing[T any, P any] struct {
	repo       repositories.ListingRepository[T, P]
	pred       P
	matchNone  bool
	candidates func([]repositories.Nearby[T]) []GeoCandidate[T]
	normalize  func(T) entities.NormalizedItem
	// keep is an optional post-filter the store cannot evaluate
	keep func(T) bool
}

// ListBusinesses lists businesses. includeInactive is reserved for admins.
func (s *ListingService) ListBusinesses(ctx context.Context, params SearchParams) (*entities.Page[entities.NormalizedItem], error) {
	p, err := s.prepare(params, false)
	if err != nil {
		return nil, err
	}
	if p.Business.IncludeInactive && !p.Viewer.IsAdmin() {
		return nil, apperrors.NewForbiddenError("includeInactive requires an admin session")
	}

	pred, err := s.builder.Business(ctx, p.Business)
	if err != nil {
		return nil, err
	}

	l := listing[*entities.Business, predicates.Business]{
		repo:       s.businesses,
		pred:       pred,
		matchNone:  pred.MatchNone,
		candidates: businessCandidates,
		normalize:  func(b *entities.Business) entities.NormalizedItem { return entities.BusinessItem{Business: b}.Normalize() },
	}
	if p.OpenNow {
		localNow := s.now().In(s.loc)
		l.keep = func(b *entities.Business) bool { return b.OpeningHours.IsOpen(localNow) }
	}
	return runListing(ctx, s, l, &p)
}

// ListSaleAds lists sale ads. It is the only surface that accepts price sorts.
func (s *ListingService) ListSaleAds(ctx context.Context, params SearchParams) (*entities.Page[entities.NormalizedItem], error) {
	p, err := s.prepare(params, true)
	if err != nil {
		return nil, err
	}

	pred, err := s.builder.SaleAd(ctx, p.Sale)
	if err != nil {
		return nil, err
	}

	return runListing(ctx, s, listing[*entities.SaleAd, predicates.SaleAd]{
		repo:       s.sales,
		pred:       pred,
		matchNone:  pred.MatchNone,
		candidates: saleCandidates,
		normalize:  func(a *entities.SaleAd) entities.NormalizedItem { return entities.SaleItem{Ad: a}.Normalize() },
	}, &p)
}

// ListPromoAds lists promo ads, annotating each with isCurrentlyActive
func (s *ListingService) ListPromoAds(ctx context.Context, params SearchParams) (*entities.Page[entities.NormalizedItem], error) {
	p, err := s.prepare(params, false)
	if err != nil {
		return nil, err
	}

	now := s.now()
	filter := p.Promo
	filter.Now = now
	pred, err := s.builder.PromoAd(ctx, filter)
	if err != nil {
		return nil, err
	}

	return runListing(ctx, s, listing[*entities.PromoAd, predicates.PromoAd]{
		repo:       s.promos,
		pred:       pred,
		matchNone:  pred.MatchNone,
		candidates: promoCandidates,
		normalize:  func(a *entities.PromoAd) entities.NormalizedItem { return entities.PromoItem{Ad: a, Now: now}.Normalize() },
	}, &p)
}

// prepare applies listing defaults: an origin without an explicit sort means nearest-first
func (s *ListingService) prepare(params SearchParams, allowPriceSort bool) (SearchParams, error) {
	p := params
	if p.Sort == "" && p.Origin != nil {
		p.Sort = SortDistance
	}
	p.applyDefaults(s.cfg.ListingLimit)
	if err := p.validate(s.cfg.MaxLimit, allowPriceSort); err != nil {
		return p, err
	}
	return p, nil
}

// window is how many rows a post-filtered listing pulls before paging in memory
func (s *ListingService) window(p *SearchParams) int {
	mult := s.cfg.DefaultMultiplier
	if p.OpenNow {
		mult = s.cfg.OpenNowMultiplier
	}
	return min(s.cfg.ListingWindowCap, p.Page*p.Limit*mult)
}

func runListing[T any, P any](ctx context.Context, s *ListingService, l listing[T, P], p *SearchParams) (*entities.Page[entities.NormalizedItem], error) {
	ctx, span := observability.StartSpan(ctx, "search.listing")
	defer span.End()

	if l.matchNone {
		page := entities.Paginate([]entities.NormalizedItem{}, p.Page, p.Limit)
		return &page, nil
	}

	var (
		items []entities.NormalizedItem
		total = -1
	)

	switch {
	case p.Origin != nil && (p.Sort.IsDistanceBased() || p.MaxDistanceKm != nil):
		rows, err := l.repo.Near(ctx, l.pred, repositories.NearOptions{
			Origin:        *p.Origin,
			MaxDistanceKm: p.MaxDistanceKm,
			Limit:         s.window(p),
		})
		if err != nil {
			observability.RecordError(span, err)
			return nil, asAppError("failed to list nearby", err)
		}

		cands := l.candidates(rows)
		if l.keep != nil {
			kept := cands[:0]
			for _, c := range cands {
				if l.keep(c.Item) {
					kept = append(kept, c)
				}
			}
			cands = kept
		}

		ordered := OrderByProximity(cands, GeoQuery{
			Origin:        *p.Origin,
			MaxDistanceKm: p.MaxDistanceKm,
			Sort:          p.Sort,
			Tokens:        builders.Tokenize(p.Query).Tokens,
		})
		items = make([]entities.NormalizedItem, 0, len(ordered))
		for _, c := range ordered {
			n := l.normalize(c.Item)
			if d := distanceOrNil(c.DistanceKm); d != nil {
				n.DistanceKm = d
			}
			items = append(items, n)
		}

	case l.keep != nil:
		rows, err := l.repo.Find(ctx, l.pred, repositories.FindOptions{Sort: p.Sort.storeSort(), Limit: s.window(p)})
		if err != nil {
			observability.RecordError(span, err)
			return nil, asAppError("failed to list", err)
		}
		for _, r := range rows {
			if l.keep(r) {
				items = append(items, l.normalize(r))
			}
		}

	default:
		offset := (p.Page - 1) * p.Limit
		rows, err := l.repo.Find(ctx, l.pred, repositories.FindOptions{Sort: p.Sort.storeSort(), Limit: p.Limit, Offset: offset})
		if err != nil {
			observability.RecordError(span, err)
			return nil, asAppError("failed to list", err)
		}
		if total, err = l.repo.Count(ctx, l.pred); err != nil {
			observability.RecordError(span, err)
			return nil, asAppError("failed to count", err)
		}
		items = make([]entities.NormalizedItem, 0, len(rows))
		for _, r := range rows {
			items = append(items, l.normalize(r))
		}
	}

	if p.Origin != nil && !(p.Sort.IsDistanceBased() || p.MaxDistanceKm != nil) {
		items = annotateDistance(items, *p.Origin, nil)
	}

	var page entities.Page[entities.NormalizedItem]
	if total >= 0 {
		page = entities.Page[entities.NormalizedItem]{Items: items, Pagination: entities.NewPagination(total, p.Page, p.Limit)}
	} else {
		page = entities.Paginate(items, p.Page, p.Limit)
	}
	markFavorites(page.Items, p.Viewer)
	return &page, nil
}

func distanceOrNil(d float64) *float64 {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return nil
	}
	return &d
}
