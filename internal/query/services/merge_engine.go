package services

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/predicates"
	"github.com/zatekoja/localdiscovery/internal/domain/repositories"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/observability"
	"github.com/zatekoja/localdiscovery/internal/query/builders"
	"github.com/zatekoja/localdiscovery/pkg/config"
	apperrors "github.com/zatekoja/localdiscovery/pkg/errors"
	"github.com/zatekoja/localdiscovery/pkg/geo"
)

// MergeEngine serves the unified search surface over businesses, sale ads and
// promo ads. Each type contributes a bounded prefetch batch; filtering,
// ordering and paging happen in memory over the union, so pagination totals
// are exact only within that window.
type MergeEngine struct {
	businesses repositories.BusinessRepository
	sales      repositories.SaleAdRepository
	promos     repositories.PromoAdRepository
	builder    *builders.Builder
	cfg        config.SearchConfig
	loc        *time.Location
	metrics    *observability.Metrics
	now        func() time.Time
}

// NewMergeEngine creates a new merge engine. loc is the zone opening hours are evaluated in.
func NewMergeEngine(
	businesses repositories.BusinessRepository,
	sales repositories.SaleAdRepository,
	promos repositories.PromoAdRepository,
	builder *builders.Builder,
	cfg config.SearchConfig,
	loc *time.Location,
	metrics *observability.Metrics,
) *MergeEngine {
	if loc == nil {
		loc = time.UTC
	}
	return &MergeEngine{
		businesses: businesses,
		sales:      sales,
		promos:     promos,
		builder:    builder,
		cfg:        cfg,
		loc:        loc,
		metrics:    metrics,
		now:        time.Now,
	}
}

// scope is the set of entity types that can appear in the result
type scope struct {
	business, sale, promo bool
}

// resolveScope applies the open-now restriction and the cross-type exclusion
// precedence: price filter, then sale-only filter, then business-only filter.
func resolveScope(p *SearchParams) scope {
	s := scope{business: true, sale: true, promo: true}
	if p.OpenNow {
		s = scope{business: true}
	}
	switch {
	case p.Sale.HasPriceFilter(), p.Sale.HasSaleOnlyFilter():
		s = scope{sale: s.sale}
	case p.Business.HasBusinessOnlyFilter():
		s = scope{business: s.business}
	}
	return s
}

// prefetchSize is min(cap, limit x multiplier); open-now rejects many
// businesses after the fetch, so it pulls a wider window.
func (e *MergeEngine) prefetchSize(p *SearchParams) int {
	mult := e.cfg.DefaultMultiplier
	if p.OpenNow {
		mult = e.cfg.OpenNowMultiplier
	}
	return min(e.cfg.PrefetchCap, p.Limit*mult)
}

// Search runs one merged query and returns the requested page
func (e *MergeEngine) Search(ctx context.Context, params SearchParams) (*entities.Page[entities.NormalizedItem], error) {
	p := params
	p.applyDefaults(e.cfg.DefaultLimit)
	if err := p.validate(e.cfg.MaxLimit, false); err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "search.merge",
		attribute.Int("search.page", p.Page),
		attribute.Int("search.limit", p.Limit),
		attribute.String("search.sort", string(p.Sort)),
	)
	defer span.End()

	now := e.now()
	sc := resolveScope(&p)
	batch := e.prefetchSize(&p)

	var (
		bizPred   predicates.Business
		salePred  predicates.SaleAd
		promoPred predicates.PromoAd
		err       error
	)
	if sc.business {
		if bizPred, err = e.builder.Business(ctx, p.Business); err != nil {
			return nil, err
		}
	}
	if sc.sale {
		if salePred, err = e.builder.SaleAd(ctx, p.Sale); err != nil {
			return nil, err
		}
	}
	if sc.promo {
		promoFilter := p.Promo
		promoFilter.Now = now
		if promoPred, err = e.builder.PromoAd(ctx, promoFilter); err != nil {
			return nil, err
		}
	}

	var (
		bizRows   []*entities.Business
		saleRows  []*entities.SaleAd
		promoRows []*entities.PromoAd
	)
	g, gctx := errgroup.WithContext(ctx)
	if sc.business && !bizPred.MatchNone {
		g.Go(func() error {
			rows, err := prefetch(gctx, e.businesses, bizPred, &p, batch)
			bizRows = rows
			return err
		})
	}
	if sc.sale && !salePred.MatchNone {
		g.Go(func() error {
			rows, err := prefetch(gctx, e.sales, salePred, &p, batch)
			saleRows = rows
			return err
		})
	}
	if sc.promo && !promoPred.MatchNone {
		g.Go(func() error {
			rows, err := prefetch(gctx, e.promos, promoPred, &p, batch)
			promoRows = rows
			return err
		})
	}
	if err := g.Wait(); err != nil {
		observability.RecordError(span, err)
		return nil, asAppError("failed to fetch search candidates", err)
	}

	observability.RecordPrefetch(ctx, e.metrics, string(entities.EntityTypeBusiness), len(bizRows))
	observability.RecordPrefetch(ctx, e.metrics, string(entities.EntityTypeSale), len(saleRows))
	observability.RecordPrefetch(ctx, e.metrics, string(entities.EntityTypePromo), len(promoRows))

	items := make([]entities.SearchItem, 0, len(bizRows)+len(saleRows)+len(promoRows))
	localNow := now.In(e.loc)
	for _, b := range bizRows {
		if p.OpenNow && !b.OpeningHours.IsOpen(localNow) {
			continue
		}
		items = append(items, entities.BusinessItem{Business: b})
	}
	for _, s := range saleRows {
		items = append(items, entities.SaleItem{Ad: s})
	}
	for _, a := range promoRows {
		if !a.IsCurrentlyActive(now) {
			continue
		}
		items = append(items, entities.PromoItem{Ad: a, Now: now})
	}

	merged := make([]entities.NormalizedItem, 0, len(items))
	for _, it := range items {
		n := it.Normalize()
		if !withinScope(sc, n.Type) || !withinPriceRange(&p, &n) {
			continue
		}
		merged = append(merged, n)
	}

	merged = orderMerged(merged, &p)

	page := entities.Paginate(merged, p.Page, p.Limit)
	markFavorites(page.Items, p.Viewer)

	span.SetAttributes(attribute.Int("search.total", page.Pagination.Total))
	return &page, nil
}

// prefetch pulls one bounded batch: nearest-first with an origin, otherwise by store sort
func prefetch[T any, P any](ctx context.Context, repo repositories.ListingRepository[T, P], pred P, p *SearchParams, batch int) ([]T, error) {
	if p.Origin != nil {
		rows, err := repo.Near(ctx, pred, repositories.NearOptions{Origin: *p.Origin, MaxDistanceKm: p.MaxDistanceKm, Limit: batch})
		if err != nil {
			return nil, err
		}
		out := make([]T, len(rows))
		for i, r := range rows {
			out[i] = r.Item
		}
		return out, nil
	}
	return repo.Find(ctx, pred, repositories.FindOptions{Sort: p.Sort.storeSort(), Limit: batch})
}

func withinScope(sc scope, t entities.EntityType) bool {
	switch t {
	case entities.EntityTypeBusiness:
		return sc.business
	case entities.EntityTypeSale:
		return sc.sale
	case entities.EntityTypePromo:
		return sc.promo
	}
	return false
}

// withinPriceRange drops anything without a numeric price in bounds once a price filter is set
func withinPriceRange(p *SearchParams, n *entities.NormalizedItem) bool {
	if !p.Sale.HasPriceFilter() {
		return true
	}
	if n.Price == nil {
		return false
	}
	if lo := p.Sale.PriceMin; lo != nil && *n.Price < *lo {
		return false
	}
	if hi := p.Sale.PriceMax; hi != nil && *n.Price > *hi {
		return false
	}
	return true
}

// orderMerged sorts the union. Distances are always recomputed here because
// prefetches from different stores are not comparable.
func orderMerged(items []entities.NormalizedItem, p *SearchParams) []entities.NormalizedItem {
	if p.Origin != nil {
		items = annotateDistance(items, *p.Origin, p.MaxDistanceKm)
		if p.Sort.IsDistanceBased() || p.MaxDistanceKm != nil {
			sort.SliceStable(items, func(i, j int) bool {
				di, dj := distanceOf(&items[i]), distanceOf(&items[j])
				if di != dj {
					return di < dj
				}
				return lessRecentThenTitle(&items[i], &items[j])
			})
			return items
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := &items[i], &items[j]
		switch p.Sort {
		case SortName:
			ta, tb := strings.ToLower(a.Title), strings.ToLower(b.Title)
			if ta != tb {
				return ta < tb
			}
			return a.ID < b.ID
		case SortRating:
			if c := compareRating(a.Rating, b.Rating); c != 0 {
				return c < 0
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return items
}

// annotateDistance sets DistanceKm from the origin and applies the radius.
// Items without a usable location keep a nil distance and never pass a radius.
func annotateDistance(items []entities.NormalizedItem, origin geo.Point, maxKm *float64) []entities.NormalizedItem {
	kept := items[:0]
	for _, it := range items {
		d := geo.Distance(&origin, it.Location)
		if maxKm != nil && !(d <= *maxKm) {
			continue
		}
		it.DistanceKm = nil
		if !math.IsInf(d, 0) {
			it.DistanceKm = &d
		}
		kept = append(kept, it)
	}
	return kept
}

func distanceOf(n *entities.NormalizedItem) float64 {
	if n.DistanceKm == nil {
		return math.Inf(1)
	}
	return *n.DistanceKm
}

// lessRecentThenTitle is the distance tie-break: newer first, then title, then id
func lessRecentThenTitle(a, b *entities.NormalizedItem) bool {
	ta, tb := a.Timestamp(), b.Timestamp()
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	la, lb := strings.ToLower(a.Title), strings.ToLower(b.Title)
	if la != lb {
		return la < lb
	}
	return a.ID < b.ID
}

// compareRating orders higher ratings first and missing ratings last
func compareRating(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a > *b:
		return -1
	case *a < *b:
		return 1
	}
	return 0
}

func markFavorites(items []entities.NormalizedItem, viewer *entities.User) {
	if viewer == nil {
		return
	}
	for i := range items {
		items[i].IsFavorite = viewer.HasFavorite(items[i].Type, items[i].ID)
	}
}

// asAppError keeps typed errors and wraps anything else as internal
func asAppError(message string, err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.NewInternalError(message, err)
}
