// Package memory provides in-process implementations of the repository
// contracts. They back local runs with DB_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/predicates"
	"github.com/zatekoja/localdiscovery/internal/domain/repositories"
	apperrors "github.com/zatekoja/localdiscovery/pkg/errors"
	"github.com/zatekoja/localdiscovery/pkg/geo"
)

type accessors[T any, P any] struct {
	kind      string
	id        func(T) string
	title     func(T) string
	createdAt func(T) time.Time
	location  func(T) *geo.Point
	rating    func(T) *float64
	price     func(T) *float64
	matches   func(P, T) bool
}

// ListingStore is a mutex-guarded map implementing repositories.ListingRepository
type ListingStore[T any, P any] struct {
	mu    sync.RWMutex
	items map[string]T
	acc   accessors[T, P]
	// Calls counts store round-trips, keyed by method name
	Calls map[string]int
}

func newListingStore[T any, P any](acc accessors[T, P], items []T) *ListingStore[T, P] {
	s := &ListingStore[T, P]{items: make(map[string]T), acc: acc, Calls: make(map[string]int)}
	for _, it := range items {
		s.items[acc.id(it)] = it
	}
	return s
}

// NewBusinessStore creates an in-memory business repository
func NewBusinessStore(items ...*entities.Business) *ListingStore[*entities.Business, predicates.Business] {
	return newListingStore(accessors[*entities.Business, predicates.Business]{
		kind:      "business",
		id:        func(b *entities.Business) string { return b.ID },
		title:     func(b *entities.Business) string { return b.Name },
		createdAt: func(b *entities.Business) time.Time { return b.CreatedAt },
		location:  func(b *entities.Business) *geo.Point { return b.Location },
		rating:    func(b *entities.Business) *float64 { r := b.Rating; return &r },
		price:     func(*entities.Business) *float64 { return nil },
		matches:   func(p predicates.Business, b *entities.Business) bool { return p.Matches(b) },
	}, items)
}

// NewSaleAdStore creates an in-memory sale ad repository
func NewSaleAdStore(items ...*entities.SaleAd) *ListingStore[*entities.SaleAd, predicates.SaleAd] {
	return newListingStore(accessors[*entities.SaleAd, predicates.SaleAd]{
		kind:      "sale ad",
		id:        func(s *entities.SaleAd) string { return s.ID },
		title:     func(s *entities.SaleAd) string { return s.Title },
		createdAt: func(s *entities.SaleAd) time.Time { return s.CreatedAt },
		location:  func(s *entities.SaleAd) *geo.Point { return s.Location },
		rating:    func(*entities.SaleAd) *float64 { return nil },
		price:     func(s *entities.SaleAd) *float64 { return s.Price },
		matches:   func(p predicates.SaleAd, s *entities.SaleAd) bool { return p.Matches(s) },
	}, items)
}

// NewPromoAdStore creates an in-memory promo ad repository
func NewPromoAdStore(items ...*entities.PromoAd) *ListingStore[*entities.PromoAd, predicates.PromoAd] {
	return newListingStore(accessors[*entities.PromoAd, predicates.PromoAd]{
		kind:      "promo ad",
		id:        func(a *entities.PromoAd) string { return a.ID },
		title:     func(a *entities.PromoAd) string { return a.Title },
		createdAt: func(a *entities.PromoAd) time.Time { return a.CreatedAt },
		location:  func(a *entities.PromoAd) *geo.Point { return a.Location },
		rating:    func(*entities.PromoAd) *float64 { return nil },
		price:     func(*entities.PromoAd) *float64 { return nil },
		matches:   func(p predicates.PromoAd, a *entities.PromoAd) bool { return p.Matches(a) },
	}, items)
}

// Put inserts or replaces an item
func (s *ListingStore[T, P]) Put(item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[s.acc.id(item)] = item
}

// Remove deletes an item
func (s *ListingStore[T, P]) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

func (s *ListingStore[T, P]) record(method string) {
	s.Calls[method]++
}

// GetByID implements repositories.ListingRepository
func (s *ListingStore[T, P]) GetByID(_ context.Context, id string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetByID")

	item, ok := s.items[id]
	if !ok {
		var zero T
		return zero, apperrors.NewNotFoundError(s.acc.kind + " not found")
	}
	return item, nil
}

// GetByIDs implements repositories.ListingRepository
func (s *ListingStore[T, P]) GetByIDs(_ context.Context, ids []string) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetByIDs")

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if item, ok := s.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

// ListIDs implements repositories.ListingRepository
func (s *ListingStore[T, P]) ListIDs(_ context.Context, afterID string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ListIDs")

	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *ListingStore[T, P]) matching(pred P) []T {
	out := make([]T, 0, len(s.items))
	for _, item := range s.items {
		if s.acc.matches(pred, item) {
			out = append(out, item)
		}
	}
	return out
}

// Find implements repositories.ListingRepository
func (s *ListingStore[T, P]) Find(_ context.Context, pred P, opts repositories.FindOptions) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Find")

	items := s.matching(pred)
	sort.SliceStable(items, func(i, j int) bool { return s.less(opts.Sort, items[i], items[j]) })
	return window(items, opts.Offset, opts.Limit), nil
}

// Count implements repositories.ListingRepository
func (s *ListingStore[T, P]) Count(_ context.Context, pred P) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Count")

	return len(s.matching(pred)), nil
}

// Near implements repositories.ListingRepository
func (s *ListingStore[T, P]) Near(_ context.Context, pred P, opts repositories.NearOptions) ([]repositories.Nearby[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Near")

	origin := opts.Origin
	var out []repositories.Nearby[T]
	for _, item := range s.matching(pred) {
		d := geo.Distance(&origin, s.acc.location(item))
		if opts.MaxDistanceKm != nil && !(d <= *opts.MaxDistanceKm) {
			continue
		}
		out = append(out, repositories.Nearby[T]{Item: item, DistanceKm: d})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return s.acc.id(out[i].Item) < s.acc.id(out[j].Item)
	})
	return window(out, opts.Offset, opts.Limit), nil
}

func (s *ListingStore[T, P]) less(sortBy repositories.SortField, a, b T) bool {
	switch sortBy {
	case repositories.SortName:
		ta, tb := strings.ToLower(s.acc.title(a)), strings.ToLower(s.acc.title(b))
		if ta != tb {
			return ta < tb
		}
	case repositories.SortRating:
		if c := compareNullable(s.acc.rating(a), s.acc.rating(b), true); c != 0 {
			return c < 0
		}
	case repositories.SortPriceAsc, repositories.SortPriceDesc:
		if c := compareNullable(s.acc.price(a), s.acc.price(b), sortBy == repositories.SortPriceDesc); c != 0 {
			return c < 0
		}
	}
	ca, cb := s.acc.createdAt(a), s.acc.createdAt(b)
	if !ca.Equal(cb) {
		return ca.After(cb)
	}
	return s.acc.id(a) < s.acc.id(b)
}

// compareNullable orders nil values last in either direction
func compareNullable(a, b *float64, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	x, y := *a, *b
	if desc {
		x, y = -x, -y
	}
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
