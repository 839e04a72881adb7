package repositories

import (
	"context"

	"github.com/zatekoja/localdiscovery/pkg/geo"
)

// SortField selects the store-side ordering for Find
type SortField string

const (
	SortNewest    SortField = "newest"
	SortRating    SortField = "rating"
	SortName      SortField = "name"
	SortPriceAsc  SortField = "price_asc"
	SortPriceDesc SortField = "price_desc"
)

// FindOptions controls ordering and paging of Find
type FindOptions struct {
	Sort   SortField
	Limit  int
	Offset int
}

// NearOptions controls a nearest-first retrieval around Origin
type NearOptions struct {
	Origin        geo.Point
	MaxDistanceKm *float64
	Limit         int
	Offset        int
}

// Nearby pairs a candidate with the distance the store computed for it.
// DistanceKm is NaN when the store could not supply one.
type Nearby[T any] struct {
	Item       T
	DistanceKm float64
}

// ListingRepository is the read contract shared by the three searchable
// collections. P is the collection's predicate type.
type ListingRepository[T any, P any] interface {
	// GetByID returns a NOT_FOUND AppError when the row does not exist
	GetByID(ctx context.Context, id string) (T, error)

	// GetByIDs returns the rows in the order of ids, skipping missing ones
	GetByIDs(ctx context.Context, ids []string) ([]T, error)

	// ListIDs pages through every id in ascending order, starting after afterID
	ListIDs(ctx context.Context, afterID string, limit int) ([]string, error)

	Find(ctx context.Context, pred P, opts FindOptions) ([]T, error)

	Count(ctx context.Context, pred P) (int, error)

	// Near returns candidates nearest-first. Rows without a location sort last.
	Near(ctx context.Context, pred P, opts NearOptions) ([]Nearby[T], error)
}
