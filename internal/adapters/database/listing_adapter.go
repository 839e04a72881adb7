package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/zatekoja/localdiscovery/internal/domain/repositories"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/localdiscovery/pkg/errors"
	"github.com/zatekoja/localdiscovery/pkg/geo"
)

// distanceSQL is the great-circle distance in km from an origin bound as
// (lat, lat, lng). Rows with a missing or out-of-range location yield NULL.
var distanceSQL = fmt.Sprintf(
	"CASE WHEN latitude BETWEEN -90 AND 90 AND longitude BETWEEN -180 AND 180 THEN "+
		"2 * %g * asin(least(1, sqrt(power(sin(radians(latitude - ?) / 2), 2) + "+
		"cos(radians(?)) * cos(radians(latitude)) * power(sin(radians(longitude - ?) / 2), 2)))) END",
	geo.EarthRadiusKm,
)

func distanceFrom(origin geo.Point) exp.LiteralExpression {
	return goqu.L(distanceSQL, origin.Lat, origin.Lat, origin.Lng)
}

// table describes how one listing collection maps onto its SQL table
type table[T any, P any, R any] struct {
	name      string
	kind      string
	columns   []interface{}
	titleCol  string
	ratingCol string
	priceCol  string
	where     func(P) []exp.Expression
	matchNone func(P) bool
	toEntity  func(*R) T
	id        func(T) string
	distance  func(*R) sql.NullFloat64
}

// listingAdapter implements repositories.ListingRepository over one table
type listingAdapter[T any, P any, R any] struct {
	client *postgres.Client
	db     *goqu.Database
	table  table[T, P, R]
}

func newListingAdapter[T any, P any, R any](client *postgres.Client, t table[T, P, R]) *listingAdapter[T, P, R] {
	return &listingAdapter[T, P, R]{
		client: client,
		db:     goqu.New("postgres", client.DB()),
		table:  t,
	}
}

func (a *listingAdapter[T, P, R]) from() *goqu.SelectDataset {
	return a.db.From(a.table.name).Prepared(true)
}

func (a *listingAdapter[T, P, R]) selectRows(ctx context.Context, op string, ds *goqu.SelectDataset) ([]R, error) {
	defer a.client.Observe(ctx, a.table.name+"."+op, time.Now())

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var rows []R
	if err := a.client.SQLX().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to query %s", a.table.name), err)
	}
	return rows, nil
}

func (a *listingAdapter[T, P, R]) entities(rows []R) []T {
	out := make([]T, 0, len(rows))
	for i := range rows {
		out = append(out, a.table.toEntity(&rows[i]))
	}
	return out
}

// GetByID retrieves a row by ID
func (a *listingAdapter[T, P, R]) GetByID(ctx context.Context, id string) (T, error) {
	var zero T
	var row R

	query, args, err := a.from().Select(a.table.columns...).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return zero, apperrors.NewInternalError("failed to build query", err)
	}

	defer a.client.Observe(ctx, a.table.name+".get", time.Now())
	if err := a.client.SQLX().GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, apperrors.NewNotFoundError(a.table.kind + " not found")
		}
		return zero, apperrors.NewInternalError(fmt.Sprintf("failed to get %s", a.table.kind), err)
	}
	return a.table.toEntity(&row), nil
}

// GetByIDs retrieves rows in the order of ids
func (a *listingAdapter[T, P, R]) GetByIDs(ctx context.Context, ids []string) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}

	rows, err := a.selectRows(ctx, "get_many", a.from().Select(a.table.columns...).Where(goqu.Ex{"id": ids}))
	if err != nil {
		return nil, err
	}

	byID := make(map[string]T, len(rows))
	for _, item := range a.entities(rows) {
		byID[a.table.id(item)] = item
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

// ListIDs pages through ids in ascending order
func (a *listingAdapter[T, P, R]) ListIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	ds := a.from().Select("id").Order(goqu.C("id").Asc())
	if afterID != "" {
		ds = ds.Where(goqu.C("id").Gt(afterID))
	}
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	defer a.client.Observe(ctx, a.table.name+".list_ids", time.Now())
	var ids []string
	if err := a.client.SQLX().SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to list %s ids", a.table.kind), err)
	}
	return ids, nil
}

// Find returns matching rows in store order
func (a *listingAdapter[T, P, R]) Find(ctx context.Context, pred P, opts repositories.FindOptions) ([]T, error) {
	if a.table.matchNone(pred) {
		return []T{}, nil
	}

	ds := a.from().
		Select(a.table.columns...).
		Where(a.table.where(pred)...).
		Order(a.order(opts.Sort)...)
	ds = page(ds, opts.Limit, opts.Offset)

	rows, err := a.selectRows(ctx, "find", ds)
	if err != nil {
		return nil, err
	}
	return a.entities(rows), nil
}

// Count returns the number of matching rows
func (a *listingAdapter[T, P, R]) Count(ctx context.Context, pred P) (int, error) {
	if a.table.matchNone(pred) {
		return 0, nil
	}

	query, args, err := a.from().Select(goqu.COUNT(goqu.Star())).Where(a.table.where(pred)...).ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build query", err)
	}

	defer a.client.Observe(ctx, a.table.name+".count", time.Now())
	var n int
	if err := a.client.SQLX().GetContext(ctx, &n, query, args...); err != nil {
		return 0, apperrors.NewInternalError(fmt.Sprintf("failed to count %s", a.table.name), err)
	}
	return n, nil
}

// Near returns matching rows nearest-first with their distance
func (a *listingAdapter[T, P, R]) Near(ctx context.Context, pred P, opts repositories.NearOptions) ([]repositories.Nearby[T], error) {
	if a.table.matchNone(pred) {
		return []repositories.Nearby[T]{}, nil
	}

	distance := distanceFrom(opts.Origin)
	where := a.table.where(pred)
	if opts.MaxDistanceKm != nil {
		where = append(where, distance.Lte(*opts.MaxDistanceKm))
	}

	ds := a.from().
		Select(append(append([]interface{}{}, a.table.columns...), distance.As("distance_km"))...).
		Where(where...).
		Order(goqu.C("distance_km").Asc().NullsLast(), goqu.C("id").Asc())
	ds = page(ds, opts.Limit, opts.Offset)

	rows, err := a.selectRows(ctx, "near", ds)
	if err != nil {
		return nil, err
	}

	out := make([]repositories.Nearby[T], 0, len(rows))
	for i := range rows {
		d := math.NaN()
		if nd := a.table.distance(&rows[i]); nd.Valid {
			d = nd.Float64
		}
		out = append(out, repositories.Nearby[T]{Item: a.table.toEntity(&rows[i]), DistanceKm: d})
	}
	return out, nil
}

func (a *listingAdapter[T, P, R]) order(sort repositories.SortField) []exp.OrderedExpression {
	newest := []exp.OrderedExpression{goqu.C("created_at").Desc(), goqu.C("id").Asc()}

	var lead exp.OrderedExpression
	switch sort {
	case repositories.SortName:
		lead = goqu.L("lower(?)", goqu.I(a.table.titleCol)).Asc()
	case repositories.SortRating:
		if a.table.ratingCol != "" {
			lead = goqu.C(a.table.ratingCol).Desc().NullsLast()
		}
	case repositories.SortPriceAsc:
		if a.table.priceCol != "" {
			lead = goqu.C(a.table.priceCol).Asc().NullsLast()
		}
	case repositories.SortPriceDesc:
		if a.table.priceCol != "" {
			lead = goqu.C(a.table.priceCol).Desc().NullsLast()
		}
	}
	if lead == nil {
		return newest
	}
	return append([]exp.OrderedExpression{lead}, newest...)
}

func page(ds *goqu.SelectDataset, limit, offset int) *goqu.SelectDataset {
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	if offset > 0 {
		ds = ds.Offset(uint(offset))
	}
	return ds
}

func nullString(s sql.NullString) string {
	if s.Valid {
		return s.String
	}
	return ""
}

func nullTime(t sql.NullTime) time.Time {
	if t.Valid {
		return t.Time
	}
	return time.Time{}
}

// pointFrom converts stored coordinates; anything missing or out of range is no location
func pointFrom(lat, lng sql.NullFloat64) *geo.Point {
	if !lat.Valid || !lng.Valid {
		return nil
	}
	p := geo.NewPoint(lat.Float64, lng.Float64)
	if !p.Valid() {
		return nil
	}
	return &p
}
