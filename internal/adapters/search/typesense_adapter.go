// Package search keeps a Typesense geo index of businesses and serves
// nearest-first retrieval from it.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/predicates"
	"github.com/zatekoja/localdiscovery/internal/domain/repositories"
	tsclient "github.com/zatekoja/localdiscovery/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/observability"
	"github.com/zatekoja/localdiscovery/pkg/geo"
)

const (
	collectionName = "businesses"
	// maxPerPage is the largest page Typesense serves
	maxPerPage = 250
	// anywhereKm covers every point on the globe from any origin
	anywhereKm = 20100.0
)

// GeoIndexedBusinessRepository answers Near from a Typesense geopoint index
// and delegates everything else to the wrapped repository. Queries the index
// cannot answer exactly fall back to the wrapped Near.
type GeoIndexedBusinessRepository struct {
	repositories.BusinessRepository
	client *tsclient.Client
}

// Ensure GeoIndexedBusinessRepository implements BusinessRepository
var _ repositories.BusinessRepository = (*GeoIndexedBusinessRepository)(nil)

// NewGeoIndexedBusinessRepository creates a new Typesense-backed business repository
func NewGeoIndexedBusinessRepository(inner repositories.BusinessRepository, client *tsclient.Client) *GeoIndexedBusinessRepository {
	return &GeoIndexedBusinessRepository{BusinessRepository: inner, client: client}
}

// InitSchema ensures the collection exists
func (r *GeoIndexedBusinessRepository) InitSchema(ctx context.Context) error {
	if _, err := r.client.Client().Collection(collectionName).Retrieve(ctx); err == nil {
		return nil
	}

	schema := &api.CollectionSchema{
		Name: collectionName,
		Fields: []api.Field{
			{Name: "name", Type: "string"},
			{Name: "category_id", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "service_ids", Type: "string[]", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "is_active", Type: "bool"},
			{Name: "location", Type: "geopoint"},
			{Name: "rating", Type: "float"},
			{Name: "created_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("created_at"),
	}

	if _, err := r.client.Client().Collections().Create(ctx, schema); err != nil {
		return fmt.Errorf("failed to create typesense collection: %w", err)
	}
	return nil
}

// Index upserts a business. Businesses without a usable location are removed
// from the index instead.
func (r *GeoIndexedBusinessRepository) Index(ctx context.Context, b *entities.Business) error {
	if b.Location == nil || !b.Location.Valid() {
		return r.Delete(ctx, b.ID)
	}

	document := map[string]interface{}{
		"id":          b.ID,
		"name":        b.Name,
		"category_id": b.CategoryID,
		"service_ids": nonNil(b.ServiceIDs),
		"is_active":   b.IsActive,
		"location":    []float64{b.Location.Lat, b.Location.Lng},
		"rating":      b.Rating,
		"created_at":  b.CreatedAt.Unix(),
	}

	if _, err := r.client.Client().Collection(collectionName).Documents().Upsert(ctx, document); err != nil {
		return fmt.Errorf("failed to index business: %w", err)
	}
	return nil
}

// Delete removes a business from the index. A missing document is not an error.
func (r *GeoIndexedBusinessRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.Client().Collection(collectionName).Document(id).Delete(ctx)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete business from index: %w", err)
	}
	return nil
}

// Near implements repositories.BusinessRepository
func (r *GeoIndexedBusinessRepository) Near(ctx context.Context, pred predicates.Business, opts repositories.NearOptions) ([]repositories.Nearby[*entities.Business], error) {
	if pred.MatchNone {
		return []repositories.Nearby[*entities.Business]{}, nil
	}
	if !indexable(pred, opts) {
		return r.BusinessRepository.Near(ctx, pred, opts)
	}

	logger := observability.LoggerFromContext(ctx)
	ids, err := r.searchIDs(ctx, pred, opts)
	if err != nil {
		logger.Warn().Err(err).Msg("typesense geo search failed, falling back to database")
		return r.BusinessRepository.Near(ctx, pred, opts)
	}
	// A short page reaches past the located businesses; rows without a
	// location only come from the database.
	if len(ids) < opts.Limit && opts.MaxDistanceKm == nil {
		return r.BusinessRepository.Near(ctx, pred, opts)
	}

	rows, err := r.BusinessRepository.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	origin := opts.Origin
	out := make([]repositories.Nearby[*entities.Business], 0, len(rows))
	for _, b := range rows {
		// The index may lag the database
		if !pred.Matches(b) {
			continue
		}
		out = append(out, repositories.Nearby[*entities.Business]{Item: b, DistanceKm: geo.Distance(&origin, b.Location)})
	}
	return out, nil
}

// indexable reports whether the index can answer the query exactly. Text
// matching stays in the database, and Typesense pages must align with offset.
func indexable(pred predicates.Business, opts repositories.NearOptions) bool {
	if !pred.Text.Empty() {
		return false
	}
	if opts.Limit <= 0 || opts.Limit > maxPerPage || opts.Offset%opts.Limit != 0 {
		return false
	}
	return opts.Origin.Valid()
}

func (r *GeoIndexedBusinessRepository) searchIDs(ctx context.Context, pred predicates.Business, opts repositories.NearOptions) ([]string, error) {
	params := &api.SearchCollectionParams{
		Q:        pointer.String("*"),
		QueryBy:  pointer.String("name"),
		FilterBy: pointer.String(filterBy(pred, opts)),
		SortBy:   pointer.String(fmt.Sprintf("location(%f, %f):asc", opts.Origin.Lat, opts.Origin.Lng)),
		Page:     pointer.Int(opts.Offset/opts.Limit + 1),
		PerPage:  pointer.Int(opts.Limit),
	}

	result, err := r.client.Client().Collection(collectionName).Documents().Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search businesses: %w", err)
	}
	if result.Hits == nil {
		return []string{}, nil
	}

	ids := make([]string, 0, len(*result.Hits))
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		if id, ok := (*hit.Document)["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// filterBy renders the non-text business predicate as a Typesense filter.
// The location clause is always present, so only located businesses match.
func filterBy(pred predicates.Business, opts repositories.NearOptions) string {
	radius := anywhereKm
	if opts.MaxDistanceKm != nil {
		radius = *opts.MaxDistanceKm
	}

	clauses := []string{fmt.Sprintf("location:(%f, %f, %f km)", opts.Origin.Lat, opts.Origin.Lng, radius)}
	if !pred.IncludeInactive {
		clauses = append(clauses, "is_active:=true")
	}
	if len(pred.ServiceIDs) > 0 {
		clauses = append(clauses, "service_ids:="+quotedList(pred.ServiceIDs))
	} else if len(pred.CategoryIDs) > 0 {
		clauses = append(clauses, "category_id:="+quotedList(pred.CategoryIDs))
	}
	if pred.MinRating != nil {
		clauses = append(clauses, fmt.Sprintf("rating:>=%g", *pred.MinRating))
	}
	return strings.Join(clauses, " && ")
}

func quotedList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "`" + strings.ReplaceAll(v, "`", "") + "`"
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func isNotFound(err error) bool {
	return strings.Contains(err.Error(), "404") || strings.Contains(strings.ToLower(err.Error()), "not found")
}
