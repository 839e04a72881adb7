package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/typesense/typesense-go/v2/typesense"

	"github.com/zatekoja/localdiscovery/internal/adapters/memory"
	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/predicates"
	"github.com/zatekoja/localdiscovery/internal/domain/repositories"
	tsclient "github.com/zatekoja/localdiscovery/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/localdiscovery/pkg/geo"
)

type fakeTypesense struct {
	mu       sync.Mutex
	hits     []string
	status   int
	searches []map[string]string
	upserts  []map[string]interface{}
	deletes  []string
}

func (f *fakeTypesense) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/collections/businesses/documents/search":
		q := r.URL.Query()
		f.searches = append(f.searches, map[string]string{
			"filter_by": q.Get("filter_by"),
			"sort_by":   q.Get("sort_by"),
			"page":      q.Get("page"),
			"per_page":  q.Get("per_page"),
		})
		hits := make([]map[string]interface{}, 0, len(f.hits))
		for _, id := range f.hits {
			hits = append(hits, map[string]interface{}{"document": map[string]interface{}{"id": id}})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"found": len(hits), "page": 1, "hits": hits})
	case r.Method == http.MethodPost && r.URL.Path == "/collections/businesses/documents":
		var doc map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&doc)
		f.upserts = append(f.upserts, doc)
		_ = json.NewEncoder(w).Encode(doc)
	case r.Method == http.MethodDelete:
		f.deletes = append(f.deletes, r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"x"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}
}

func newTestRepository(t *testing.T, fake *fakeTypesense) (*GeoIndexedBusinessRepository, *memory.ListingStore[*entities.Business, predicates.Business]) {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client := typesense.NewClient(
		typesense.WithServer(server.URL),
		typesense.WithAPIKey("test"),
		typesense.WithConnectionTimeout(2*time.Second),
		typesense.WithNumRetries(0),
	)

	point := func(lat, lng float64) *geo.Point { p := geo.NewPoint(lat, lng); return &p }
	store := memory.NewBusinessStore(
		&entities.Business{ID: "b1", Name: "Near Cafe", IsActive: true, Location: point(6.45, 3.40), Rating: 4.5},
		&entities.Business{ID: "b2", Name: "Far Cafe", IsActive: true, Location: point(6.60, 3.35), Rating: 3.9},
		&entities.Business{ID: "b3", Name: "Closed Cafe", IsActive: false, Location: point(6.45, 3.40)},
		&entities.Business{ID: "b4", Name: "Nowhere Cafe", IsActive: true},
	)
	return NewGeoIndexedBusinessRepository(store, tsclient.NewClientFromTypesense(client)), store
}

func TestNear_UsesIndexAndHydrates(t *testing.T) {
	fake := &fakeTypesense{hits: []string{"b1", "b2", "b3"}}
	repo, store := newTestRepository(t, fake)

	origin := geo.NewPoint(6.44, 3.41)
	rows, err := repo.Near(context.Background(), predicates.Business{}, repositories.NearOptions{Origin: origin, Limit: 3})
	require.NoError(t, err)

	require.Len(t, rows, 2, "stale inactive hit is dropped")
	assert.Equal(t, "b1", rows[0].Item.ID)
	assert.Equal(t, "b2", rows[1].Item.ID)
	assert.InDelta(t, geo.Distance(&origin, rows[0].Item.Location), rows[0].DistanceKm, 1e-9)
	assert.Zero(t, store.Calls["Near"])

	require.Len(t, fake.searches, 1)
	assert.Contains(t, fake.searches[0]["filter_by"], "location:(6.440000, 3.410000,")
	assert.Contains(t, fake.searches[0]["filter_by"], "is_active:=true")
	assert.Equal(t, "location(6.440000, 3.410000):asc", fake.searches[0]["sort_by"])
	assert.Equal(t, "1", fake.searches[0]["page"])
	assert.Equal(t, "3", fake.searches[0]["per_page"])
}

func TestNear_ShortPageWithoutRadiusFallsBack(t *testing.T) {
	fake := &fakeTypesense{hits: []string{"b1"}}
	repo, store := newTestRepository(t, fake)

	rows, err := repo.Near(context.Background(), predicates.Business{}, repositories.NearOptions{Origin: geo.NewPoint(6.44, 3.41), Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, 1, store.Calls["Near"])
	require.Len(t, rows, 3)
	assert.Equal(t, "b4", rows[2].Item.ID, "businesses without a location sort last")
}

func TestNear_ShortPageWithRadiusIsExact(t *testing.T) {
	fake := &fakeTypesense{hits: []string{"b1"}}
	repo, store := newTestRepository(t, fake)

	radius := 5.0
	rows, err := repo.Near(context.Background(), predicates.Business{}, repositories.NearOptions{
		Origin: geo.NewPoint(6.44, 3.41), MaxDistanceKm: &radius, Limit: 10,
	})
	require.NoError(t, err)

	assert.Zero(t, store.Calls["Near"])
	require.Len(t, rows, 1)
	assert.Contains(t, fake.searches[0]["filter_by"], "5.000000 km")
}

func TestNear_FiltersRendered(t *testing.T) {
	fake := &fakeTypesense{hits: []string{}}
	repo, _ := newTestRepository(t, fake)

	rating := 4.0
	radius := 2.0
	_, err := repo.Near(context.Background(), predicates.Business{
		IncludeInactive: true,
		ServiceIDs:      []string{"s1", "s2"},
		CategoryIDs:     []string{"c1"},
		MinRating:       &rating,
	}, repositories.NearOptions{Origin: geo.NewPoint(1, 2), MaxDistanceKm: &radius, Limit: 5, Offset: 10})
	require.NoError(t, err)

	filter := fake.searches[0]["filter_by"]
	assert.NotContains(t, filter, "is_active")
	assert.Contains(t, filter, "service_ids:=[`s1`,`s2`]")
	assert.NotContains(t, filter, "category_id")
	assert.Contains(t, filter, "rating:>=4")
	assert.Equal(t, "3", fake.searches[0]["page"])
}

func TestNear_FallsBackWhenIndexCannotAnswer(t *testing.T) {
	origin := geo.NewPoint(6.44, 3.41)
	cases := []struct {
		name string
		pred predicates.Business
		opts repositories.NearOptions
	}{
		{"text query", predicates.Business{Text: predicates.TextMatch{Raw: "cafe", Tokens: []string{"cafe"}}}, repositories.NearOptions{Origin: origin, Limit: 2}},
		{"unaligned offset", predicates.Business{}, repositories.NearOptions{Origin: origin, Limit: 2, Offset: 3}},
		{"oversized page", predicates.Business{}, repositories.NearOptions{Origin: origin, Limit: 500}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeTypesense{hits: []string{"b1", "b2"}}
			repo, store := newTestRepository(t, fake)

			_, err := repo.Near(context.Background(), tc.pred, tc.opts)
			require.NoError(t, err)
			assert.Equal(t, 1, store.Calls["Near"])
			assert.Empty(t, fake.searches)
		})
	}
}

func TestNear_SearchErrorFallsBack(t *testing.T) {
	fake := &fakeTypesense{status: http.StatusServiceUnavailable}
	repo, store := newTestRepository(t, fake)

	rows, err := repo.Near(context.Background(), predicates.Business{}, repositories.NearOptions{Origin: geo.NewPoint(6.44, 3.41), Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, store.Calls["Near"])
	assert.Len(t, rows, 2)
}

func TestNear_MatchNoneSkipsEverything(t *testing.T) {
	fake := &fakeTypesense{hits: []string{"b1"}}
	repo, store := newTestRepository(t, fake)

	rows, err := repo.Near(context.Background(), predicates.NoBusinesses(), repositories.NearOptions{Origin: geo.NewPoint(0, 0), Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, fake.searches)
	assert.Zero(t, store.Calls["Near"])
}

func TestIndexAndDelete(t *testing.T) {
	fake := &fakeTypesense{}
	repo, _ := newTestRepository(t, fake)

	p := geo.NewPoint(6.5, 3.3)
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, repo.Index(context.Background(), &entities.Business{
		ID: "b9", Name: "Shop", CategoryID: "c1", IsActive: true, Location: &p, Rating: 4, CreatedAt: created,
	}))
	require.Len(t, fake.upserts, 1)
	assert.Equal(t, "b9", fake.upserts[0]["id"])
	assert.Equal(t, []interface{}{6.5, 3.3}, fake.upserts[0]["location"])
	assert.Equal(t, float64(created.Unix()), fake.upserts[0]["created_at"])
	assert.Equal(t, []interface{}{}, fake.upserts[0]["service_ids"])

	require.NoError(t, repo.Index(context.Background(), &entities.Business{ID: "b10", Name: "No location"}))
	assert.Len(t, fake.upserts, 1)
	require.Len(t, fake.deletes, 1)
	assert.Equal(t, "/collections/businesses/documents/b10", fake.deletes[0])
}
