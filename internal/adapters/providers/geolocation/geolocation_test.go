package geolocation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/localdiscovery/internal/adapters/cache"
	"github.com/zatekoja/localdiscovery/internal/domain/providers"
)

const lagosResponse = `{
  "status": "OK",
  "results": [{
    "formatted_address": "Lekki Phase 1, Lagos, Nigeria",
    "address_components": [
      {"long_name": "Lagos", "types": ["locality", "political"]},
      {"long_name": "Nigeria", "types": ["country", "political"]}
    ],
    "geometry": {"location": {"lat": 6.4474, "lng": 3.4723}}
  }]
}`

func TestGoogleGeolocationProvider_Geocode(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Lekki Phase 1", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		_, _ = w.Write([]byte(lagosResponse))
	}))
	defer server.Close()

	provider := NewGoogleGeolocationProviderWithOptions("test-key", cache.NewMemoryAdapter(), server.URL, server.Client())

	addr, err := provider.Geocode(context.Background(), " Lekki Phase 1 ")
	require.NoError(t, err)
	assert.Equal(t, "Lekki Phase 1, Lagos, Nigeria", addr.FormattedAddress)
	assert.Equal(t, "Lagos", addr.City)
	assert.Equal(t, "Nigeria", addr.Country)
	assert.InDelta(t, 6.4474, addr.Coordinates.Latitude, 1e-9)
	assert.InDelta(t, 3.4723, addr.Coordinates.Longitude, 1e-9)

	_, err = provider.Geocode(context.Background(), "lekki phase 1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load(), "second lookup is served from cache")
}

func TestGoogleGeolocationProvider_ZeroResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer server.Close()

	provider := NewGoogleGeolocationProviderWithOptions("k", nil, server.URL, server.Client())

	_, err := provider.Geocode(context.Background(), "nowhere at all")
	assert.ErrorIs(t, err, providers.ErrAddressNotFound)
}

func TestGoogleGeolocationProvider_ProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key"}`))
	}))
	defer server.Close()

	provider := NewGoogleGeolocationProviderWithOptions("k", nil, server.URL, server.Client())

	_, err := provider.Geocode(context.Background(), "Lagos")
	require.Error(t, err)
	assert.NotErrorIs(t, err, providers.ErrAddressNotFound)
	assert.Contains(t, err.Error(), "REQUEST_DENIED")
}

func TestGoogleGeolocationProvider_HTTPStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := NewGoogleGeolocationProviderWithOptions("k", nil, server.URL, server.Client())

	_, err := provider.Geocode(context.Background(), "Lagos")
	require.Error(t, err)
	assert.NotErrorIs(t, err, providers.ErrAddressNotFound)
}

func TestGoogleGeolocationProvider_RequiresKey(t *testing.T) {
	provider := NewGoogleGeolocationProvider("", nil)
	_, err := provider.Geocode(context.Background(), "Lagos")
	assert.Error(t, err)
}

func TestMockGeolocationProvider(t *testing.T) {
	provider := NewMockGeolocationProvider()

	addr, err := provider.Geocode(context.Background(), "12 Marina Road, LAGOS")
	require.NoError(t, err)
	assert.Equal(t, "Lagos", addr.City)
	assert.InDelta(t, 6.5244, addr.Coordinates.Latitude, 1e-9)

	_, err = provider.Geocode(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, providers.ErrAddressNotFound)
}
