package geolocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/zatekoja/localdiscovery/internal/adapters/cache"
	"github.com/zatekoja/localdiscovery/internal/domain/providers"
)

const (
	googleGeocodeURL       = "https://maps.googleapis.com/maps/api/geocode/json"
	defaultGeocodeCacheTTL = 30 * 24 * time.Hour
	defaultHTTPTimeout     = 8 * time.Second
)

// GoogleGeolocationProvider implements the GeolocationProvider using the Google Geocoding API.
type GoogleGeolocationProvider struct {
	apiKey     string
	httpClient *http.Client
	cache      *cache.JSONCache[providers.GeocodedAddress]
	baseURL    string
}

// NewGoogleGeolocationProvider creates a new Google geolocation provider. cacheProvider may be nil.
func NewGoogleGeolocationProvider(apiKey string, cacheProvider providers.CacheProvider) providers.GeolocationProvider {
	return NewGoogleGeolocationProviderWithOptions(apiKey, cacheProvider, googleGeocodeURL, nil)
}

// NewGoogleGeolocationProviderWithOptions allows overriding base URL and HTTP client (used for tests).
func NewGoogleGeolocationProviderWithOptions(apiKey string, cacheProvider providers.CacheProvider, baseURL string, httpClient *http.Client) providers.GeolocationProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = googleGeocodeURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	g := &GoogleGeolocationProvider{
		apiKey:     apiKey,
		httpClient: httpClient,
		baseURL:    baseURL,
	}
	if cacheProvider != nil {
		g.cache = cache.NewJSONCache[providers.GeocodedAddress](cacheProvider, "geo:v3:geocode:", defaultGeocodeCacheTTL, nil)
	}
	return g
}

// Geocode converts an address to a geocoded address. Unknown addresses return
// providers.ErrAddressNotFound.
func (g *GoogleGeolocationProvider) Geocode(ctx context.Context, address string) (*providers.GeocodedAddress, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return nil, providers.ErrAddressNotFound
	}

	if g.cache == nil {
		return g.lookup(ctx, trimmed)
	}

	addr, err := g.cache.GetOrLoad(ctx, hashKey(strings.ToLower(trimmed)), func(ctx context.Context) (providers.GeocodedAddress, error) {
		found, err := g.lookup(ctx, trimmed)
		if err != nil {
			return providers.GeocodedAddress{}, err
		}
		return *found, nil
	})
	if err != nil {
		return nil, err
	}
	return &addr, nil
}

func (g *GoogleGeolocationProvider) lookup(ctx context.Context, address string) (*providers.GeocodedAddress, error) {
	resp, err := g.doGeocodeRequest(ctx, url.Values{"address": []string{address}})
	if err != nil {
		return nil, err
	}

	result := resp.Results[0]
	return &providers.GeocodedAddress{
		FormattedAddress: result.FormattedAddress,
		City:             component(result.AddressComponents, "locality", "administrative_area_level_2"),
		Country:          component(result.AddressComponents, "country"),
		Coordinates: providers.Coordinates{
			Latitude:  result.Geometry.Location.Lat,
			Longitude: result.Geometry.Location.Lng,
		},
	}, nil
}

func (g *GoogleGeolocationProvider) doGeocodeRequest(ctx context.Context, params url.Values) (*googleGeocodeResponse, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("google maps api key is required")
	}

	params.Set("key", g.apiKey)
	reqURL := fmt.Sprintf("%s?%s", g.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("geocode request returned status %d", resp.StatusCode)
	}

	var payload googleGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode geocode response: %w", err)
	}

	switch {
	case payload.Status == "ZERO_RESULTS", payload.Status == "OK" && len(payload.Results) == 0:
		return nil, providers.ErrAddressNotFound
	case payload.Status != "OK":
		if payload.ErrorMessage != "" {
			return nil, fmt.Errorf("geocode request failed: %s - %s", payload.Status, payload.ErrorMessage)
		}
		return nil, fmt.Errorf("geocode request failed: %s", payload.Status)
	}

	return &payload, nil
}

func hashKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func component(components []googleAddressComponent, primary string, fallback ...string) string {
	for _, want := range append([]string{primary}, fallback...) {
		for _, comp := range components {
			if slices.Contains(comp.Types, want) {
				return comp.LongName
			}
		}
	}
	return ""
}

type googleGeocodeResponse struct {
	Status       string                `json:"status"`
	ErrorMessage string                `json:"error_message,omitempty"`
	Results      []googleGeocodeResult `json:"results"`
}

type googleGeocodeResult struct {
	FormattedAddress  string                   `json:"formatted_address"`
	AddressComponents []googleAddressComponent `json:"address_components"`
	Geometry          struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

type googleAddressComponent struct {
	LongName string   `json:"long_name"`
	Types    []string `json:"types"`
}
