package geolocation

import (
	"context"
	"sort"
	"strings"

	"github.com/zatekoja/localdiscovery/internal/domain/providers"
)

// MockGeolocationProvider resolves a fixed set of city names. It backs local
// runs with GEOLOCATION_PROVIDER=mock.
type MockGeolocationProvider struct {
	cities map[string]city
}

type city struct {
	name   string
	coords providers.Coordinates
}

// NewMockGeolocationProvider creates a new mock geolocation provider
func NewMockGeolocationProvider() providers.GeolocationProvider {
	return &MockGeolocationProvider{cities: map[string]city{
		"new york":    {"New York", providers.Coordinates{Latitude: 40.7128, Longitude: -74.0060}},
		"los angeles": {"Los Angeles", providers.Coordinates{Latitude: 34.0522, Longitude: -118.2437}},
		"chicago":     {"Chicago", providers.Coordinates{Latitude: 41.8781, Longitude: -87.6298}},
		"london":      {"London", providers.Coordinates{Latitude: 51.5072, Longitude: -0.1276}},
		"lagos":       {"Lagos", providers.Coordinates{Latitude: 6.5244, Longitude: 3.3792}},
		"abuja":       {"Abuja", providers.Coordinates{Latitude: 9.0765, Longitude: 7.3986}},
	}}
}

// Geocode returns the coordinates of the first known city named in address
func (m *MockGeolocationProvider) Geocode(_ context.Context, address string) (*providers.GeocodedAddress, error) {
	lower := strings.ToLower(address)

	names := make([]string, 0, len(m.cities))
	for name := range m.cities {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if strings.Contains(lower, name) {
			return &providers.GeocodedAddress{
				FormattedAddress: strings.TrimSpace(address),
				City:             m.cities[name].name,
				Coordinates:      m.cities[name].coords,
			}, nil
		}
	}
	return nil, providers.ErrAddressNotFound
}
