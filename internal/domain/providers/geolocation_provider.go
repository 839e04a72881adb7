package providers

import (
	"context"
	"errors"
)

// ErrAddressNotFound is returned by Geocode when the address cannot be resolved
var ErrAddressNotFound = errors.New("address not found")

// GeolocationProvider defines the interface for geolocation services
type GeolocationProvider interface {
	// Geocode converts an address to coordinates
	Geocode(ctx context.Context, address string) (*GeocodedAddress, error)
}

// Coordinates represents geographical coordinates
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// GeocodedAddress represents a geocoded address
type GeocodedAddress struct {
	FormattedAddress string
	City             string
	Country          string
	Coordinates      Coordinates
}
