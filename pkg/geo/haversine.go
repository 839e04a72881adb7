// Package geo holds the great-circle math shared by the retrieval pipeline
// and the store adapters.
package geo

import (
	"encoding/json"
	"math"
)

// EarthRadiusKm is the mean Earth radius used by every distance computation
const EarthRadiusKm = 6371.0

// Point is a geo-point serialized as [longitude, latitude]
type Point struct {
	Lng float64
	Lat float64
}

// NewPoint returns a point from latitude and longitude, in that order
func NewPoint(lat, lng float64) Point {
	return Point{Lng: lng, Lat: lat}
}

// Valid reports whether both coordinates are finite and within range
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// MarshalJSON encodes the point as [lng, lat]
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Lng, p.Lat})
}

// UnmarshalJSON accepts [lng, lat]
func (p *Point) UnmarshalJSON(data []byte) error {
	var pair [2]float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	p.Lng, p.Lat = pair[0], pair[1]
	return nil
}

// HaversineKm returns the great-circle distance in kilometers between two
// coordinates given in degrees.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	if a > 1 {
		a = 1
	}

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(a))
}

// Distance returns the distance between a and b in kilometers, or +Inf when
// either point is missing or malformed.
func Distance(a, b *Point) float64 {
	if a == nil || b == nil || !a.Valid() || !b.Valid() {
		return math.Inf(1)
	}
	return HaversineKm(a.Lat, a.Lng, b.Lat, b.Lng)
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
