package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Found reports whether the provider returned coordinates.
func (r GeocodingResult) Found() bool {
	return r.Lat != 0 || r.Lon != 0
}

// Geocoder resolves canonical Chicago street addresses to coordinates.
type Geocoder interface {
	// ForwardGeocode converts a street address within city to coordinates.
	ForwardGeocode(ctx context.Context, address, city string) (GeocodingResult, error)
}
