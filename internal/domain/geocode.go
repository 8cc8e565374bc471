package domain

import (
	"context"
	"log/slog"
)

// GeocodeCity is appended to canonical street addresses before forward geocoding.
const GeocodeCity = "Chicago, IL"

// EnrichWithGeocoding fills in the geocoded position of a tree request.
// Requests that already have coordinates are returned unchanged. Any other
// request comes back with GeocodeAttempted set, so a failed or empty lookup
// is not repeated on the next backfill pass. The returned bool reports
// whether the request changed.
func EnrichWithGeocoding(ctx context.Context, req TreeRequest, geocoder Geocoder, logger *slog.Logger) (TreeRequest, bool) {
	if geocoder == nil {
		return req, false
	}
	if req.Latitude != nil && req.Longitude != nil {
		return req, false
	}

	result, err := geocoder.ForwardGeocode(ctx, req.StreetAddress, GeocodeCity)
	if err != nil {
		logger.Warn("forward geocoding failed",
			"id", req.ID,
			"sr_number", req.SRNumber,
			"address", req.StreetAddress,
			"error", err,
		)
		if ctx.Err() != nil {
			// Cancelled lookups are retried next pass.
			return req, false
		}
		req.GeocodeAttempted = true
		return req, true
	}

	req.GeocodeAttempted = true
	if !result.Found() {
		logger.Info("no geocoding match", "id", req.ID, "address", req.StreetAddress)
		return req, true
	}

	lat, lon := result.Lat, result.Lon
	req.Latitude = &lat
	req.Longitude = &lon
	return req, true
}
