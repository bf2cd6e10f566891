package geocoding

import (
	"context"
	"fmt"
	"log/slog"

	"googlemaps.github.io/maps"
)

// GoogleProvider implements Provider with the Google Maps Geocoding API.
type GoogleProvider struct {
	client GoogleAPIClient
	log    *slog.Logger
}

// GoogleAPIClient is the part of *maps.Client the provider uses.
type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

func NewGoogleProvider(client GoogleAPIClient, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, log: log}
}

func (gp *GoogleProvider) Geocode(ctx context.Context, address string) (*Coordinates, error) {
	gp.log.DebugContext(ctx, "geocoding using google maps", "address", address)

	req := maps.GeocodingRequest{
		Address:    address,
		Region:     "au",
		Components: map[maps.Component]string{maps.ComponentCountry: "AU"},
	}
	res, err := gp.client.Geocode(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode address: %w", err)
	}
	if len(res) == 0 {
		return nil, ErrEmptyResponse
	}
	loc := res[0].Geometry.Location
	return &Coordinates{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}
