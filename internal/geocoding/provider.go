// Package geocoding turns street addresses and place names into coordinates.
package geocoding

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider found no match for the address.
var ErrEmptyResponse = errors.New("geocoder returned no results")

// Coordinates is a point in decimal degrees.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Provider geocodes a free-form address.
type Provider interface {
	Geocode(ctx context.Context, address string) (*Coordinates, error)
}

// Nop is the provider used when geocoding is switched off.
type Nop struct{}

func (Nop) Geocode(context.Context, string) (*Coordinates, error) {
	return nil, ErrEmptyResponse
}
