package geocoding

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"googlemaps.github.io/maps"
)

type ProviderType string

const (
	ProviderTypeNone   ProviderType = "none"
	ProviderTypeMapbox ProviderType = "mapbox"
	ProviderTypeGoogle ProviderType = "google"
)

type ProviderConfig struct {
	Type    ProviderType
	APIKey  string
	Timeout time.Duration
	// RateLimit is requests per second for the Google client; 0 keeps the library default.
	RateLimit int
	Logger    *slog.Logger
}

// NewProvider builds the configured provider. ProviderTypeNone yields Nop.
func NewProvider(config ProviderConfig) (Provider, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	switch config.Type {
	case ProviderTypeNone, "":
		return Nop{}, nil
	case ProviderTypeMapbox:
		if config.APIKey == "" {
			return nil, errors.New("API key is required for Mapbox provider")
		}
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		return NewMapboxProvider(config.APIKey, timeout, config.Logger), nil
	case ProviderTypeGoogle:
		return newGoogleProvider(config)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.Type)
	}
}

func newGoogleProvider(config ProviderConfig) (Provider, error) {
	if config.APIKey == "" {
		return nil, errors.New("API key is required for Google provider")
	}
	opts := []maps.ClientOption{maps.WithAPIKey(config.APIKey)}
	if config.RateLimit > 0 {
		opts = append(opts, maps.WithRateLimit(config.RateLimit))
	}
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
	}
	return NewGoogleProvider(client, config.Logger), nil
}
