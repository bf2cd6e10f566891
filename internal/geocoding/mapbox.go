package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const mapboxBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// melbourneProximity biases results towards central Melbourne (lon,lat).
const melbourneProximity = "144.9631,-37.8136"

// MapboxProvider implements Provider with the Mapbox forward geocoding API,
// restricted to Australian addresses.
type MapboxProvider struct {
	token      string
	httpClient *http.Client
	baseURL    string
	log        *slog.Logger
}

func NewMapboxProvider(token string, timeout time.Duration, log *slog.Logger) *MapboxProvider {
	return &MapboxProvider{
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    mapboxBaseURL,
		log:        log,
	}
}

func (p *MapboxProvider) Geocode(ctx context.Context, address string) (*Coordinates, error) {
	p.log.DebugContext(ctx, "geocoding using mapbox", "address", address)

	u := fmt.Sprintf("%s/%s.json", p.baseURL, url.PathEscape(address))
	params := url.Values{
		"access_token": {p.token},
		"limit":        {"1"},
		"country":      {"au"},
		"proximity":    {melbourneProximity},
		"types":        {"address,poi,place,locality,postcode"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mapbox geocode request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mr mapboxResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(mr.Features) == 0 || len(mr.Features[0].Center) != 2 {
		return nil, ErrEmptyResponse
	}
	center := mr.Features[0].Center
	return &Coordinates{Longitude: center[0], Latitude: center[1]}, nil
}

type mapboxResponse struct {
	Features []mapboxFeature `json:"features"`
}

type mapboxFeature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Relevance float64   `json:"relevance"`
}
