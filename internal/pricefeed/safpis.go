package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/types"
)

// sitesPricesPath selects every South Australian site (country 21, region level 3, region 4).
const sitesPricesPath = "/Price/GetSitesPrices?countryId=21&geoRegionLevel=3&geoRegionId=4"

// SAFPISSource reads the SA Fuel Pricing Information Scheme API.
type SAFPISSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
	clock   clockwork.Clock
}

func NewSAFPISSource(baseURL, apiKey string, client *http.Client, clock clockwork.Clock) *SAFPISSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SAFPISSource{baseURL: baseURL, apiKey: apiKey, client: client, clock: clock}
}

func (s *SAFPISSource) Name() string { return "safpis" }

type sitesPricesResponse struct {
	SitePrices []struct {
		SiteID             int             `json:"SiteId"`
		FuelID             int             `json:"FuelId"`
		CollectionMethod   string          `json:"CollectionMethod"`
		TransactionDateUTC string          `json:"TransactionDateUtc"`
		Price              decimal.Decimal `json:"Price"`
	} `json:"SitePrices"`
}

func (s *SAFPISSource) Fetch(ctx context.Context) ([]types.PriceUpdate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+sitesPricesPath, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	// The key is the whole header value, "FPDAPI SubscriberToken=...".
	req.Header.Set("Authorization", s.apiKey)
	req.Header.Set("Accept", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get site prices: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("get site prices: status %d: %s", res.StatusCode, body)
	}

	var payload sitesPricesResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode site prices: %w", err)
	}

	records := make([]record, 0, len(payload.SitePrices))
	for _, p := range payload.SitePrices {
		records = append(records, record{
			SiteID:      p.SiteID,
			FuelID:      p.FuelID,
			Price:       p.Price,
			Transaction: p.TransactionDateUTC,
		})
	}
	return toUpdates(records, s.clock.Now()), nil
}
