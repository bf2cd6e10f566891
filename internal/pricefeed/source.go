// Package pricefeed polls an upstream fuel price source and publishes changed
// prices to the MQTT broker.
package pricefeed

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/format"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/types"
)

// Source returns the current price of every site and fuel it knows about.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]types.PriceUpdate, error)
}

// unavailablePrice is the sentinel upstream uses for a fuel a site has stopped selling.
const unavailablePrice = 9999

var fuelIDs = map[int]types.FuelType{
	2: types.Unleaded,
	3: types.Diesel,
	4: types.LPG,
	5: types.Premium95,
	8: types.Premium98,
}

// FuelTypeForID maps an upstream fuel id. Ids for fuels the site does not list
// (e.g. e10, e85, truck diesel) report false.
func FuelTypeForID(id int) (types.FuelType, bool) {
	ft, ok := fuelIDs[id]
	return ft, ok
}

// tenthsToCents converts an upstream price in tenths of a cent per litre.
// The unavailable sentinel and negative values become nil.
func tenthsToCents(tenths decimal.Decimal) *float64 {
	if tenths.IsNegative() || tenths.GreaterThanOrEqual(decimal.NewFromInt(unavailablePrice)) {
		return nil
	}
	cents, _ := tenths.Shift(-1).Round(1).Float64()
	return &cents
}

// record is the upstream row shape shared by the API and the DynamoDB mirror.
type record struct {
	SiteID      int
	FuelID      int
	Price       decimal.Decimal
	Transaction string
}

// toUpdates keeps the listed fuels, converts prices and stamps each update
// with its transaction time, or now when that is missing.
func toUpdates(records []record, now time.Time) []types.PriceUpdate {
	out := make([]types.PriceUpdate, 0, len(records))
	for _, r := range records {
		ft, ok := FuelTypeForID(r.FuelID)
		if !ok || r.SiteID <= 0 {
			continue
		}
		at, ok := format.ParseTimestamp(r.Transaction)
		if !ok {
			at = now
		}
		out = append(out, types.PriceUpdate{
			StationID:  r.SiteID,
			FuelType:   ft,
			PriceCents: tenthsToCents(r.Price),
			UpdatedAt:  at.UTC(),
		})
	}
	return out
}
