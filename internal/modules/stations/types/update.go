package types

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// TopicPattern is the MQTT subscription matching every station's price updates.
const TopicPattern = "prices/+/update"

// PriceUpdate is one fuel price change published by the price feed.
// A nil PriceCents withdraws the price.
type PriceUpdate struct {
	StationID  int       `json:"stationId"`
	FuelType   FuelType  `json:"fuelType"`
	PriceCents *float64  `json:"priceCents"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Topic is the MQTT topic the update is published on.
func (u PriceUpdate) Topic() string {
	return fmt.Sprintf("prices/%d/update", u.StationID)
}

func (u PriceUpdate) Validate() error {
	var errs []error
	if u.StationID <= 0 {
		errs = append(errs, fmt.Errorf("invalid station id %d", u.StationID))
	}
	if _, err := ParseFuelType(string(u.FuelType)); err != nil {
		errs = append(errs, err)
	}
	if p := u.PriceCents; p != nil && (math.IsNaN(*p) || math.IsInf(*p, 0) || *p < 0) {
		errs = append(errs, fmt.Errorf("invalid price %v", *p))
	}
	if u.UpdatedAt.IsZero() {
		errs = append(errs, errors.New("missing updatedAt"))
	}
	return errors.Join(errs...)
}

// SamePrice reports whether two updates carry the same price for the same station and fuel.
func (u PriceUpdate) SamePrice(o PriceUpdate) bool {
	if u.StationID != o.StationID || u.FuelType != o.FuelType {
		return false
	}
	if u.PriceCents == nil || o.PriceCents == nil {
		return u.PriceCents == nil && o.PriceCents == nil
	}
	return *u.PriceCents == *o.PriceCents
}
