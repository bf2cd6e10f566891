package types

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

type FuelType string

const (
	Unleaded  FuelType = "unleaded"
	Diesel    FuelType = "diesel"
	Premium95 FuelType = "premium95"
	Premium98 FuelType = "premium98"
	LPG       FuelType = "lpg"
)

// FuelTypes lists every fuel type in display order.
var FuelTypes = []FuelType{Unleaded, Diesel, Premium95, Premium98, LPG}

var ErrUnknownFuelType = errors.New("unknown fuel type")

func ParseFuelType(s string) (FuelType, error) {
	ft := FuelType(s)
	for _, known := range FuelTypes {
		if ft == known {
			return ft, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFuelType, s)
}

// Label is the human name shown on cards and the filter bar.
func (ft FuelType) Label() string {
	switch ft {
	case Unleaded:
		return "Unleaded 91"
	case Diesel:
		return "Diesel"
	case Premium95:
		return "Premium 95"
	case Premium98:
		return "Premium 98"
	case LPG:
		return "LPG"
	default:
		return string(ft)
	}
}

// Prices maps fuel type to cents per litre. A missing key, a nil value, or a
// negative or NaN value all mean the price is unknown.
type Prices map[FuelType]*float64

func validPrice(p *float64) bool {
	return p != nil && !math.IsNaN(*p) && !math.IsInf(*p, 0) && *p >= 0
}

func (p Prices) Price(ft FuelType) (float64, bool) {
	v := p[ft]
	if !validPrice(v) {
		return 0, false
	}
	return *v, true
}

// Lowest is the cheapest known price across all fuel types.
func (p Prices) Lowest() (float64, bool) {
	var (
		lowest float64
		found  bool
	)
	for _, v := range p {
		if !validPrice(v) {
			continue
		}
		if !found || *v < lowest {
			lowest, found = *v, true
		}
	}
	return lowest, found
}

// Get returns the price as a pointer for templates; unknown prices are nil.
func (p Prices) Get(ft FuelType) *float64 {
	v, ok := p.Price(ft)
	if !ok {
		return nil
	}
	return &v
}

type Station struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Brand       string  `json:"brand"`
	Logo        string  `json:"logo,omitempty"`
	Address     string  `json:"address"`
	Suburb      string  `json:"suburb"`
	Postcode    string  `json:"postcode"`
	Region      string  `json:"region"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Prices      Prices  `json:"prices"`
	LastUpdated string  `json:"lastUpdated"`
	Verified    bool    `json:"verified"`
}

// HasLocation reports whether the station has usable coordinates.
func (s Station) HasLocation() bool {
	return !(s.Latitude == 0 && s.Longitude == 0) &&
		s.Latitude >= -90 && s.Latitude <= 90 &&
		s.Longitude >= -180 && s.Longitude <= 180
}

// AveragePrice is the mean of the known prices for ft, rounded to one decimal.
func AveragePrice(stations []Station, ft FuelType) (float64, bool) {
	sum := decimal.Zero
	n := 0
	for _, s := range stations {
		if v, ok := s.Prices.Price(ft); ok {
			sum = sum.Add(decimal.NewFromFloat(v))
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	avg, _ := sum.Div(decimal.NewFromInt(int64(n))).Round(1).Float64()
	return avg, true
}

// LowestPrice is the cheapest known price for ft and the station offering it.
func LowestPrice(stations []Station, ft FuelType) (Station, float64, bool) {
	var (
		best  Station
		price float64
		found bool
	)
	for _, s := range stations {
		v, ok := s.Prices.Price(ft)
		if !ok {
			continue
		}
		if !found || v < price || (v == price && s.Name < best.Name) {
			best, price, found = s, v, true
		}
	}
	return best, price, found
}

// FuelStats summarises one fuel type across a list of stations.
type FuelStats struct {
	FuelType FuelType `json:"fuelType"`
	Stations int      `json:"stations"`
	Average  *float64 `json:"average"`
	Lowest   *float64 `json:"lowest"`
}

func Stats(stations []Station) []FuelStats {
	out := make([]FuelStats, 0, len(FuelTypes))
	for _, ft := range FuelTypes {
		st := FuelStats{FuelType: ft}
		for _, s := range stations {
			if _, ok := s.Prices.Price(ft); ok {
				st.Stations++
			}
		}
		if avg, ok := AveragePrice(stations, ft); ok {
			st.Average = &avg
		}
		if _, low, ok := LowestPrice(stations, ft); ok {
			st.Lowest = &low
		}
		out = append(out, st)
	}
	return out
}

const earthRadiusKm = 6371.0

// DistanceKm is the great-circle distance between two points.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

type StationWithDistance struct {
	Station
	DistanceKm float64
}

// Nearest returns up to limit located stations ordered by distance from the point.
func Nearest(stations []Station, lat, lng float64, limit int) []StationWithDistance {
	out := make([]StationWithDistance, 0, len(stations))
	for _, s := range stations {
		if !s.HasLocation() {
			continue
		}
		out = append(out, StationWithDistance{Station: s, DistanceKm: DistanceKm(lat, lng, s.Latitude, s.Longitude)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
