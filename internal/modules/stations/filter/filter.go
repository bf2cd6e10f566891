// Package filter narrows and orders station lists for the directory, the map and the API.
package filter

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/format"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/types"
)

type SortKey string

const (
	SortName      SortKey = "name"
	SortSuburb    SortKey = "suburb"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
)

// SortKeys lists the sort options in filter bar order.
var SortKeys = []SortKey{SortName, SortSuburb, SortPriceLow, SortPriceHigh}

func (k SortKey) IsPrice() bool {
	return k == SortPriceLow || k == SortPriceHigh
}

func (k SortKey) Label() string {
	switch k {
	case SortSuburb:
		return "Suburb"
	case SortPriceLow:
		return "Price: low to high"
	case SortPriceHigh:
		return "Price: high to low"
	default:
		return "Name"
	}
}

// AllValue in the brand or suburb field disables that filter.
const AllValue = "all"

const maxSearchLen = 100

type State struct {
	Search   string
	FuelType types.FuelType
	Brand    string
	Suburb   string
	SortBy   SortKey
	MaxPrice *float64
}

func DefaultState() State {
	return State{FuelType: types.Unleaded, SortBy: SortName}
}

func (s State) normalized() State {
	s.Search = strings.TrimSpace(s.Search)
	if _, err := types.ParseFuelType(string(s.FuelType)); err != nil {
		s.FuelType = types.Unleaded
	}
	switch s.SortBy {
	case SortName, SortSuburb, SortPriceLow, SortPriceHigh:
	default:
		s.SortBy = SortName
	}
	if strings.EqualFold(s.Brand, AllValue) {
		s.Brand = ""
	}
	if strings.EqualFold(s.Suburb, AllValue) {
		s.Suburb = ""
	}
	if s.MaxPrice != nil && !validCeiling(*s.MaxPrice) {
		s.MaxPrice = nil
	}
	return s
}

func validCeiling(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// fuelFiltered reports whether stations lacking a price for the selected fuel
// are dropped. That only happens when the price matters to the result.
func (s State) fuelFiltered() bool {
	return s.SortBy.IsPrice() || s.MaxPrice != nil
}

// Apply returns the stations matching st in st's order. The input slice is not modified.
func Apply(stations []types.Station, st State) []types.Station {
	st = st.normalized()
	needle := strings.ToLower(st.Search)

	out := make([]types.Station, 0, len(stations))
	for _, s := range stations {
		if needle != "" && !matchesSearch(s, needle) {
			continue
		}
		if st.Brand != "" && s.Brand != st.Brand {
			continue
		}
		if st.Suburb != "" && s.Suburb != st.Suburb {
			continue
		}
		if st.fuelFiltered() {
			price, ok := s.Prices.Price(st.FuelType)
			if !ok {
				continue
			}
			if st.MaxPrice != nil && price > *st.MaxPrice {
				continue
			}
		}
		out = append(out, s)
	}

	sort.SliceStable(out, less(out, st))
	return out
}

func matchesSearch(s types.Station, needle string) bool {
	for _, field := range []string{s.Name, s.Address, s.Suburb, s.Brand} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func less(list []types.Station, st State) func(i, j int) bool {
	byName := func(a, b types.Station) bool {
		an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if an != bn {
			return an < bn
		}
		return a.ID < b.ID
	}
	return func(i, j int) bool {
		a, b := list[i], list[j]
		switch st.SortBy {
		case SortSuburb:
			as, bs := strings.ToLower(a.Suburb), strings.ToLower(b.Suburb)
			if as != bs {
				return as < bs
			}
			return byName(a, b)
		case SortPriceLow, SortPriceHigh:
			ap, aok := a.Prices.Price(st.FuelType)
			bp, bok := b.Prices.Price(st.FuelType)
			switch {
			case aok && !bok:
				return true
			case !aok && bok:
				return false
			case aok && bok && ap != bp:
				if st.SortBy == SortPriceLow {
					return ap < bp
				}
				return ap > bp
			}
			return byName(a, b)
		default:
			return byName(a, b)
		}
	}
}

// ParseState reads the filter from query parameters. Unknown or malformed
// values fall back to their defaults.
func ParseState(q url.Values) State {
	st := DefaultState()
	st.Search = format.Sanitize(q.Get("search"), maxSearchLen)
	if ft, err := types.ParseFuelType(q.Get("fuel")); err == nil {
		st.FuelType = ft
	}
	st.Brand = strings.TrimSpace(q.Get("brand"))
	st.Suburb = strings.TrimSpace(q.Get("suburb"))
	st.SortBy = SortKey(q.Get("sort"))
	if s := strings.TrimSpace(q.Get("max")); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil && validCeiling(v) {
			st.MaxPrice = &v
		}
	}
	return st.normalized()
}

// Query encodes st, leaving out defaults, so links stay short.
func (s State) Query() url.Values {
	s = s.normalized()
	q := url.Values{}
	if s.Search != "" {
		q.Set("search", s.Search)
	}
	if s.FuelType != types.Unleaded {
		q.Set("fuel", string(s.FuelType))
	}
	if s.Brand != "" {
		q.Set("brand", s.Brand)
	}
	if s.Suburb != "" {
		q.Set("suburb", s.Suburb)
	}
	if s.SortBy != SortName {
		q.Set("sort", string(s.SortBy))
	}
	if s.MaxPrice != nil {
		q.Set("max", strconv.FormatFloat(*s.MaxPrice, 'f', -1, 64))
	}
	return q
}

// Active reports whether any filter narrows the list.
func (s State) Active() bool {
	s = s.normalized()
	return s.Search != "" || s.Brand != "" || s.Suburb != "" || s.MaxPrice != nil
}

// Facets are the distinct values offered by the filter bar.
type Facets struct {
	Brands  []string
	Suburbs []string
}

func BuildFacets(stations []types.Station) Facets {
	return Facets{
		Brands:  distinct(stations, func(s types.Station) string { return s.Brand }),
		Suburbs: distinct(stations, func(s types.Station) string { return s.Suburb }),
	}
}

func distinct(stations []types.Station, field func(types.Station) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range stations {
		v := strings.TrimSpace(field(s))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
