package controller

import (
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/format"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/filter"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/types"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/views"
)

const (
	defaultAPILimit = 100
	maxAPILimit     = 1000
	nearbyLimit     = 6
)

// parsePage returns the 1-based page number from the request (default 1, min 1).
func parsePage(r *http.Request) int {
	s := r.URL.Query().Get("page")
	if s == "" {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// parseLimitQuery reads the API "limit" parameter.
func parseLimitQuery(r *http.Request) (limit int, err error) {
	q := r.URL.Query()
	limit = defaultAPILimit
	if s := q.Get("limit"); s != "" {
		n, convErr := strconv.Atoi(s)
		if convErr != nil {
			return 0, errors.New("invalid 'limit' (expected integer)")
		}
		if n <= 0 {
			return 0, errors.New("'limit' must be > 0")
		}
		if n > maxAPILimit {
			return 0, errors.New("'limit' must be <= 1000")
		}
		limit = n
	}
	return limit, nil
}

// parseCoordinates reads lat and lng. Anything missing, malformed or out of
// range reports false so location features are skipped without an error.
func parseCoordinates(q url.Values) (lat, lng float64, ok bool) {
	latS, lngS := strings.TrimSpace(q.Get("lat")), strings.TrimSpace(q.Get("lng"))
	if latS == "" || lngS == "" {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(latS, 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err = strconv.ParseFloat(lngS, 64)
	if err != nil {
		return 0, 0, false
	}
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, false
	}
	return lat, lng, true
}

// buildPageItems returns page numbers and ellipsis for the pagination bar.
func buildPageItems(totalPages, currentPage int, pageURL func(int) string) []views.PaginationItem {
	if totalPages <= 0 {
		return nil
	}
	const window = 2
	show := map[int]bool{1: true, totalPages: true}
	for p := currentPage - window; p <= currentPage+window; p++ {
		if p >= 1 && p <= totalPages {
			show[p] = true
		}
	}
	var items []views.PaginationItem
	prev := 0
	for p := 1; p <= totalPages; p++ {
		if !show[p] {
			continue
		}
		if prev != 0 && p > prev+1 {
			items = append(items, views.PaginationItem{Ellipsis: true})
		}
		items = append(items, views.PaginationItem{Page: p, URL: pageURL(p), Current: p == currentPage})
		prev = p
	}
	return items
}

// pageURLFunc builds directory links that keep the filter state.
func pageURLFunc(st filter.State) func(int) string {
	return func(page int) string {
		q := st.Query()
		if page > 1 {
			q.Set("page", strconv.Itoa(page))
		}
		if len(q) == 0 {
			return "/stations"
		}
		return "/stations?" + q.Encode()
	}
}

func buildPagination(p filter.Page, st filter.State) views.Pagination {
	pageURL := pageURLFunc(st)
	return views.Pagination{
		Current:    p.Current,
		TotalPages: p.TotalPages,
		HasPrev:    p.HasPrev(),
		HasNext:    p.HasNext(),
		PrevURL:    pageURL(p.Current - 1),
		NextURL:    pageURL(p.Current + 1),
		Items:      buildPageItems(p.TotalPages, p.Current, pageURL),
	}
}

func buildResults(stations []types.Station, st filter.State, page int, clock clockwork.Clock) views.ResultsData {
	p := filter.Paginate(filter.Apply(stations, st), page, filter.PageSize)
	cards := make([]views.StationCard, 0, len(p.Stations))
	for _, s := range p.Stations {
		cards = append(cards, views.NewStationCard(s, st.FuelType, clock))
	}
	return views.ResultsData{
		Cards:      cards,
		Total:      p.Total,
		Fuel:       st.FuelType.Label(),
		Pagination: buildPagination(p, st),
	}
}

func fuelOptions(selected types.FuelType) []views.Option {
	out := make([]views.Option, 0, len(types.FuelTypes))
	for _, ft := range types.FuelTypes {
		out = append(out, views.Option{Value: string(ft), Label: ft.Label(), Selected: ft == selected})
	}
	return out
}

func buildFilterBar(stations []types.Station, st filter.State) views.FilterBar {
	facets := filter.BuildFacets(stations)
	bar := views.FilterBar{
		Search: st.Search,
		Fuels:  fuelOptions(st.FuelType),
		Active: st.Active(),
	}
	for _, b := range facets.Brands {
		bar.Brands = append(bar.Brands, views.Option{Value: b, Label: b, Selected: b == st.Brand})
	}
	for _, s := range facets.Suburbs {
		bar.Suburbs = append(bar.Suburbs, views.Option{Value: s, Label: s, Selected: s == st.Suburb})
	}
	for _, k := range filter.SortKeys {
		bar.Sorts = append(bar.Sorts, views.Option{Value: string(k), Label: k.Label(), Selected: k == st.SortBy})
	}
	if st.MaxPrice != nil {
		bar.MaxPrice = strconv.FormatFloat(*st.MaxPrice, 'f', -1, 64)
	}
	return bar
}

func nearbyCards(list []types.StationWithDistance, fuel types.FuelType, clock clockwork.Clock) []views.StationCard {
	cards := make([]views.StationCard, 0, len(list))
	for _, s := range list {
		card := views.NewStationCard(s.Station, fuel, clock)
		card.Distance = format.Distance(s.DistanceKm)
		cards = append(cards, card)
	}
	return cards
}

// parseFuel returns the requested fuel type or unleaded.
func parseFuel(q url.Values) types.FuelType {
	if ft, err := types.ParseFuelType(q.Get("fuel")); err == nil {
		return ft
	}
	return types.Unleaded
}
