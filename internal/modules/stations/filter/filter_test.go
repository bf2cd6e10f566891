package filter

import (
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/types"
)

func ptr(f float64) *float64 { return &f }

func sample() []types.Station {
	return []types.Station{
		{ID: 1, Name: "Shell Coles Express", Brand: "Shell", Suburb: "Richmond", Address: "120 Swan St",
			Prices: types.Prices{types.Unleaded: ptr(189.9), types.Diesel: ptr(195.9)}},
		{ID: 2, Name: "BP Connect", Brand: "BP", Suburb: "Carlton", Address: "10 Melbourne St",
			Prices: types.Prices{types.Unleaded: ptr(179.9)}},
		{ID: 3, Name: "7-Eleven", Brand: "7-Eleven", Suburb: "Richmond", Address: "5 Church St",
			Prices: types.Prices{types.Unleaded: nil, types.Diesel: ptr(185.0)}},
		{ID: 4, Name: "United", Brand: "United", Suburb: "North Melbourne", Address: "77 Errol St",
			Prices: types.Prices{types.Unleaded: ptr(179.9)}},
		{ID: 5, Name: "ampol foodary", Brand: "Ampol", Suburb: "Carlton", Address: "200 Lygon St"},
	}
}

func ids(stations []types.Station) []int {
	out := make([]int, len(stations))
	for i, s := range stations {
		out[i] = s.ID
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  []int
	}{
		{name: "default sorts by name", state: DefaultState(), want: []int{3, 5, 2, 1, 4}},
		{name: "suburb sort", state: State{SortBy: SortSuburb}, want: []int{5, 2, 4, 3, 1}},
		{name: "suburb filter", state: State{Suburb: "Richmond"}, want: []int{3, 1}},
		{name: "brand filter", state: State{Brand: "BP"}, want: []int{2}},
		{name: "all brand is no filter", state: State{Brand: "all", Suburb: "ALL"}, want: []int{3, 5, 2, 1, 4}},
		{name: "price low drops missing", state: State{SortBy: SortPriceLow, FuelType: types.Unleaded}, want: []int{2, 4, 1}},
		{name: "price high", state: State{SortBy: SortPriceHigh, FuelType: types.Diesel}, want: []int{1, 3}},
		{name: "max price without price sort", state: State{MaxPrice: ptr(180)}, want: []int{2, 4}},
		{name: "search is case insensitive", state: State{Search: "  SWAN "}, want: []int{1}},
		{name: "search matches brand", state: State{Search: "ampol"}, want: []int{5}},
		{name: "search with no match", state: State{Search: "Geelong"}, want: []int{}},
		{name: "invalid values fall back", state: State{SortBy: "random", FuelType: "e10", MaxPrice: ptr(-3)}, want: []int{3, 5, 2, 1, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Apply(sample(), tt.state))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Apply ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestApply_doesNotMutateInput(t *testing.T) {
	in := sample()
	before := ids(in)
	_ = Apply(in, State{SortBy: SortPriceHigh})
	if diff := cmp.Diff(before, ids(in)); diff != "" {
		t.Errorf("input reordered (-before +after):\n%s", diff)
	}
}

func TestApply_suburbFilterOnlyReturnsThatSuburb(t *testing.T) {
	for _, suburb := range []string{"Richmond", "Carlton", "North Melbourne", "Nowhere"} {
		for _, s := range Apply(sample(), State{Suburb: suburb}) {
			if s.Suburb != suburb {
				t.Errorf("suburb filter %q returned station in %q", suburb, s.Suburb)
			}
		}
	}
}

func TestApply_priceLowAscendingMissingLast(t *testing.T) {
	// The comparator itself must order stations without a price last; exercise
	// it directly since Apply already excludes them under a price sort.
	list := sample()
	sortFn := less(list, State{SortBy: SortPriceLow, FuelType: types.Unleaded}.normalized())
	if !sortFn(1, 2) {
		t.Error("priced station should sort before one lacking the price")
	}
	if sortFn(2, 1) {
		t.Error("station lacking the price should not sort first")
	}

	got := Apply(sample(), State{SortBy: SortPriceLow, FuelType: types.Unleaded})
	prev := -1.0
	for _, s := range got {
		p, ok := s.Prices.Price(types.Unleaded)
		if !ok {
			t.Fatalf("station %d lacks price in price-sorted list", s.ID)
		}
		if p < prev {
			t.Errorf("price %v after %v; want ascending", p, prev)
		}
		prev = p
	}
}

func TestApply_searchMelbourne(t *testing.T) {
	got := Apply(sample(), State{Search: "Melbourne"})
	if len(got) == 0 {
		t.Fatal("search Melbourne returned nothing")
	}
	for _, s := range got {
		hay := strings.ToLower(s.Name + "|" + s.Address + "|" + s.Suburb + "|" + s.Brand)
		if !strings.Contains(hay, "melbourne") {
			t.Errorf("station %d does not mention melbourne", s.ID)
		}
	}
}

func TestParseState(t *testing.T) {
	q := url.Values{
		"search": {"  <b>Swan</b> St "},
		"fuel":   {"diesel"},
		"brand":  {"Shell"},
		"suburb": {"all"},
		"sort":   {"price-low"},
		"max":    {"199.5"},
	}
	got := ParseState(q)
	want := State{Search: "Swan St", FuelType: types.Diesel, Brand: "Shell", SortBy: SortPriceLow, MaxPrice: ptr(199.5)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseState mismatch (-want +got):\n%s", diff)
	}

	fallback := ParseState(url.Values{"fuel": {"e10"}, "sort": {"cheapest"}, "max": {"abc"}})
	if diff := cmp.Diff(DefaultState(), fallback); diff != "" {
		t.Errorf("ParseState invalid mismatch (-want +got):\n%s", diff)
	}
	if ParseState(url.Values{"max": {"-1"}}).MaxPrice != nil {
		t.Error("negative max accepted")
	}
}

func TestStateQueryRoundTrip(t *testing.T) {
	st := State{Search: "bp", FuelType: types.LPG, Suburb: "Carlton", SortBy: SortPriceHigh, MaxPrice: ptr(120)}
	q := st.Query()
	if got := q.Encode(); got != "fuel=lpg&max=120&search=bp&sort=price-high&suburb=Carlton" {
		t.Errorf("Query = %q", got)
	}
	if diff := cmp.Diff(st, ParseState(q)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if enc := DefaultState().Query().Encode(); enc != "" {
		t.Errorf("default Query = %q; want empty", enc)
	}
	if DefaultState().Active() {
		t.Error("default state Active")
	}
	if !st.Active() {
		t.Error("filtered state not Active")
	}
}

func TestBuildFacets(t *testing.T) {
	f := BuildFacets(sample())
	want := Facets{
		Brands:  []string{"7-Eleven", "Ampol", "BP", "Shell", "United"},
		Suburbs: []string{"Carlton", "North Melbourne", "Richmond"},
	}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("BuildFacets mismatch (-want +got):\n%s", diff)
	}
}

func TestPaginate(t *testing.T) {
	list := make([]types.Station, 50)
	for i := range list {
		list[i].ID = i + 1
	}
	tests := []struct {
		page      int
		wantFirst int
		wantLen   int
		wantPage  int
	}{
		{page: 1, wantFirst: 1, wantLen: 24, wantPage: 1},
		{page: 3, wantFirst: 49, wantLen: 2, wantPage: 3},
		{page: 0, wantFirst: 1, wantLen: 24, wantPage: 1},
		{page: 99, wantFirst: 49, wantLen: 2, wantPage: 3},
	}
	for _, tt := range tests {
		p := Paginate(list, tt.page, PageSize)
		if p.Current != tt.wantPage || len(p.Stations) != tt.wantLen || p.Stations[0].ID != tt.wantFirst {
			t.Errorf("Paginate(page=%d) = page %d len %d first %d; want %d %d %d",
				tt.page, p.Current, len(p.Stations), p.Stations[0].ID, tt.wantPage, tt.wantLen, tt.wantFirst)
		}
		if p.TotalPages != 3 || p.Total != 50 {
			t.Errorf("TotalPages, Total = %d, %d; want 3, 50", p.TotalPages, p.Total)
		}
	}

	empty := Paginate(nil, 2, 0)
	if empty.Current != 1 || empty.TotalPages != 1 || len(empty.Stations) != 0 || empty.HasNext() || empty.HasPrev() {
		t.Errorf("Paginate(nil) = %+v", empty)
	}
}
