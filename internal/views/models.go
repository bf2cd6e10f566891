package views

import (
	"html/template"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/format"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/types"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/theme"
)

// Site is the configuration shared by every page.
type Site struct {
	Name    string
	BaseURL string
}

// Meta carries the layout's head, navigation and theme data.
type Meta struct {
	SiteName    string
	Title       string
	Description string
	Canonical   string
	// Active is the nav key of the current section ("stations", "blog", ...).
	Active      string
	Theme       theme.State
	Breadcrumbs []Crumb
	Year        int
}

// Meta builds the page metadata for r.
func (s Site) Meta(r *http.Request, title, description string) Meta {
	return Meta{
		SiteName:    s.Name,
		Title:       title,
		Description: description,
		Canonical:   s.BaseURL + r.URL.Path,
		Theme:       theme.FromContext(r.Context()),
		Year:        time.Now().Year(),
	}
}

type Crumb struct {
	Label string
	URL   string // empty for the current page
}

type NavLink struct {
	Key     string
	Label   string
	URL     string
	Current bool
}

var navLinks = []NavLink{
	{Key: "home", Label: "Home", URL: "/"},
	{Key: "stations", Label: "Stations", URL: "/stations"},
	{Key: "map", Label: "Map", URL: "/map"},
	{Key: "blog", Label: "Blog", URL: "/blog"},
	{Key: "about", Label: "About", URL: "/about"},
	{Key: "contact", Label: "Contact", URL: "/contact"},
}

// Nav returns the navigation links with the active section marked.
func (m Meta) Nav() []NavLink {
	out := make([]NavLink, len(navLinks))
	for i, l := range navLinks {
		l.Current = l.Key == m.Active
		out[i] = l
	}
	return out
}

// IsDark is used by the theme toggle label.
func (m Meta) IsDark() bool {
	return m.Theme.Resolved == theme.Dark
}

type PriceRow struct {
	Fuel  string
	Price string
	Cents string
	Known bool
}

// StationCard is the view model of one station in lists and on the detail page.
type StationCard struct {
	ID       int
	Name     string
	Brand    string
	Logo     string
	Address  string
	Suburb   string
	Postcode string
	URL      string
	// Fuel and Price describe the headline price for the selected fuel type.
	Fuel     string
	Price    string
	Known    bool
	Prices   []PriceRow
	Updated  string
	Verified bool
	Distance string
}

// NewStationCard formats s for display with fuel as the headline price.
func NewStationCard(s types.Station, fuel types.FuelType, clock clockwork.Clock) StationCard {
	headline := s.Prices.Get(fuel)
	card := StationCard{
		ID:       s.ID,
		Name:     s.Name,
		Brand:    s.Brand,
		Logo:     s.Logo,
		Address:  s.Address,
		Suburb:   s.Suburb,
		Postcode: s.Postcode,
		URL:      "/stations/" + format.StationSlug(s.ID, s.Name, s.Suburb),
		Fuel:     fuel.Label(),
		Price:    format.Price(headline),
		Known:    headline != nil,
		Verified: s.Verified,
		Updated:  format.Unknown,
	}
	for _, ft := range types.FuelTypes {
		p := s.Prices.Get(ft)
		card.Prices = append(card.Prices, PriceRow{
			Fuel:  ft.Label(),
			Price: format.Price(p),
			Cents: format.Cents(p),
			Known: p != nil,
		})
	}
	if t, ok := format.ParseTimestamp(s.LastUpdated); ok {
		card.Updated = format.RelativeTime(clock, t)
	}
	return card
}

// Option is one choice of a select in the filter bar.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

type FilterBar struct {
	Search   string
	MaxPrice string
	Fuels    []Option
	Brands   []Option
	Suburbs  []Option
	Sorts    []Option
	Active   bool
}

// PaginationItem is one entry in the pagination bar: either a page number or an ellipsis.
type PaginationItem struct {
	Page     int
	URL      string
	Current  bool
	Ellipsis bool
}

type Pagination struct {
	Current    int
	TotalPages int
	HasPrev    bool
	HasNext    bool
	PrevURL    string
	NextURL    string
	Items      []PaginationItem
}

// ResultsData is the view model for the results partial.
type ResultsData struct {
	Cards      []StationCard
	Total      int
	Fuel       string
	Pagination Pagination
}

type DirectoryData struct {
	Meta    Meta
	Filter  FilterBar
	Results ResultsData
}

type CheapestRow struct {
	Fuel    string
	Price   string
	Average string
	Station *StationCard
}

type HomeData struct {
	Meta         Meta
	StationCount int
	Cheapest     []CheapestRow
	Featured     []StationCard
	Posts        []PostSummary
}

type StationData struct {
	Meta        Meta
	Station     StationCard
	MapURL      string
	HasLocation bool
	Latitude    float64
	Longitude   float64
	Nearby      []StationCard
}

// MapMarker is serialised into the map page for the client-side map.
type MapMarker struct {
	ID    int      `json:"id"`
	Name  string   `json:"name"`
	URL   string   `json:"url"`
	Lat   float64  `json:"lat"`
	Lng   float64  `json:"lng"`
	Price *float64 `json:"price"`
}

type MapData struct {
	Meta    Meta
	Markers []MapMarker
	MapURL  string
	Fuels   []Option
	// Near is the place searched for, echoed into the form.
	Near string
	// Located is set when a valid origin was given; Nearby then holds the closest stations.
	Located       bool
	Origin        string
	Nearby        []StationCard
	LocationError string
}

type PostSummary struct {
	Slug    string
	Title   string
	Summary string
	Date    string
	Author  string
	Tags    []string
	URL     string
}

type BlogIndexData struct {
	Meta  Meta
	Posts []PostSummary
}

type ArticleData struct {
	Meta Meta
	Post PostSummary
	Body template.HTML
}

type StaticData struct {
	Meta Meta
}

type ContactForm struct {
	Name    string
	Email   string
	Subject string
	Message string
}

type ContactData struct {
	Meta   Meta
	Form   ContactForm
	Errors map[string]string
	Sent   bool
	// RetryAfter is shown when the client is throttled.
	RetryAfter string
}

type ErrorData struct {
	Meta    Meta
	Message string
}
