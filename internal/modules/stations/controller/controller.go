package controller

import (
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/geocoding"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/types"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/staticmap"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/views"
)

// StationService is the read side of the stations service used by the handlers.
type StationService interface {
	Stations() ([]types.Station, error)
	Station(id int) (types.Station, error)
}

type StationsController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type Options struct {
	Site     views.Site
	Geocoder geocoding.Provider
	Maps     *staticmap.Builder
	Clock    clockwork.Clock
	// GeocodeTimeout bounds the map page's place lookup.
	GeocodeTimeout time.Duration
}

type stationsControllerImpl struct {
	service        StationService
	site           views.Site
	geocoder       geocoding.Provider
	maps           *staticmap.Builder
	clock          clockwork.Clock
	geocodeTimeout time.Duration
}

func NewStationsController(service StationService, opts Options) StationsController {
	if opts.Geocoder == nil {
		opts.Geocoder = geocoding.Nop{}
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.GeocodeTimeout <= 0 {
		opts.GeocodeTimeout = 5 * time.Second
	}
	return &stationsControllerImpl{
		service:        service,
		site:           opts.Site,
		geocoder:       opts.Geocoder,
		maps:           opts.Maps,
		clock:          opts.Clock,
		geocodeTimeout: opts.GeocodeTimeout,
	}
}

func (c *stationsControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /stations", c.handleDirectory)
	mux.HandleFunc("GET /directory", c.handleDirectory)
	mux.HandleFunc("GET /stations/results", c.handleResultsPartial)
	mux.HandleFunc("GET /stations/{slug}", c.handleStation)
	mux.HandleFunc("GET /map", c.handleMap)

	mux.HandleFunc("GET /api/v1/stations", c.handleAPIStations)
	mux.HandleFunc("GET /api/v1/stations/{id}", c.handleAPIStation)
	mux.HandleFunc("GET /api/v1/stats", c.handleAPIStats)
}
