package controller

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/format"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/geocoding"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/filter"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/repository"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/types"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/staticmap"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/utils"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/views"
)

func (c *stationsControllerImpl) handleDirectory(w http.ResponseWriter, r *http.Request) {
	stations, err := c.service.Stations()
	if err != nil {
		slog.Error("directory: get stations failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stations")
		return
	}
	st := filter.ParseState(r.URL.Query())
	results := buildResults(stations, st, parsePage(r), c.clock)

	// Filter bar and pagination requests only swap the result list.
	if utils.IsHTMX(r) && r.Header.Get("HX-Target") == "results" {
		c.writeResults(w, &results)
		return
	}

	meta := c.site.Meta(r, "Fuel stations", "Compare fuel prices at stations across Melbourne.")
	meta.Active = "stations"
	meta.Breadcrumbs = []views.Crumb{{Label: "Stations"}}
	data := views.DirectoryData{
		Meta:    meta,
		Filter:  buildFilterBar(stations, st),
		Results: results,
	}
	var buf bytes.Buffer
	if err := views.RenderDirectory(&buf, &data); err != nil {
		slog.Error("directory template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteHTML(w, http.StatusOK, &buf)
}

func (c *stationsControllerImpl) handleResultsPartial(w http.ResponseWriter, r *http.Request) {
	stations, err := c.service.Stations()
	if err != nil {
		slog.Error("results: get stations failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stations")
		return
	}
	st := filter.ParseState(r.URL.Query())
	results := buildResults(stations, st, parsePage(r), c.clock)
	c.writeResults(w, &results)
}

func (c *stationsControllerImpl) writeResults(w http.ResponseWriter, results *views.ResultsData) {
	var buf bytes.Buffer
	if err := views.RenderResultsPartial(&buf, results); err != nil {
		slog.Error("results partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
		return
	}
	utils.WriteHTML(w, http.StatusOK, &buf)
}

func (c *stationsControllerImpl) handleStation(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	id, ok := format.ParseStationSlug(slug)
	if !ok {
		views.NotFound(w, r, c.site, "That station doesn't exist.")
		return
	}
	station, err := c.service.Station(id)
	if errors.Is(err, repository.ErrNotFound) {
		views.NotFound(w, r, c.site, "That station doesn't exist.")
		return
	}
	if err != nil {
		slog.Error("station: get station failed", "station_id", id, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load station")
		return
	}

	// Old or hand-typed slugs redirect to the canonical one.
	canonical := format.StationSlug(station.ID, station.Name, station.Suburb)
	if slug != canonical {
		http.Redirect(w, r, "/stations/"+canonical, http.StatusMovedPermanently)
		return
	}

	fuel := parseFuel(r.URL.Query())
	meta := c.site.Meta(r, station.Name,
		fmt.Sprintf("Fuel prices at %s, %s %s.", station.Name, station.Address, station.Suburb))
	meta.Active = "stations"
	meta.Breadcrumbs = []views.Crumb{
		{Label: "Stations", URL: "/stations"},
		{Label: station.Suburb, URL: "/stations?suburb=" + url.QueryEscape(station.Suburb)},
		{Label: station.Name},
	}
	data := views.StationData{
		Meta:        meta,
		Station:     views.NewStationCard(station, fuel, c.clock),
		HasLocation: station.HasLocation(),
		Latitude:    station.Latitude,
		Longitude:   station.Longitude,
	}
	if station.HasLocation() {
		data.MapURL = c.mapURL(staticmap.Options{
			Width: 600, Height: 300, Retina: true,
			Center:  &staticmap.Point{Lat: station.Latitude, Lng: station.Longitude},
			Zoom:    14,
			Markers: []staticmap.Marker{{Point: staticmap.Point{Lat: station.Latitude, Lng: station.Longitude}}},
		})
		if all, err := c.service.Stations(); err == nil {
			others := make([]types.Station, 0, len(all))
			for _, s := range all {
				if s.ID != station.ID {
					others = append(others, s)
				}
			}
			data.Nearby = nearbyCards(types.Nearest(others, station.Latitude, station.Longitude, 3), fuel, c.clock)
		}
	}

	var buf bytes.Buffer
	if err := views.RenderStation(&buf, &data); err != nil {
		slog.Error("station template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteHTML(w, http.StatusOK, &buf)
}

func (c *stationsControllerImpl) handleMap(w http.ResponseWriter, r *http.Request) {
	stations, err := c.service.Stations()
	if err != nil {
		slog.Error("map: get stations failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stations")
		return
	}
	q := r.URL.Query()
	fuel := parseFuel(q)

	meta := c.site.Meta(r, "Station map", "Find fuel stations near you on the map.")
	meta.Active = "map"
	meta.Breadcrumbs = []views.Crumb{{Label: "Map"}}
	data := views.MapData{
		Meta:  meta,
		Fuels: fuelOptions(fuel),
		Near:  format.Sanitize(q.Get("near"), 100),
	}

	markers := make([]views.MapMarker, 0, len(stations))
	for _, s := range stations {
		if !s.HasLocation() {
			continue
		}
		markers = append(markers, views.MapMarker{
			ID:    s.ID,
			Name:  s.Name,
			URL:   "/stations/" + format.StationSlug(s.ID, s.Name, s.Suburb),
			Lat:   s.Latitude,
			Lng:   s.Longitude,
			Price: s.Prices.Get(fuel),
		})
	}
	data.Markers = markers

	lat, lng, located := parseCoordinates(q)
	origin := "your location"
	if !located && data.Near != "" {
		lat, lng, located = c.geocodeNear(r.Context(), data.Near)
		origin = data.Near
		if !located {
			data.LocationError = fmt.Sprintf("We couldn't find %q. Try a suburb name or postcode.", data.Near)
		}
	}

	opts := staticmap.Options{Width: 800, Height: 500, Retina: true}
	if located {
		nearest := types.Nearest(stations, lat, lng, nearbyLimit)
		data.Located = true
		data.Origin = origin
		data.Nearby = nearbyCards(nearest, fuel, c.clock)
		opts.Markers = append(opts.Markers, staticmap.Marker{Point: staticmap.Point{Lat: lat, Lng: lng}, Color: "2563eb"})
		for i, s := range nearest {
			opts.Markers = append(opts.Markers, staticmap.Marker{
				Point: staticmap.Point{Lat: s.Latitude, Lng: s.Longitude},
				Label: fmt.Sprintf("%d", i+1),
			})
		}
	} else {
		for _, m := range markers {
			opts.Markers = append(opts.Markers, staticmap.Marker{Point: staticmap.Point{Lat: m.Lat, Lng: m.Lng}})
		}
	}
	data.MapURL = c.mapURL(opts)

	var buf bytes.Buffer
	if err := views.RenderMap(&buf, &data); err != nil {
		slog.Error("map template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteHTML(w, http.StatusOK, &buf)
}

func (c *stationsControllerImpl) geocodeNear(ctx context.Context, place string) (float64, float64, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.geocodeTimeout)
	defer cancel()
	address := place
	if !strings.Contains(strings.ToLower(place), "vic") {
		address += ", VIC"
	}
	coords, err := c.geocoder.Geocode(ctx, address)
	if err != nil {
		if !errors.Is(err, geocoding.ErrEmptyResponse) {
			slog.Warn("map: geocode failed", "near", place, "error", err)
		}
		return 0, 0, false
	}
	return coords.Latitude, coords.Longitude, true
}

// mapURL returns an empty string when static maps are off so the page shows its fallback.
func (c *stationsControllerImpl) mapURL(opts staticmap.Options) string {
	if !c.maps.Enabled() {
		return ""
	}
	u, err := c.maps.URL(opts)
	if err != nil {
		slog.Warn("static map url failed", "error", err)
		return ""
	}
	return u
}
