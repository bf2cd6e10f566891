package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/filter"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/repository"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/types"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/utils"
)

type stationsResponse struct {
	Total    int             `json:"total"`
	Stations []types.Station `json:"stations"`
}

type fuelStatsResponse struct {
	types.FuelStats
	Label string `json:"label"`
}

type statsResponse struct {
	StationCount int                 `json:"stationCount"`
	Fuels        []fuelStatsResponse `json:"fuels"`
}

func (c *stationsControllerImpl) handleAPIStations(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimitQuery(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	stations, err := c.service.Stations()
	if err != nil {
		slog.Error("api: get stations failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stations")
		return
	}
	filtered := filter.Apply(stations, filter.ParseState(r.URL.Query()))
	resp := stationsResponse{Total: len(filtered), Stations: filtered}
	if len(filtered) > limit {
		resp.Stations = filtered[:limit]
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

func (c *stationsControllerImpl) handleAPIStation(w http.ResponseWriter, r *http.Request) {
	idStr := r.PathValue("id")
	if idStr == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing station id")
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		utils.WriteError(w, http.StatusBadRequest, "invalid station id")
		return
	}
	station, err := c.service.Station(id)
	if errors.Is(err, repository.ErrNotFound) {
		utils.WriteError(w, http.StatusNotFound, "station not found")
		return
	}
	if err != nil {
		slog.Error("api: get station failed", "station_id", id, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load station")
		return
	}
	utils.WriteJSON(w, http.StatusOK, station)
}

func (c *stationsControllerImpl) handleAPIStats(w http.ResponseWriter, r *http.Request) {
	stations, err := c.service.Stations()
	if err != nil {
		slog.Error("api: get stations failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stations")
		return
	}
	resp := statsResponse{StationCount: len(stations)}
	for _, fs := range types.Stats(stations) {
		resp.Fuels = append(resp.Fuels, fuelStatsResponse{FuelStats: fs, Label: fs.FuelType.Label()})
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}
