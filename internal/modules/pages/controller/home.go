package controller

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/format"
	blogcontroller "github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/blog/controller"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/filter"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/types"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/utils"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/views"
)

const (
	featuredCount = 6
	latestPosts   = 3
)

func (c *pagesControllerImpl) handleHome(w http.ResponseWriter, r *http.Request) {
	stations, err := c.stations.Stations()
	if err != nil {
		slog.Error("pages: get stations failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load stations")
		return
	}

	meta := c.site.Meta(r, "Cheapest petrol prices in Melbourne",
		"Compare today's unleaded, diesel, premium and LPG prices at service stations across Melbourne.")
	meta.Active = "home"

	data := &views.HomeData{
		Meta:         meta,
		StationCount: len(stations),
		Cheapest:     c.cheapestRows(stations),
		Featured:     c.featured(stations),
	}
	for _, p := range c.posts.Latest(latestPosts) {
		data.Posts = append(data.Posts, blogcontroller.Summary(p))
	}

	var buf bytes.Buffer
	if err := views.RenderHome(&buf, data); err != nil {
		slog.Error("pages: render home failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
	utils.WriteHTML(w, http.StatusOK, &buf)
}

// cheapestRows has one row per fuel type. Fuels nobody prices show the unknown marker.
func (c *pagesControllerImpl) cheapestRows(stations []types.Station) []views.CheapestRow {
	rows := make([]views.CheapestRow, 0, len(types.FuelTypes))
	for _, ft := range types.FuelTypes {
		row := views.CheapestRow{
			Fuel:    ft.Label(),
			Price:   format.Unknown,
			Average: format.Unknown,
		}
		if s, price, ok := types.LowestPrice(stations, ft); ok {
			row.Price = format.Price(&price)
			card := views.NewStationCard(s, ft, c.clock)
			row.Station = &card
		}
		if avg, ok := types.AveragePrice(stations, ft); ok {
			row.Average = format.Price(&avg)
		}
		rows = append(rows, row)
	}
	return rows
}

func (c *pagesControllerImpl) featured(stations []types.Station) []views.StationCard {
	cheapest := filter.Apply(stations, filter.State{FuelType: types.Unleaded, SortBy: filter.SortPriceLow})
	if len(cheapest) > featuredCount {
		cheapest = cheapest[:featuredCount]
	}
	cards := make([]views.StationCard, 0, len(cheapest))
	for _, s := range cheapest {
		cards = append(cards, views.NewStationCard(s, types.Unleaded, c.clock))
	}
	return cards
}
