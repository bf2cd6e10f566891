package stations

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/jonboulle/clockwork"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/geocoding"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/metrics"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/controller"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/repository"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/service"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/mqtt"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/staticmap"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/views"
)

type Deps struct {
	DB *sql.DB
	// Subscriber is nil when MQTT is disabled.
	Subscriber mqtt.MQTTSubscriber
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	Clock      clockwork.Clock
	Site       views.Site
	Geocoder   geocoding.Provider
	Maps       *staticmap.Builder
}

// RegisterFeature mounts the station pages and API and returns the service so
// the caller can import data and close it on shutdown.
func RegisterFeature(mux *http.ServeMux, deps Deps) *service.Service {
	stationRepository := repository.NewRepository(deps.DB)
	stationService := service.NewService(stationRepository, service.Options{
		Metrics: deps.Metrics,
		Logger:  deps.Logger,
		Clock:   deps.Clock,
	})
	if deps.Subscriber != nil {
		stationService.Register(deps.Subscriber)
	}
	stationController := controller.NewStationsController(stationService, controller.Options{
		Site:     deps.Site,
		Geocoder: deps.Geocoder,
		Maps:     deps.Maps,
		Clock:    deps.Clock,
	})
	stationController.RegisterRoutes(mux)
	return stationService
}
