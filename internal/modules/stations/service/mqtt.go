package service

import (
	"log/slog"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/types"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/mqtt"
)

// priceHandler is the part of the service the MQTT handler needs.
type priceHandler interface {
	HandlePriceUpdate(u types.PriceUpdate) error
}

// registerMQTTHandler sets up the stations module's MQTT message handler
func registerMQTTHandler(subscriber mqtt.MQTTSubscriber, h priceHandler, logger *slog.Logger) {
	subscriber.SetMessageHandler(func(update types.PriceUpdate) error {
		logger.Debug("processing price update",
			"station_id", update.StationID,
			"fuel_type", update.FuelType,
			"updated_at", update.UpdatedAt,
		)

		if err := h.HandlePriceUpdate(update); err != nil {
			logger.Error("failed to apply price update",
				"station_id", update.StationID,
				"fuel_type", update.FuelType,
				"error", err,
			)
			return err
		}
		return nil
	})
}
