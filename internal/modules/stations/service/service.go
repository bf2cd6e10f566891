// Package service serves station snapshots to the controllers and applies
// live price updates.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/debounce"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/geocoding"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/metrics"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/repository"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/types"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/mqtt"
)

// DefaultInvalidateAfter coalesces a burst of feed updates into one reload.
const DefaultInvalidateAfter = 2 * time.Second

type Options struct {
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
	Clock           clockwork.Clock
	InvalidateAfter time.Duration
}

type Service struct {
	repository repository.StationRepository
	metrics    *metrics.Metrics
	logger     *slog.Logger

	mu       sync.RWMutex
	snapshot []types.Station
	loaded   bool

	invalidator *debounce.Debouncer
}

func NewService(repo repository.StationRepository, opts Options) *Service {
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.InvalidateAfter <= 0 {
		opts.InvalidateAfter = DefaultInvalidateAfter
	}
	s := &Service{
		repository: repo,
		metrics:    opts.Metrics,
		logger:     opts.Logger.With("component", "stations"),
	}
	s.invalidator = debounce.New(opts.Clock, opts.InvalidateAfter, s.Invalidate)
	return s
}

// Stations returns the cached station list. The slice is shared and must not
// be modified by callers.
func (s *Service) Stations() ([]types.Station, error) {
	s.mu.RLock()
	if s.loaded {
		list := s.snapshot
		s.mu.RUnlock()
		s.metrics.StationCache.WithLabelValues("hit").Inc()
		return list, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		s.metrics.StationCache.WithLabelValues("hit").Inc()
		return s.snapshot, nil
	}
	s.metrics.StationCache.WithLabelValues("miss").Inc()
	list, err := s.repository.GetStations()
	if err != nil {
		return nil, fmt.Errorf("load stations: %w", err)
	}
	s.snapshot = list
	s.loaded = true
	return list, nil
}

// Station looks a station up in the snapshot.
func (s *Service) Station(id int) (types.Station, error) {
	list, err := s.Stations()
	if err != nil {
		return types.Station{}, err
	}
	for _, st := range list {
		if st.ID == id {
			return st, nil
		}
	}
	return types.Station{}, repository.ErrNotFound
}

// Invalidate drops the snapshot; the next read reloads it.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.snapshot = nil
	s.loaded = false
	s.mu.Unlock()
	s.logger.Debug("station cache invalidated")
}

// Import replaces the stored stations and drops the snapshot immediately.
func (s *Service) Import(stations []types.Station) (repository.ImportResult, error) {
	res, err := s.repository.ReplaceStations(stations)
	if err != nil {
		s.metrics.DataReloads.WithLabelValues("error").Inc()
		return res, err
	}
	s.metrics.DataReloads.WithLabelValues("ok").Inc()
	s.Invalidate()
	s.logger.Info("stations imported", "upserted", res.Upserted, "removed", res.Removed)
	return res, nil
}

// HandlePriceUpdate stores a live price. Cache invalidation is debounced so a
// feed burst costs one reload.
func (s *Service) HandlePriceUpdate(u types.PriceUpdate) error {
	if err := u.Validate(); err != nil {
		s.metrics.PriceUpdates.WithLabelValues("invalid").Inc()
		return err
	}
	changed, err := s.repository.UpsertPrice(u)
	if errors.Is(err, repository.ErrNotFound) {
		s.metrics.PriceUpdates.WithLabelValues("invalid").Inc()
		return err
	}
	if err != nil {
		s.metrics.PriceUpdates.WithLabelValues("error").Inc()
		return fmt.Errorf("store price: %w", err)
	}
	if !changed {
		s.metrics.PriceUpdates.WithLabelValues("unchanged").Inc()
		return nil
	}
	s.metrics.PriceUpdates.WithLabelValues("stored").Inc()
	s.invalidator.Trigger()
	return nil
}

// Register attaches the price update handler to the MQTT subscriber.
func (s *Service) Register(subscriber mqtt.MQTTSubscriber) {
	registerMQTTHandler(subscriber, s, s.logger)
}

// GeocodeMissing looks up coordinates for stations stored without a location.
// Individual lookup failures are logged and skipped.
func (s *Service) GeocodeMissing(ctx context.Context, provider geocoding.Provider) (int, error) {
	missing, err := s.repository.GetStationsMissingLocation()
	if err != nil {
		return 0, fmt.Errorf("list stations without location: %w", err)
	}
	updated := 0
	for _, st := range missing {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		address := fmt.Sprintf("%s, %s VIC %s", st.Address, st.Suburb, st.Postcode)
		coords, err := provider.Geocode(ctx, address)
		if err != nil {
			s.logger.Warn("geocode failed", "station_id", st.ID, "address", address, "error", err)
			continue
		}
		if err := s.repository.UpdateLocation(st.ID, coords.Latitude, coords.Longitude); err != nil {
			return updated, fmt.Errorf("update station %d location: %w", st.ID, err)
		}
		updated++
	}
	if updated > 0 {
		s.Invalidate()
	}
	return updated, nil
}

// Close flushes a pending invalidation and stops the debouncer.
func (s *Service) Close() {
	s.invalidator.Flush()
	s.invalidator.Stop()
}
