package pricefeed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/metrics"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/types"
)

type priceKey struct {
	stationID int
	fuel      types.FuelType
}

type Options struct {
	Interval time.Duration
	Clock    clockwork.Clock
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// App polls a Source and publishes only the prices that changed since the
// last successful publish. The first poll publishes everything.
type App struct {
	source    Source
	publisher UpdatePublisher
	interval  time.Duration
	clock     clockwork.Clock
	metrics   *metrics.Metrics
	logger    *slog.Logger

	last map[priceKey]types.PriceUpdate
}

func NewApp(source Source, publisher UpdatePublisher, opts Options) *App {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewNop()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &App{
		source:    source,
		publisher: publisher,
		interval:  opts.Interval,
		clock:     opts.Clock,
		metrics:   opts.Metrics,
		logger:    opts.Logger.With("source", source.Name()),
		last:      make(map[priceKey]types.PriceUpdate),
	}
}

// Run polls immediately and then every interval until ctx is done. A failed
// poll is logged and retried on the next tick.
func (a *App) Run(ctx context.Context) error {
	ticker := a.clock.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		if _, err := a.Poll(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("price poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}
	}
}

// Poll fetches once and publishes the changed prices. Updates that fail to
// publish are not remembered, so the next poll retries them.
func (a *App) Poll(ctx context.Context) (int, error) {
	updates, err := a.source.Fetch(ctx)
	if err != nil {
		a.metrics.FeedPolls.WithLabelValues(a.source.Name(), "error").Inc()
		return 0, err
	}
	a.metrics.FeedPolls.WithLabelValues(a.source.Name(), "ok").Inc()

	published := 0
	var errs []error
	for _, u := range updates {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		key := priceKey{stationID: u.StationID, fuel: u.FuelType}
		if prev, ok := a.last[key]; ok && prev.SamePrice(u) {
			continue
		}
		if err := u.Validate(); err != nil {
			a.logger.Warn("skipping invalid upstream price", "station_id", u.StationID, "error", err)
			continue
		}
		if err := a.publisher.Publish(u); err != nil {
			errs = append(errs, err)
			continue
		}
		a.last[key] = u
		published++
		a.metrics.FeedPublished.Inc()
	}

	a.logger.Info("price poll complete", "fetched", len(updates), "published", published, "failed", len(errs))
	if len(errs) > 0 {
		return published, fmt.Errorf("%d updates not published, first: %w", len(errs), errs[0])
	}
	return published, nil
}
