package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/config"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/metrics"
)

// NewSource builds the upstream source named by cfg.Source.
func NewSource(cfg config.FeedConfig, clock clockwork.Clock) (Source, error) {
	switch cfg.Source {
	case config.FeedSourceSAFPIS:
		return NewSAFPISSource(cfg.URL, cfg.APIKey, nil, clock), nil
	case config.FeedSourceDynamoDB:
		db, err := NewDynamoClient(cfg.DynamoRegion, cfg.DynamoEndpoint)
		if err != nil {
			return nil, err
		}
		return NewDynamoSource(db, cfg.DynamoTable, clock), nil
	default:
		return nil, fmt.Errorf("unknown feed source %q", cfg.Source)
	}
}

// Run connects to the broker and polls until ctx is done.
func Run(ctx context.Context, cfg config.FeedConfig, logger *slog.Logger) error {
	logger.Info("initializing price feed",
		"source", cfg.Source,
		"interval", cfg.Interval,
		"mqtt_broker", cfg.MQTTBroker,
		"mqtt_port", cfg.MQTTPort,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	clock := clockwork.NewRealClock()
	source, err := NewSource(cfg, clock)
	if err != nil {
		return err
	}

	publisher := NewPublisher(cfg, logger)
	if err := publisher.Connect(ctx); err != nil {
		return err
	}
	defer publisher.Disconnect()

	app := NewApp(source, publisher, Options{
		Interval: cfg.Interval,
		Clock:    clock,
		Metrics:  m,
		Logger:   logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.Run(gctx) })

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("metrics listening", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	logger.Info("price feed shutting down")
	return err
}
