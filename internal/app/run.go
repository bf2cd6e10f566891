// Package app wires the site together: database, features, background workers
// and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/config"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/datafile"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/db"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/geocoding"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/httpapi"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/metrics"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/migrate"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/blog"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/pages"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/mqtt"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/staticmap"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/views"
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"baseURL", cfg.BaseURL,
		"staticDir", cfg.StaticDir,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"stationsFile", cfg.StationsFile,
		"stationsWatch", cfg.StationsWatch,
		"mqttEnabled", cfg.MQTTEnabled,
		"mqttBroker", cfg.MQTTBroker,
		"mqttTopic", cfg.MQTTTopic,
		"geocoder", cfg.GeocoderProvider,
	)

	dbConn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(dbConn); err != nil {
		return err
	}
	logger.Info("database ready")

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	clock := clockwork.NewRealClock()
	site := views.Site{Name: cfg.SiteName, BaseURL: cfg.BaseURL}

	geocoder, err := newGeocoder(cfg, m, logger)
	if err != nil {
		return err
	}

	// The handler must be attached before Connect: the broker may deliver
	// queued messages right after CONNACK.
	var subscriber *mqtt.Subscriber
	var stationSubscriber mqtt.MQTTSubscriber
	if cfg.MQTTEnabled {
		subscriber = mqtt.NewSubscriber(cfg, logger)
		stationSubscriber = subscriber
	}

	mux := httpapi.NewMux(httpapi.MuxDeps{
		DB:        dbConn,
		StaticDir: cfg.StaticDir,
		Registry:  reg,
		Site:      site,
	})
	stationService := stations.RegisterFeature(mux, stations.Deps{
		DB:         dbConn,
		Subscriber: stationSubscriber,
		Metrics:    m,
		Logger:     logger,
		Clock:      clock,
		Site:       site,
		Geocoder:   geocoder,
		Maps:       staticmap.New(cfg.MapboxToken, cfg.MapboxStyle),
	})
	defer stationService.Close()

	postStore, err := blog.RegisterFeature(mux, site)
	if err != nil {
		return fmt.Errorf("load blog posts: %w", err)
	}
	pages.RegisterFeature(mux, pages.Deps{
		DB:              dbConn,
		Stations:        stationService,
		Posts:           postStore,
		Site:            site,
		Clock:           clock,
		ContactThrottle: cfg.ContactThrottle,
		TrustedProxies:  cfg.TrustedProxies,
	})

	if err := importStations(cfg.StationsFile, stationService, logger); err != nil {
		return err
	}

	srv := httpapi.NewServer(cfg.HTTPAddr, httpapi.NewHandler(mux, m))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("http shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if subscriber != nil {
		g.Go(func() error {
			// A broker outage must not take the site down; paho keeps retrying.
			if err := subscriber.Connect(gctx); err != nil && gctx.Err() == nil {
				logger.Warn("mqtt connection failed (continuing without live prices)", "error", err)
			}
			<-gctx.Done()
			logger.Info("mqtt disconnecting")
			subscriber.Disconnect()
			return nil
		})
	}

	if cfg.StationsWatch {
		watcher, err := datafile.NewWatcher(cfg.StationsFile, stationService, datafile.WatcherOptions{
			Clock:  clock,
			Logger: logger,
		})
		if err != nil {
			logger.Warn("stations file watcher disabled", "path", cfg.StationsFile, "error", err)
		} else {
			g.Go(func() error { return watcher.Run(gctx) })
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// importStations loads the data file on startup. A missing file is fine when
// the database already holds stations from an earlier run.
func importStations(path string, imp datafile.Importer, logger *slog.Logger) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Warn("stations file not found, serving stored data", "path", path)
		return nil
	}
	res, err := datafile.ImportFile(path, imp)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	logger.Info("stations imported", "path", path, "upserted", res.Upserted, "removed", res.Removed)
	return nil
}

func newGeocoder(cfg config.Config, m *metrics.Metrics, logger *slog.Logger) (geocoding.Provider, error) {
	provider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:    geocoding.ProviderType(cfg.GeocoderProvider),
		APIKey:  cfg.GeocoderKey,
		Timeout: cfg.GeocoderTimeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("geocoder: %w", err)
	}
	if _, ok := provider.(geocoding.Nop); ok {
		return provider, nil
	}
	return geocoding.NewCachedProvider(provider, cfg.GeocoderProvider, cfg.GeocoderCacheSize, m), nil
}
