package config

import (
	"fmt"
	"log/slog"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/utils"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// StaticDir is the absolute path to the directory served at /static/.
	// Set via STATIC_DIR (relative paths are resolved against the process working directory at startup).
	StaticDir string

	// BaseURL is the public origin used for canonical links, robots.txt and the sitemap.
	BaseURL  string
	SiteName string

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration
	SQLiteLogSQL          bool

	StationsFile  string
	StationsWatch bool

	MQTTEnabled  bool
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string

	MapboxToken string
	MapboxStyle string

	GeocoderProvider  string
	GeocoderKey       string
	GeocoderTimeout   time.Duration
	GeocoderCacheSize int

	ContactThrottle time.Duration
	// TrustedProxies are the peers whose X-Forwarded-For header is believed.
	// Empty means the connection address identifies the client.
	TrustedProxies []netip.Prefix
}

// LoadDotEnv loads a .env file from the working directory if one exists.
// Values already present in the environment win.
func LoadDotEnv() {
	_ = godotenv.Load()
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := ParseLogLevel(envOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	httpAddr := envOrDefault("HTTP_ADDR", ":8080")

	staticDir := envOrDefault("STATIC_DIR", "static")
	staticDir, err = filepath.Abs(staticDir)
	if err != nil {
		return Config{}, fmt.Errorf("STATIC_DIR %q: %w", staticDir, err)
	}

	baseURL := strings.TrimRight(envOrDefault("BASE_URL", "http://localhost:8080"), "/")
	if u, err := url.Parse(baseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return Config{}, fmt.Errorf("invalid BASE_URL %q (expected absolute URL)", baseURL)
	}

	maxOpenConns, err := envInt("DB_MAX_OPEN_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := envInt("DB_MAX_IDLE_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := envDuration("DB_CONN_MAX_LIFETIME", 0)
	if err != nil {
		return Config{}, err
	}
	logSQL, err := envBool("DB_LOG_SQL", false)
	if err != nil {
		return Config{}, err
	}

	stationsWatch, err := envBool("STATIONS_WATCH", appEnv == "dev")
	if err != nil {
		return Config{}, err
	}

	mqttEnabled, err := envBool("MQTT_ENABLED", false)
	if err != nil {
		return Config{}, err
	}
	mqttPort, err := envInt("MQTT_PORT", 1883)
	if err != nil {
		return Config{}, err
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d (must be 1-65535)", mqttPort)
	}

	provider := strings.ToLower(envOrDefault("GEOCODER_PROVIDER", "none"))
	switch provider {
	case "none", "mapbox", "google":
	default:
		return Config{}, fmt.Errorf("invalid GEOCODER_PROVIDER %q (allowed: none, mapbox, google)", provider)
	}
	geocoderKey := strings.TrimSpace(os.Getenv("GEOCODER_KEY"))
	mapboxToken := strings.TrimSpace(os.Getenv("MAPBOX_TOKEN"))
	if provider == "mapbox" && geocoderKey == "" {
		geocoderKey = mapboxToken
	}
	if provider != "none" && geocoderKey == "" {
		return Config{}, fmt.Errorf("GEOCODER_PROVIDER is %q but GEOCODER_KEY is not set", provider)
	}
	geocoderTimeout, err := envDuration("GEOCODER_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	if geocoderTimeout <= 0 {
		return Config{}, fmt.Errorf("GEOCODER_TIMEOUT must be positive, got %v", geocoderTimeout)
	}
	geocoderCacheSize, err := envInt("GEOCODER_CACHE_SIZE", 1000)
	if err != nil {
		return Config{}, err
	}
	if geocoderCacheSize <= 0 {
		return Config{}, fmt.Errorf("GEOCODER_CACHE_SIZE must be positive, got %d", geocoderCacheSize)
	}

	contactThrottle, err := envDuration("CONTACT_THROTTLE", time.Minute)
	if err != nil {
		return Config{}, err
	}

	trustedProxies, err := utils.ParseProxyList(os.Getenv("TRUST_PROXY"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid TRUST_PROXY: %w", err)
	}

	return Config{
		AppEnv:    appEnv,
		LogLevel:  level,
		HTTPAddr:  httpAddr,
		StaticDir: staticDir,
		BaseURL:   baseURL,
		SiteName:  envOrDefault("SITE_NAME", "Petrol Prices Melbourne"),

		SQLiteDriver:          envOrDefault("DB_DRIVER", "sqlite3"),
		SQLiteDSN:             strings.TrimSpace(os.Getenv("DB_DSN")),
		SQLitePath:            envOrDefault("SQLITE_PATH", "dev/sqlite/app.db"),
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,
		SQLiteLogSQL:          logSQL,

		StationsFile:  envOrDefault("STATIONS_FILE", "data/stations.json"),
		StationsWatch: stationsWatch,

		MQTTEnabled:  mqttEnabled,
		MQTTBroker:   envOrDefault("MQTT_BROKER", "localhost"),
		MQTTPort:     mqttPort,
		MQTTClientID: envOrDefault("MQTT_CLIENT_ID", "petrolprices-server"),
		MQTTTopic:    envOrDefault("MQTT_TOPIC", "prices/+/update"),

		MapboxToken: mapboxToken,
		MapboxStyle: envOrDefault("MAPBOX_STYLE", "mapbox/streets-v12"),

		GeocoderProvider:  provider,
		GeocoderKey:       geocoderKey,
		GeocoderTimeout:   geocoderTimeout,
		GeocoderCacheSize: geocoderCacheSize,

		ContactThrottle: contactThrottle,
		TrustedProxies:  trustedProxies,
	}, nil
}

// ParseLogLevel maps LOG_LEVEL values onto slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func envOrDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func envBool(key string, def bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}
