package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv resets every variable LoadFromEnv reads so tests start from defaults.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "LOG_LEVEL", "HTTP_ADDR", "STATIC_DIR", "BASE_URL", "SITE_NAME",
		"DB_DRIVER", "DB_DSN", "SQLITE_PATH", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS",
		"DB_CONN_MAX_LIFETIME", "DB_LOG_SQL", "STATIONS_FILE", "STATIONS_WATCH",
		"MQTT_ENABLED", "MQTT_BROKER", "MQTT_PORT", "MQTT_CLIENT_ID", "MQTT_TOPIC",
		"MAPBOX_TOKEN", "MAPBOX_STYLE", "GEOCODER_PROVIDER", "GEOCODER_KEY",
		"GEOCODER_TIMEOUT", "GEOCODER_CACHE_SIZE", "CONTACT_THROTTLE", "TRUST_PROXY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}

	if got.AppEnv != "dev" {
		t.Errorf("AppEnv = %q, want %q", got.AppEnv, "dev")
	}
	if got.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", got.LogLevel, slog.LevelInfo)
	}
	if got.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", got.HTTPAddr, ":8080")
	}
	if !filepath.IsAbs(got.StaticDir) {
		t.Errorf("StaticDir = %q, want absolute path", got.StaticDir)
	}
	if got.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q, want %q", got.BaseURL, "http://localhost:8080")
	}
	if got.SQLiteDriver != "sqlite3" {
		t.Errorf("SQLiteDriver = %q, want sqlite3", got.SQLiteDriver)
	}
	if got.SQLiteMaxOpenConns != 1 || got.SQLiteMaxIdleConns != 1 {
		t.Errorf("pool = %d/%d, want 1/1", got.SQLiteMaxOpenConns, got.SQLiteMaxIdleConns)
	}
	if !got.StationsWatch {
		t.Errorf("StationsWatch = false, want true in dev")
	}
	if got.MQTTEnabled {
		t.Errorf("MQTTEnabled = true, want false")
	}
	if got.MQTTPort != 1883 {
		t.Errorf("MQTTPort = %d, want 1883", got.MQTTPort)
	}
	if got.MQTTTopic != "prices/+/update" {
		t.Errorf("MQTTTopic = %q, want prices/+/update", got.MQTTTopic)
	}
	if got.GeocoderProvider != "none" {
		t.Errorf("GeocoderProvider = %q, want none", got.GeocoderProvider)
	}
	if got.ContactThrottle != time.Minute {
		t.Errorf("ContactThrottle = %v, want 1m", got.ContactThrottle)
	}
	if len(got.TrustedProxies) != 0 {
		t.Errorf("TrustedProxies = %v, want none", got.TrustedProxies)
	}
}

func TestLoadFromEnv_TrustProxy(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRUST_PROXY", "10.0.0.0/8,127.0.0.1")

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}
	if len(got.TrustedProxies) != 2 || got.TrustedProxies[1].String() != "127.0.0.1/32" {
		t.Errorf("TrustedProxies = %v, want [10.0.0.0/8 127.0.0.1/32]", got.TrustedProxies)
	}
}

func TestLoadFromEnv_AppEnv_Valid(t *testing.T) {
	tests := []struct {
		name   string
		appEnv string
		want   string
	}{
		{name: "dev", appEnv: "dev", want: "dev"},
		{name: "prod", appEnv: "prod", want: "prod"},
		{name: "dev with whitespace", appEnv: "  dev  ", want: "dev"},
		{name: "prod with whitespace", appEnv: "\nprod\t", want: "prod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("APP_ENV", tt.appEnv)

			got, err := LoadFromEnv()
			if err != nil {
				t.Fatalf("LoadFromEnv() error = %v, want nil", err)
			}
			if got.AppEnv != tt.want {
				t.Errorf("AppEnv = %q, want %q", got.AppEnv, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_ProdDisablesWatchByDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}
	if got.StationsWatch {
		t.Errorf("StationsWatch = true, want false in prod")
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "staging env", key: "APP_ENV", val: "staging"},
		{name: "uppercase env", key: "APP_ENV", val: "DEV"},
		{name: "log level", key: "LOG_LEVEL", val: "loud"},
		{name: "relative base url", key: "BASE_URL", val: "example.com"},
		{name: "open conns", key: "DB_MAX_OPEN_CONNS", val: "many"},
		{name: "lifetime", key: "DB_CONN_MAX_LIFETIME", val: "forever"},
		{name: "log sql", key: "DB_LOG_SQL", val: "maybe"},
		{name: "mqtt port text", key: "MQTT_PORT", val: "abc"},
		{name: "mqtt port range", key: "MQTT_PORT", val: "70000"},
		{name: "provider", key: "GEOCODER_PROVIDER", val: "bing"},
		{name: "cache size", key: "GEOCODER_CACHE_SIZE", val: "0"},
		{name: "geocoder timeout", key: "GEOCODER_TIMEOUT", val: "-1s"},
		{name: "throttle", key: "CONTACT_THROTTLE", val: "soon"},
		{name: "trust proxy", key: "TRUST_PROXY", val: "10.0.0.0/99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			if _, err := LoadFromEnv(); err == nil {
				t.Fatalf("LoadFromEnv() with %s=%q error = nil, want non-nil", tt.key, tt.val)
			}
		})
	}
}

func TestLoadFromEnv_Geocoder(t *testing.T) {
	t.Run("google requires key", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEOCODER_PROVIDER", "google")

		if _, err := LoadFromEnv(); err == nil {
			t.Fatal("LoadFromEnv() error = nil, want missing key error")
		}
	})

	t.Run("mapbox falls back to MAPBOX_TOKEN", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEOCODER_PROVIDER", "Mapbox")
		t.Setenv("MAPBOX_TOKEN", "pk.test")

		got, err := LoadFromEnv()
		if err != nil {
			t.Fatalf("LoadFromEnv() error = %v, want nil", err)
		}
		if got.GeocoderProvider != "mapbox" {
			t.Errorf("GeocoderProvider = %q, want mapbox", got.GeocoderProvider)
		}
		if got.GeocoderKey != "pk.test" {
			t.Errorf("GeocoderKey = %q, want pk.test", got.GeocoderKey)
		}
	})
}

func TestLoadFromEnv_BaseURLTrailingSlash(t *testing.T) {
	clearEnv(t)
	t.Setenv("BASE_URL", "https://petrolprices.example/")

	got, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v, want nil", err)
	}
	if got.BaseURL != "https://petrolprices.example" {
		t.Errorf("BaseURL = %q, want without trailing slash", got.BaseURL)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: " warn ", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if err != nil {
				t.Fatalf("ParseLogLevel(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	got, err := ParseLogLevel("verbose")
	if err == nil {
		t.Fatal("ParseLogLevel(verbose) error = nil, want non-nil")
	}
	// For invalid inputs, function returns LevelInfo along with an error.
	if got != slog.LevelInfo {
		t.Errorf("ParseLogLevel(verbose) = %v, want %v on error", got, slog.LevelInfo)
	}
}
