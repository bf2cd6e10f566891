package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

const (
	FeedSourceSAFPIS   = "safpis"
	FeedSourceDynamoDB = "dynamodb"

	DefaultFeedURL = "https://fppdirectapi-prod.safuelpricinginformation.com.au"
)

// FeedConfig configures cmd/pricefeed.
type FeedConfig struct {
	AppEnv   string
	LogLevel slog.Level

	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string

	Source   string
	APIKey   string
	URL      string
	Interval time.Duration

	DynamoTable    string
	DynamoRegion   string
	DynamoEndpoint string

	// MetricsAddr serves /metrics when set.
	MetricsAddr string
}

func LoadFeedFromEnv() (FeedConfig, error) {
	appEnv := envOrDefault("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return FeedConfig{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}
	level, err := ParseLogLevel(envOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		return FeedConfig{}, err
	}

	mqttPort, err := envInt("MQTT_PORT", 1883)
	if err != nil {
		return FeedConfig{}, err
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return FeedConfig{}, fmt.Errorf("invalid MQTT_PORT %d (must be 1-65535)", mqttPort)
	}

	source := strings.ToLower(envOrDefault("FEED_SOURCE", FeedSourceSAFPIS))
	apiKey := strings.TrimSpace(os.Getenv("FEED_API_KEY"))
	switch source {
	case FeedSourceSAFPIS:
		if apiKey == "" {
			return FeedConfig{}, fmt.Errorf("FEED_SOURCE is %q but FEED_API_KEY is not set", source)
		}
	case FeedSourceDynamoDB:
	default:
		return FeedConfig{}, fmt.Errorf("invalid FEED_SOURCE %q (allowed: %s, %s)", source, FeedSourceSAFPIS, FeedSourceDynamoDB)
	}

	interval, err := envDuration("FEED_INTERVAL", 5*time.Minute)
	if err != nil {
		return FeedConfig{}, err
	}
	if interval < time.Second {
		return FeedConfig{}, fmt.Errorf("FEED_INTERVAL must be at least 1s, got %v", interval)
	}

	return FeedConfig{
		AppEnv:   appEnv,
		LogLevel: level,

		MQTTBroker:   envOrDefault("MQTT_BROKER", "localhost"),
		MQTTPort:     mqttPort,
		MQTTClientID: envOrDefault("MQTT_CLIENT_ID", "petrolprices-feed"),

		Source:   source,
		APIKey:   apiKey,
		URL:      strings.TrimRight(envOrDefault("FEED_URL", DefaultFeedURL), "/"),
		Interval: interval,

		DynamoTable:    envOrDefault("FEED_DYNAMO_TABLE", "current_fuel_prices"),
		DynamoRegion:   envOrDefault("FEED_DYNAMO_REGION", "ap-southeast-2"),
		DynamoEndpoint: strings.TrimSpace(os.Getenv("FEED_DYNAMO_ENDPOINT")),

		MetricsAddr: strings.TrimSpace(os.Getenv("FEED_METRICS_ADDR")),
	}, nil
}
