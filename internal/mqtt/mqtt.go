// Package mqtt receives fuel price updates from the broker.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/config"
	"github.com/PetroPricesnearMe/petrol-prices-melbourne/internal/modules/stations/types"
)

type Subscriber struct {
	client     mqtt.Client
	cfg        config.Config
	logger     *slog.Logger
	mu         sync.RWMutex
	connected  bool
	subscribed bool

	stopCh   chan struct{}
	stopOnce sync.Once

	handlerMu sync.RWMutex
	// messageHandler is called for each valid price update
	messageHandler func(update types.PriceUpdate) error
}

// MQTTSubscriber is what feature modules need to attach their handler.
type MQTTSubscriber interface {
	SetMessageHandler(handler func(update types.PriceUpdate) error)
}

func (s *Subscriber) SetMessageHandler(handler func(update types.PriceUpdate) error) {
	s.handlerMu.Lock()
	s.messageHandler = handler
	s.handlerMu.Unlock()
}

func NewSubscriber(cfg config.Config, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Subscriber{
		cfg:    cfg,
		logger: logger.With("component", "mqtt"),
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		s.setConnected(true)
		s.logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		// A clean session forgets subscriptions, so renew them after a reconnect.
		if s.wasSubscribed() {
			go func() {
				if err := s.subscribe(); err != nil {
					s.logger.Error("mqtt resubscribe failed", "error", err)
				}
			}()
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.setConnected(false)
		s.logger.Warn("mqtt connection lost", "error", err)
	})

	s.client = mqtt.NewClient(opts)
	return s
}

// Connect establishes the connection and subscribes to the configured topic.
// It respects ctx and Disconnect while waiting.
func (s *Subscriber) Connect(ctx context.Context) error {
	select {
	case <-s.stopCh:
		return errors.New("subscriber stopped")
	default:
	}

	if s.IsConnected() {
		return nil
	}

	token := s.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			break
		}

		select {
		case <-ctx.Done():
			s.client.Disconnect(0)
			return ctx.Err()
		case <-s.stopCh:
			s.client.Disconnect(0)
			return errors.New("subscriber stopped")
		default:
		}
	}

	if err := s.subscribe(); err != nil {
		s.client.Disconnect(0)
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

func (s *Subscriber) subscribe() error {
	if !s.client.IsConnected() {
		return errors.New("mqtt client not connected")
	}

	topic := s.cfg.MQTTTopic
	const qos = byte(1)

	token := s.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, token.Error())
	}

	s.mu.Lock()
	s.subscribed = true
	s.mu.Unlock()
	s.logger.Info("subscribed to mqtt topic", "topic", topic, "qos", qos)
	return nil
}

func (s *Subscriber) handleMessage(topic string, payload []byte) {
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	var update types.PriceUpdate
	if err := json.Unmarshal(payload, &update); err != nil {
		s.logger.Warn("failed to parse price update",
			"topic", topic,
			"error", err,
			"payload", string(payload),
		)
		return
	}

	if err := validateUpdate(topic, update); err != nil {
		s.logger.Warn("invalid price update",
			"topic", topic,
			"station_id", update.StationID,
			"error", err,
		)
		return
	}

	s.handlerMu.RLock()
	handler := s.messageHandler
	s.handlerMu.RUnlock()
	if handler == nil {
		return
	}
	if err := handler(update); err != nil {
		s.logger.Error("message handler failed",
			"topic", topic,
			"station_id", update.StationID,
			"error", err,
		)
		return
	}
	s.logger.Debug("processed price update",
		"station_id", update.StationID,
		"fuel_type", update.FuelType,
	)
}

// validateUpdate checks the payload and that it was published on its own
// station's topic (prices/{id}/update).
func validateUpdate(topic string, u types.PriceUpdate) error {
	if err := u.Validate(); err != nil {
		return err
	}
	parts := strings.Split(topic, "/")
	if len(parts) == 3 && parts[0] == "prices" && parts[2] == "update" {
		id, err := strconv.Atoi(parts[1])
		if err != nil || id != u.StationID {
			return fmt.Errorf("topic station %q does not match payload station %d", parts[1], u.StationID)
		}
	}
	return nil
}

// IsConnected returns whether the client is connected.
func (s *Subscriber) IsConnected() bool {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	return connected && s.client.IsConnected()
}

func (s *Subscriber) wasSubscribed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subscribed
}

// Disconnect stops the subscriber and closes the MQTT connection.
// Idempotent and safe to call multiple times.
func (s *Subscriber) Disconnect() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.client != nil && s.IsConnected() {
		token := s.client.Unsubscribe(s.cfg.MQTTTopic)
		token.WaitTimeout(2 * time.Second)
	}

	// Disconnect without holding s.mu to avoid lock contention/deadlocks.
	if s.client != nil {
		s.client.Disconnect(250)
	}

	s.mu.Lock()
	s.connected = false
	s.subscribed = false
	s.mu.Unlock()
	s.logger.Info("mqtt subscriber disconnected")
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
