// Package events forwards scan session events to external subscribers.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/Veraticus/ecolens/internal/common"
	"github.com/Veraticus/ecolens/internal/model"
	"github.com/Veraticus/ecolens/internal/session"
)

// DefaultTopic is the topic prefix outcomes are published under.
const DefaultTopic = "ecolens/scans"

const (
	publishQoS     = 1
	publishTimeout = 5 * time.Second
	disconnectWait = 250
)

// Publisher is the subset of mqtt.Client used to publish outcomes.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// ClientConfig holds MQTT broker connection settings.
type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// Connect opens a connection to the broker.
func Connect(cfg ClientConfig) (mqtt.Client, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("%w: mqtt broker", common.ErrMissingConfig)
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "ecolens"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		slog.Info("MQTT connection established", "broker", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		slog.Warn("MQTT connection lost", "broker", cfg.Broker, "error", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return client, nil
}

// Disconnect closes client after giving in-flight work a moment to drain.
func Disconnect(client mqtt.Client) {
	client.Disconnect(disconnectWait)
}

// OutcomeMessage is the JSON payload published for each scan outcome.
type OutcomeMessage struct {
	ScannedAt  time.Time      `json:"scanned_at"`
	Mission    *model.Mission `json:"mission,omitempty"`
	SessionID  string         `json:"session_id"`
	UserID     string         `json:"user_id"`
	Outcome    model.Outcome  `json:"outcome"`
	Category   model.Category `json:"category"`
	Label      string         `json:"label"`
	Confidence float64        `json:"confidence"`
}

// MQTTPublisher publishes session outcomes to an MQTT broker.
type MQTTPublisher struct {
	client  Publisher
	logger  *slog.Logger
	topic   string
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewMQTTPublisher creates a publisher writing under topic. An empty topic
// uses DefaultTopic.
func NewMQTTPublisher(client Publisher, topic string, logger *slog.Logger) *MQTTPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MQTTPublisher{
		client:  client,
		topic:   strings.TrimSuffix(topic, "/"),
		timeout: publishTimeout,
		logger:  logger,
	}
}

// Listener returns a session listener that publishes outcome events. The
// broker round trip happens off the session's goroutine.
func (p *MQTTPublisher) Listener() session.Listener {
	return func(ev session.Event) {
		if ev.Type != session.EventOutcome || ev.Attempt == nil {
			return
		}
		msg := OutcomeMessage{
			SessionID:  ev.SessionID,
			UserID:     ev.Snapshot.UserID,
			Outcome:    ev.Attempt.Outcome,
			Category:   ev.Attempt.Category,
			Label:      ev.Attempt.Label,
			Confidence: ev.Attempt.Confidence,
			Mission:    ev.Attempt.Mission,
			ScannedAt:  ev.Attempt.At,
		}

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			if err := p.Publish(msg); err != nil {
				p.logger.Warn("failed to publish scan outcome",
					"session_id", msg.SessionID,
					"error", err)
			}
		}()
	}
}

// Publish sends msg to {topic}/{user_id} and waits for the broker to
// acknowledge it.
func (p *MQTTPublisher) Publish(msg OutcomeMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	topic := p.Topic(msg.UserID)
	token := p.client.Publish(topic, publishQoS, false, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish to %s timed out after %s", topic, p.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	p.logger.Debug("published scan outcome", "topic", topic, "outcome", msg.Outcome)
	return nil
}

// Topic returns the topic outcomes for userID are published to.
func (p *MQTTPublisher) Topic(userID string) string {
	return p.topic + "/" + userID
}

// Wait blocks until every publish started by the listener has finished.
func (p *MQTTPublisher) Wait() {
	p.wg.Wait()
}
