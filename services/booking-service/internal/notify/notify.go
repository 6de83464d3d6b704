// Package notify delivers booking notifications to a user's channel.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	BackendNoop    = "noop"
	BackendKafka   = "kafka"
	BackendWebhook = "webhook"
)

// Notifier is a delivery backend. Close flushes anything still buffered.
type Notifier interface {
	Notify(ctx context.Context, channelRef, message string, metadata map[string]string) error
	Close() error
}

// Payload is the JSON document every backend emits.
type Payload struct {
	EventID  string            `json:"event_id"`
	Channel  string            `json:"channel"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
	SentAt   time.Time         `json:"sent_at"`
}

func newPayload(channelRef, message string, metadata map[string]string, now time.Time) Payload {
	return Payload{
		EventID:  uuid.NewString(),
		Channel:  channelRef,
		Message:  message,
		Metadata: metadata,
		SentAt:   now.UTC(),
	}
}

type Config struct {
	Backend      string
	Brokers      []string
	Topic        string
	Async        bool
	WebhookURL   string
	WebhookToken string
	Timeout      time.Duration
}

// New builds the notifier selected by cfg.Backend.
func New(cfg Config, logger *slog.Logger) (Notifier, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendNoop:
		return Noop{}, nil
	case BackendKafka:
		if len(cfg.Brokers) == 0 {
			return nil, fmt.Errorf("notify: kafka backend needs brokers")
		}
		return NewKafkaNotifier(KafkaConfig{
			Brokers: cfg.Brokers,
			Topic:   cfg.Topic,
			Async:   cfg.Async,
		}, logger), nil
	case BackendWebhook:
		if strings.TrimSpace(cfg.WebhookURL) == "" {
			return nil, fmt.Errorf("notify: webhook backend needs a url")
		}
		return NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookToken, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("notify: unknown backend %q", cfg.Backend)
	}
}

type Noop struct{}

func (Noop) Notify(context.Context, string, string, map[string]string) error { return nil }
func (Noop) Close() error { return nil }
