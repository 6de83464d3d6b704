package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/servicehub/libs/kafkax"
)

const (
	DefaultTopic     = "booking.notifications.v1"
	NotificationType = "booking.notification.v1"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	Async   bool
}

// KafkaNotifier publishes one message per notification, keyed by channel
// so a user's notifications stay ordered within a partition.
type KafkaNotifier struct {
	writer messageWriter
	now    func() time.Time
}

func NewKafkaNotifier(cfg KafkaConfig, logger *slog.Logger) *KafkaNotifier {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        cfg.Async,
	}
	if cfg.Async && logger != nil {
		w.Completion = func(msgs []kafka.Message, err error) {
			if err != nil {
				logger.Warn("notification publish failed", "topic", cfg.Topic, "count", len(msgs), "err", err)
			}
		}
	}
	return &KafkaNotifier{writer: w, now: time.Now}
}

func (n *KafkaNotifier) Notify(ctx context.Context, channelRef, message string, metadata map[string]string) error {
	p := newPayload(channelRef, message, metadata, n.now())
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return n.writer.WriteMessages(ctx, kafkax.NewMessage(ctx, kafkax.Event{
		ID:    p.EventID,
		Type:  NotificationType,
		Key:   channelRef,
		Value: raw,
	}))
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
