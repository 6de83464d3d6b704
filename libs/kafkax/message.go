package kafkax

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Event is one domain event bound for a topic. ID is generated when empty.
type Event struct {
	ID    string
	Type  string
	Key   string
	Value []byte
}

// NewMessage builds a keyed message carrying the event id, event type and
// the caller's trace context as headers.
func NewMessage(ctx context.Context, ev Event) kafka.Message {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	headers := []kafka.Header{
		{Key: HeaderEventID, Value: []byte(ev.ID)},
		{Key: HeaderEventType, Value: []byte(ev.Type)},
	}
	return kafka.Message{
		Key:     []byte(ev.Key),
		Value:   ev.Value,
		Time:    time.Now().UTC(),
		Headers: InjectTraceHeaders(ctx, headers),
	}
}
