package lifecycle

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/model"
)

// MutateFunc applies a transition to a locked booking and returns the
// history entry to record with it. Returning an error aborts the write.
type MutateFunc func(b *model.Booking) (model.StatusChange, error)

// Store is the durable booking record. Implementations return
// model.ErrNotFound for unknown ids.
type Store interface {
	// Create assigns ID, Number and Version and persists the booking with
	// its first history entry before it becomes readable.
	Create(ctx context.Context, b model.Booking, change model.StatusChange) (model.Booking, error)
	Get(ctx context.Context, id string) (model.Booking, error)
	// Update runs fn against the current row while holding it exclusively
	// and persists the result only if the version is unchanged.
	Update(ctx context.Context, id string, fn MutateFunc) (model.Booking, error)
	List(ctx context.Context, f model.BookingFilter) (model.BookingPage, error)
	History(ctx context.Context, id string) ([]model.StatusChange, error)
	ActiveOnDate(ctx context.Context, providerID, date string) ([]model.Booking, error)
}

// Directory is the read-only view of providers and their catalog.
type Directory interface {
	GetService(ctx context.Context, id string) (model.Service, error)
	GetProvider(ctx context.Context, id string) (model.Provider, error)
	ProviderByUser(ctx context.Context, userID string) (model.Provider, error)
	WorkingHours(ctx context.Context, providerID string, day time.Weekday) (model.WorkingHours, error)
}

// Stats increments provider counters atomically in storage.
type Stats interface {
	IncrementTotalBookings(ctx context.Context, providerID string) error
	IncrementCompletedBookings(ctx context.Context, providerID string) error
}

type Notifier interface {
	Notify(ctx context.Context, channelRef, message string, metadata map[string]string) error
}
