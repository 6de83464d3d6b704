package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/model"
)

// ListCustomerBookings pages through the bookings the actor placed, newest first.
func (e *Engine) ListCustomerBookings(ctx context.Context, actor model.Actor, q ListQuery) (model.BookingPage, error) {
	ctx, span := e.startSpan(ctx, "list_customer")
	defer span.End()

	if actor.UserID == "" {
		return model.BookingPage{}, record(span, forbidden("authentication required"))
	}
	f, err := q.filter()
	if err != nil {
		return model.BookingPage{}, record(span, err)
	}
	f.CustomerID = actor.UserID
	return e.list(ctx, span, f)
}

// ListProviderBookings pages through bookings placed with the provider
// record the actor owns.
func (e *Engine) ListProviderBookings(ctx context.Context, actor model.Actor, q ListQuery) (model.BookingPage, error) {
	ctx, span := e.startSpan(ctx, "list_provider")
	defer span.End()

	f, err := q.filter()
	if err != nil {
		return model.BookingPage{}, record(span, err)
	}
	provider, err := e.ownedProvider(ctx, actor)
	if err != nil {
		return model.BookingPage{}, record(span, err)
	}
	f.ProviderID = provider.ID
	return e.list(ctx, span, f)
}

// ListAllBookings is the admin read path and skips ownership checks.
func (e *Engine) ListAllBookings(ctx context.Context, actor model.Actor, q AdminQuery) (model.BookingPage, error) {
	ctx, span := e.startSpan(ctx, "list_all")
	defer span.End()

	if actor.Role != model.RoleAdmin {
		return model.BookingPage{}, record(span, forbidden("admin role required"))
	}
	f, err := q.filter()
	if err != nil {
		return model.BookingPage{}, record(span, err)
	}
	f.CustomerID = q.CustomerID
	f.ProviderID = q.ProviderID
	return e.list(ctx, span, f)
}

func (e *Engine) list(ctx context.Context, span trace.Span, f model.BookingFilter) (model.BookingPage, error) {
	page, err := e.store.List(ctx, f)
	if err != nil {
		return model.BookingPage{}, record(span, fmt.Errorf("list bookings: %w", err))
	}
	return page, nil
}

// GetProviderStats returns a provider's counters to its owner or an admin.
// An empty providerID means the provider record owned by the actor.
func (e *Engine) GetProviderStats(ctx context.Context, actor model.Actor, providerID string) (model.ProviderStats, error) {
	ctx, span := e.startSpan(ctx, "provider_stats", attribute.String("provider.id", providerID))
	defer span.End()

	var (
		provider model.Provider
		err      error
	)
	if providerID == "" {
		provider, err = e.ownedProvider(ctx, actor)
	} else {
		provider, err = e.directory.GetProvider(ctx, providerID)
		if errors.Is(err, model.ErrNotFound) {
			err = notFound("provider not found")
		} else if err == nil && actor.Role != model.RoleAdmin && (actor.UserID == "" || provider.UserID != actor.UserID) {
			err = forbidden("not allowed to view this provider's statistics")
		}
	}
	if err != nil {
		return model.ProviderStats{}, record(span, err)
	}
	return model.ProviderStats{
		ProviderID:        provider.ID,
		TotalBookings:     provider.TotalBookings,
		CompletedBookings: provider.CompletedBookings,
	}, nil
}

func (e *Engine) ownedProvider(ctx context.Context, actor model.Actor) (model.Provider, error) {
	if actor.UserID == "" {
		return model.Provider{}, forbidden("authentication required")
	}
	provider, err := e.directory.ProviderByUser(ctx, actor.UserID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Provider{}, forbidden("account has no provider profile")
	}
	if err != nil {
		return model.Provider{}, fmt.Errorf("load provider: %w", err)
	}
	return provider, nil
}

// AvailableSlots lists open start times for a service on date. It is a
// public read and performs no actor checks.
func (e *Engine) AvailableSlots(ctx context.Context, serviceID, date string) ([]model.Slot, error) {
	ctx, span := e.startSpan(ctx, "slots", attribute.String("service.id", serviceID))
	defer span.End()

	day, err := availability.ParseDate(date)
	if err != nil {
		return nil, record(span, validationFailed("date must be YYYY-MM-DD"))
	}
	if serviceID == "" {
		return nil, record(span, validationFailed("service id is required"))
	}

	svc, err := e.directory.GetService(ctx, serviceID)
	if errors.Is(err, model.ErrNotFound) || (err == nil && !svc.IsActive) {
		return nil, record(span, notFound("service not found"))
	}
	if err != nil {
		return nil, record(span, fmt.Errorf("load service: %w", err))
	}
	provider, err := e.bookableProvider(ctx, svc.ProviderID)
	if err != nil {
		return nil, record(span, err)
	}

	wh, err := e.directory.WorkingHours(ctx, provider.ID, day.Weekday())
	if errors.Is(err, model.ErrNotFound) {
		return []model.Slot{}, nil
	}
	if err != nil {
		return nil, record(span, fmt.Errorf("load working hours: %w", err))
	}
	busy, err := e.store.ActiveOnDate(ctx, provider.ID, date)
	if err != nil {
		return nil, record(span, fmt.Errorf("load provider schedule: %w", err))
	}
	return availability.OpenSlots(date, wh, svc.DurationMinutes, busy, e.now().UTC())
}
