package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/model"
)

const defaultSideEffectTimeout = 3 * time.Second

type Options struct {
	Logger *slog.Logger
	Now    func() time.Time
	// EnforceWorkingHours rejects bookings outside the provider's weekly hours.
	EnforceWorkingHours bool
	// SideEffectTimeout bounds each statistics or notification call made
	// after a transition has committed.
	SideEffectTimeout time.Duration
}

// Engine owns booking state: creation, the status machine, who may drive
// it, and the side effects that follow each committed change.
type Engine struct {
	store     Store
	directory Directory
	stats     Stats
	notifier  Notifier

	logger       *slog.Logger
	tracer       trace.Tracer
	now          func() time.Time
	enforceHours bool
	sideTimeout  time.Duration
}

func NewEngine(store Store, directory Directory, stats Stats, notifier Notifier, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SideEffectTimeout <= 0 {
		opts.SideEffectTimeout = defaultSideEffectTimeout
	}
	return &Engine{
		store:        store,
		directory:    directory,
		stats:        stats,
		notifier:     notifier,
		logger:       opts.Logger,
		tracer:       otel.Tracer("booking-service/lifecycle"),
		now:          opts.Now,
		enforceHours: opts.EnforceWorkingHours,
		sideTimeout:  opts.SideEffectTimeout,
	}
}

func (e *Engine) CreateBooking(ctx context.Context, actor model.Actor, in CreateBookingInput) (model.Booking, error) {
	ctx, span := e.startSpan(ctx, "create", attribute.String("service.id", in.ServiceID))
	defer span.End()

	if actor.UserID == "" || actor.Role != model.RoleCustomer {
		return model.Booking{}, record(span, forbidden("only customers can create bookings"))
	}
	in = in.normalized()
	if err := in.validate(); err != nil {
		return model.Booking{}, record(span, err)
	}

	svc, err := e.directory.GetService(ctx, in.ServiceID)
	if errors.Is(err, model.ErrNotFound) || (err == nil && !svc.IsActive) {
		return model.Booking{}, record(span, notFound("service not found"))
	}
	if err != nil {
		return model.Booking{}, record(span, fmt.Errorf("load service: %w", err))
	}

	provider, err := e.bookableProvider(ctx, svc.ProviderID)
	if err != nil {
		return model.Booking{}, record(span, err)
	}
	span.SetAttributes(attribute.String("provider.id", provider.ID))

	if e.enforceHours {
		if err := e.checkWorkingHours(ctx, provider.ID, in, svc.DurationMinutes); err != nil {
			return model.Booking{}, record(span, err)
		}
	}

	now := e.now().UTC()
	draft := model.Booking{
		CustomerID:             actor.UserID,
		ProviderID:             provider.ID,
		ProviderUserID:         provider.UserID,
		ServiceID:              svc.ID,
		ScheduledDate:          in.ScheduledDate,
		ScheduledTime:          in.ScheduledTime,
		Status:                 model.StatusPending,
		CustomerName:           in.CustomerName,
		CustomerPhone:          in.CustomerPhone,
		CustomerAddress:        in.CustomerAddress,
		ServiceName:            svc.Name,
		ServicePrice:           svc.Price,
		ServiceDurationMinutes: svc.DurationMinutes,
		CustomerNotes:          in.CustomerNotes,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	b, err := e.store.Create(ctx, draft, model.StatusChange{
		To:        model.StatusPending,
		ActorID:   actor.UserID,
		ActorRole: model.RoleCustomer,
		At:        now,
	})
	if err != nil {
		return model.Booking{}, record(span, fmt.Errorf("create booking: %w", err))
	}
	span.SetAttributes(attribute.String("booking.id", b.ID))

	e.logger.Info("booking created", "booking_id", b.ID, "booking_number", b.Number, "provider_id", b.ProviderID)
	e.notify(ctx, "booking.created", b, b.ProviderUserID,
		fmt.Sprintf("New booking %s for %s on %s at %s", b.Number, b.ServiceName, b.ScheduledDate, b.ScheduledTime))
	return b, nil
}

func (e *Engine) bookableProvider(ctx context.Context, providerID string) (model.Provider, error) {
	provider, err := e.directory.GetProvider(ctx, providerID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Provider{}, unavailable("provider is not accepting bookings")
	}
	if err != nil {
		return model.Provider{}, fmt.Errorf("load provider: %w", err)
	}
	if !provider.Bookable() {
		return model.Provider{}, unavailable("provider is not accepting bookings")
	}
	return provider, nil
}

func (e *Engine) checkWorkingHours(ctx context.Context, providerID string, in CreateBookingInput, durationMinutes int) error {
	day, err := availability.ParseDate(in.ScheduledDate)
	if err != nil {
		return validationFailed("scheduled date must be YYYY-MM-DD")
	}
	wh, err := e.directory.WorkingHours(ctx, providerID, day.Weekday())
	if errors.Is(err, model.ErrNotFound) {
		return unavailable("provider does not work on %s", day.Weekday())
	}
	if err != nil {
		return fmt.Errorf("load working hours: %w", err)
	}
	if !availability.WithinHours(wh, in.ScheduledDate, in.ScheduledTime, durationMinutes) {
		return unavailable("provider is not available at %s %s", in.ScheduledDate, in.ScheduledTime)
	}
	return nil
}

// GetBooking returns a booking to one of its parties or an admin.
func (e *Engine) GetBooking(ctx context.Context, actor model.Actor, bookingID string) (model.Booking, error) {
	ctx, span := e.startSpan(ctx, "get", attribute.String("booking.id", bookingID))
	defer span.End()

	b, err := e.load(ctx, bookingID)
	if err != nil {
		return model.Booking{}, record(span, err)
	}
	if _, ok := relationTo(actor, b); !ok {
		return model.Booking{}, record(span, forbidden("not allowed to view this booking"))
	}
	return b, nil
}

func (e *Engine) GetBookingHistory(ctx context.Context, actor model.Actor, bookingID string) ([]model.StatusChange, error) {
	ctx, span := e.startSpan(ctx, "history", attribute.String("booking.id", bookingID))
	defer span.End()

	b, err := e.load(ctx, bookingID)
	if err != nil {
		return nil, record(span, err)
	}
	if _, ok := relationTo(actor, b); !ok {
		return nil, record(span, forbidden("not allowed to view this booking"))
	}
	changes, err := e.store.History(ctx, b.ID)
	if err != nil {
		return nil, record(span, fmt.Errorf("load history: %w", err))
	}
	return changes, nil
}

func (e *Engine) load(ctx context.Context, bookingID string) (model.Booking, error) {
	if bookingID == "" {
		return model.Booking{}, validationFailed("booking id is required")
	}
	b, err := e.store.Get(ctx, bookingID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Booking{}, notFound("booking not found")
	}
	if err != nil {
		return model.Booking{}, fmt.Errorf("load booking: %w", err)
	}
	return b, nil
}

func (e *Engine) ConfirmBooking(ctx context.Context, actor model.Actor, bookingID, providerNotes string) (model.Booking, error) {
	if err := checkNote("provider notes", providerNotes); err != nil {
		return model.Booking{}, err
	}
	b, err := e.transition(ctx, actor, bookingID, step{
		op:     "confirm",
		target: model.StatusConfirmed,
		allow:  providerOnly,
		apply: func(b *model.Booking, _ model.Role, at time.Time) {
			b.ConfirmedAt = &at
			b.ProviderNotes = providerNotes
		},
	})
	if err != nil {
		return model.Booking{}, err
	}

	e.bumpStats(ctx, "confirm", b, e.stats.IncrementTotalBookings)
	e.notify(ctx, "booking.confirmed", b, b.CustomerID,
		fmt.Sprintf("Your booking %s has been confirmed for %s at %s", b.Number, b.ScheduledDate, b.ScheduledTime))
	return b, nil
}

func (e *Engine) StartBooking(ctx context.Context, actor model.Actor, bookingID string) (model.Booking, error) {
	b, err := e.transition(ctx, actor, bookingID, step{
		op:     "start",
		target: model.StatusInProgress,
		allow:  providerOnly,
	})
	if err != nil {
		return model.Booking{}, err
	}

	e.notify(ctx, "booking.started", b, b.CustomerID,
		fmt.Sprintf("Your booking %s is now in progress", b.Number))
	return b, nil
}

func (e *Engine) CompleteBooking(ctx context.Context, actor model.Actor, bookingID string) (model.Booking, error) {
	b, err := e.transition(ctx, actor, bookingID, step{
		op:     "complete",
		target: model.StatusCompleted,
		allow:  providerOnly,
		apply: func(b *model.Booking, _ model.Role, at time.Time) {
			b.CompletedAt = &at
		},
	})
	if err != nil {
		return model.Booking{}, err
	}

	e.bumpStats(ctx, "complete", b, e.stats.IncrementCompletedBookings)
	e.notify(ctx, "booking.completed", b, b.CustomerID,
		fmt.Sprintf("Your booking %s has been completed", b.Number))
	return b, nil
}

// CancelBooking records who cancelled from the caller's relationship to the
// booking, never from request data.
func (e *Engine) CancelBooking(ctx context.Context, actor model.Actor, bookingID, reason string) (model.Booking, error) {
	reason, err := checkReason(reason)
	if err != nil {
		return model.Booking{}, err
	}
	b, err := e.transition(ctx, actor, bookingID, step{
		op:     "cancel",
		target: model.StatusCancelled,
		allow:  func(model.Role) bool { return true },
		apply: func(b *model.Booking, rel model.Role, at time.Time) {
			b.CancelledAt = &at
			b.CancellationReason = reason
			b.CancelledBy = rel
		},
	})
	if err != nil {
		return model.Booking{}, err
	}

	msg := fmt.Sprintf("Booking %s was cancelled by the %s: %s", b.Number, b.CancelledBy, b.CancellationReason)
	switch b.CancelledBy {
	case model.RoleCustomer:
		e.notify(ctx, "booking.cancelled", b, b.ProviderUserID, msg)
	case model.RoleProvider:
		e.notify(ctx, "booking.cancelled", b, b.CustomerID, msg)
	default:
		e.notify(ctx, "booking.cancelled", b, b.CustomerID, msg)
		e.notify(ctx, "booking.cancelled", b, b.ProviderUserID, msg)
	}
	return b, nil
}

type step struct {
	op     string
	target model.Status
	allow  func(rel model.Role) bool
	apply  func(b *model.Booking, rel model.Role, at time.Time)
}

func providerOnly(rel model.Role) bool {
	return rel == model.RoleProvider
}

// transition authorizes, checks the current status and mutates under the
// store's per-booking lock. Losing a version race is reported as an
// invalid transition from whatever status won.
func (e *Engine) transition(ctx context.Context, actor model.Actor, bookingID string, s step) (model.Booking, error) {
	ctx, span := e.startSpan(ctx, s.op, attribute.String("booking.id", bookingID))
	defer span.End()

	if bookingID == "" {
		return model.Booking{}, record(span, validationFailed("booking id is required"))
	}

	b, err := e.store.Update(ctx, bookingID, func(b *model.Booking) (model.StatusChange, error) {
		rel, ok := relationTo(actor, *b)
		if !ok || !s.allow(rel) {
			return model.StatusChange{}, forbidden("not allowed to %s this booking", s.op)
		}
		if !b.Status.CanTransitionTo(s.target) {
			if b.Status.IsTerminal() {
				return model.StatusChange{}, invalidTransition("cannot %s: booking is already %s", s.op, b.Status)
			}
			return model.StatusChange{}, invalidTransition("cannot %s: booking is %s", s.op, b.Status)
		}

		now := e.now().UTC()
		from := b.Status
		if s.apply != nil {
			s.apply(b, rel, now)
		}
		b.Status = s.target
		b.UpdatedAt = now
		return model.StatusChange{
			BookingID: b.ID,
			From:      from,
			To:        s.target,
			ActorID:   actor.UserID,
			ActorRole: rel,
			At:        now,
		}, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNotFound):
		return model.Booking{}, record(span, notFound("booking not found"))
	case errors.Is(err, model.ErrVersionConflict):
		current, gerr := e.store.Get(ctx, bookingID)
		if gerr != nil {
			return model.Booking{}, record(span, fmt.Errorf("reload booking after conflict: %w", gerr))
		}
		return model.Booking{}, record(span, invalidTransition("cannot %s: booking is %s", s.op, current.Status))
	case KindOf(err) != "":
		return model.Booking{}, record(span, err)
	default:
		return model.Booking{}, record(span, fmt.Errorf("%s booking: %w", s.op, err))
	}

	span.SetAttributes(attribute.String("provider.id", b.ProviderID), attribute.String("booking.status", string(b.Status)))
	e.logger.Info("booking transitioned", "booking_id", b.ID, "op", s.op, "status", b.Status, "actor_id", actor.UserID)
	return b, nil
}

// relationTo resolves the caller's standing on a booking. A user who is both
// parties acts as whichever role their token carries.
func relationTo(actor model.Actor, b model.Booking) (model.Role, bool) {
	if actor.UserID == "" {
		return "", false
	}
	isCustomer := actor.UserID == b.CustomerID
	isProvider := actor.UserID == b.ProviderUserID
	switch {
	case isCustomer && isProvider:
		if actor.Role == model.RoleProvider {
			return model.RoleProvider, true
		}
		return model.RoleCustomer, true
	case isProvider:
		return model.RoleProvider, true
	case isCustomer:
		return model.RoleCustomer, true
	case actor.Role == model.RoleAdmin:
		return model.RoleAdmin, true
	}
	return "", false
}

// sideContext detaches post-commit work from the caller's cancellation.
func (e *Engine) sideContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), e.sideTimeout)
}

func (e *Engine) bumpStats(ctx context.Context, op string, b model.Booking, inc func(context.Context, string) error) {
	ctx, cancel := e.sideContext(ctx)
	defer cancel()
	if err := inc(ctx, b.ProviderID); err != nil {
		e.logger.Warn("provider statistics update failed",
			"err", err, "op", op, "booking_id", b.ID, "provider_id", b.ProviderID)
	}
}

func (e *Engine) notify(ctx context.Context, event string, b model.Booking, recipientUserID, message string) {
	if e.notifier == nil || recipientUserID == "" {
		return
	}
	ctx, cancel := e.sideContext(ctx)
	defer cancel()

	metadata := map[string]string{
		"event":          event,
		"booking_id":     b.ID,
		"booking_number": b.Number,
		"status":         string(b.Status),
	}
	if err := e.notifier.Notify(ctx, "user:"+recipientUserID, message, metadata); err != nil {
		e.logger.Warn("booking notification failed",
			"err", err, "event", event, "booking_id", b.ID, "provider_id", b.ProviderID)
	}
}

func (e *Engine) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "booking."+op, trace.WithAttributes(attrs...))
}

func record(span trace.Span, err error) error {
	span.RecordError(err)
	if KindOf(err) == "" {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
