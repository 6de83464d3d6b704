package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/servicehub/libs/db"
	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/lifecycle"
	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/model"
)

const bookingNumberAttempts = 3

const bookingColumns = `
	id::text, booking_number, customer_id, provider_id::text, provider_user_id, service_id::text,
	scheduled_date::text, scheduled_time, status,
	customer_name, customer_phone, customer_address,
	service_name, service_price::text, service_duration_minutes,
	customer_notes, provider_notes, cancellation_reason, COALESCE(cancelled_by, ''),
	created_at, confirmed_at, completed_at, cancelled_at, updated_at, version`

type BookingRepository struct {
	pool *db.Pool
}

var _ lifecycle.Store = (*BookingRepository)(nil)

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// Create inserts the booking and its first history row in one transaction.
// A booking number collision retries with a fresh sequence value.
func (r *BookingRepository) Create(ctx context.Context, b model.Booking, change model.StatusChange) (model.Booking, error) {
	ctx, span := db.StartSpan(ctx, "bookings.create")
	defer span.End()

	day, err := time.Parse("2006-01-02", b.ScheduledDate)
	if err != nil {
		return model.Booking{}, fmt.Errorf("scheduled date: %w", err)
	}
	for attempt := 0; attempt < bookingNumberAttempts; attempt++ {
		b.ID = uuid.NewString()
		created, err := r.insert(ctx, b, day, change)
		if IsUniqueViolation(err, "bookings_number_key") {
			continue
		}
		return created, err
	}
	return model.Booking{}, errors.New("could not allocate a unique booking number")
}

func (r *BookingRepository) insert(ctx context.Context, b model.Booking, day time.Time, change model.StatusChange) (model.Booking, error) {
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		var seq int64
		if err := tx.QueryRow(ctx, `SELECT nextval('booking_number_seq')`).Scan(&seq); err != nil {
			return err
		}
		b.Number = model.BookingNumber(b.CreatedAt, seq)
		b.Version = 1

		_, err := tx.Exec(ctx, `
			INSERT INTO bookings
				(id, booking_number, customer_id, provider_id, provider_user_id, service_id,
				 scheduled_date, scheduled_time, status,
				 customer_name, customer_phone, customer_address,
				 service_name, service_price, service_duration_minutes,
				 customer_notes, created_at, updated_at, version)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		`, b.ID, b.Number, b.CustomerID, b.ProviderID, b.ProviderUserID, b.ServiceID,
			day, b.ScheduledTime, string(b.Status),
			b.CustomerName, b.CustomerPhone, b.CustomerAddress,
			b.ServiceName, b.ServicePrice, b.ServiceDurationMinutes,
			b.CustomerNotes, b.CreatedAt, b.UpdatedAt, b.Version)
		if err != nil {
			return err
		}

		change.BookingID = b.ID
		return insertHistory(ctx, tx, change)
	})
	if err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

func (r *BookingRepository) Get(ctx context.Context, id string) (model.Booking, error) {
	ctx, span := db.StartSpan(ctx, "bookings.get")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return model.Booking{}, model.ErrNotFound
	}
	b, err := scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if IsNotFound(err) {
		return model.Booking{}, model.ErrNotFound
	}
	return b, err
}

// Update locks the row, lets fn mutate it, and writes it back guarded by
// the version it read, together with the history entry fn returns.
func (r *BookingRepository) Update(ctx context.Context, id string, fn lifecycle.MutateFunc) (model.Booking, error) {
	ctx, span := db.StartSpan(ctx, "bookings.update")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return model.Booking{}, model.ErrNotFound
	}
	var next model.Booking
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		current, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id))
		if IsNotFound(err) {
			return model.ErrNotFound
		}
		if err != nil {
			return err
		}

		next = current
		change, err := fn(&next)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE bookings
			SET status = $3,
				provider_notes = $4,
				cancellation_reason = $5,
				cancelled_by = $6,
				confirmed_at = $7,
				completed_at = $8,
				cancelled_at = $9,
				updated_at = $10,
				version = version + 1
			WHERE id = $1 AND version = $2
		`, id, current.Version, string(next.Status), next.ProviderNotes, next.CancellationReason,
			nullIfEmpty(string(next.CancelledBy)), next.ConfirmedAt, next.CompletedAt, next.CancelledAt, next.UpdatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return model.ErrVersionConflict
		}
		next.Version = current.Version + 1
		return insertHistory(ctx, tx, change)
	})
	if err != nil {
		return model.Booking{}, err
	}
	return next, nil
}

func (r *BookingRepository) List(ctx context.Context, f model.BookingFilter) (model.BookingPage, error) {
	ctx, span := db.StartSpan(ctx, "bookings.list")
	defer span.End()

	page := model.BookingPage{Items: []model.Booking{}, Limit: f.Limit, Offset: f.Offset}
	if f.ProviderID != "" {
		if _, err := uuid.Parse(f.ProviderID); err != nil {
			return page, nil
		}
	}

	var (
		conds []string
		args  []any
	)
	where := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		where("status = $%d", string(f.Status))
	}
	if f.CustomerID != "" {
		where("customer_id = $%d", f.CustomerID)
	}
	if f.ProviderID != "" {
		where("provider_id = $%d", f.ProviderID)
	}
	clause := ""
	if len(conds) > 0 {
		clause = " WHERE " + strings.Join(conds, " AND ")
	}

	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM bookings`+clause, args...).Scan(&page.Total); err != nil {
		return model.BookingPage{}, err
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM bookings%s
		ORDER BY created_at DESC, booking_number DESC
		LIMIT $%d OFFSET $%d
	`, bookingColumns, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return model.BookingPage{}, err
	}
	items, err := collectBookings(rows)
	if err != nil {
		return model.BookingPage{}, err
	}
	page.Items = items
	return page, nil
}

func (r *BookingRepository) ActiveOnDate(ctx context.Context, providerID, date string) ([]model.Booking, error) {
	ctx, span := db.StartSpan(ctx, "bookings.active_on_date")
	defer span.End()

	if _, err := uuid.Parse(providerID); err != nil {
		return nil, nil
	}
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE provider_id = $1
			AND scheduled_date = $2
			AND status IN ('pending', 'confirmed', 'in-progress')
		ORDER BY scheduled_time ASC
	`, providerID, day)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *BookingRepository) History(ctx context.Context, id string) ([]model.StatusChange, error) {
	ctx, span := db.StartSpan(ctx, "bookings.history")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
		SELECT booking_id::text, COALESCE(from_status, ''), to_status, actor_id, actor_role, changed_at
		FROM booking_status_history
		WHERE booking_id = $1
		ORDER BY id ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []model.StatusChange
	for rows.Next() {
		var c model.StatusChange
		var from, to, role string
		if err := rows.Scan(&c.BookingID, &from, &to, &c.ActorID, &role, &c.At); err != nil {
			return nil, err
		}
		c.From, c.To, c.ActorRole = model.Status(from), model.Status(to), model.Role(role)
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

func insertHistory(ctx context.Context, tx pgx.Tx, c model.StatusChange) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO booking_status_history (booking_id, from_status, to_status, actor_id, actor_role, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.BookingID, nullIfEmpty(string(c.From)), string(c.To), c.ActorID, string(c.ActorRole), c.At)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (model.Booking, error) {
	var (
		b                   model.Booking
		status, cancelledBy string
	)
	err := row.Scan(
		&b.ID,
		&b.Number,
		&b.CustomerID,
		&b.ProviderID,
		&b.ProviderUserID,
		&b.ServiceID,
		&b.ScheduledDate,
		&b.ScheduledTime,
		&status,
		&b.CustomerName,
		&b.CustomerPhone,
		&b.CustomerAddress,
		&b.ServiceName,
		&b.ServicePrice,
		&b.ServiceDurationMinutes,
		&b.CustomerNotes,
		&b.ProviderNotes,
		&b.CancellationReason,
		&cancelledBy,
		&b.CreatedAt,
		&b.ConfirmedAt,
		&b.CompletedAt,
		&b.CancelledAt,
		&b.UpdatedAt,
		&b.Version,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.Status = model.Status(status)
	b.CancelledBy = model.Role(cancelledBy)
	return b, nil
}

func collectBookings(rows pgx.Rows) ([]model.Booking, error) {
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
