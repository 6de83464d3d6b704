package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/servicehub/libs/db"
	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/lifecycle"
	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/model"
)

// DirectoryRepository reads providers, their services and weekly hours.
// Those rows are owned by the catalog service; this side never writes them.
type DirectoryRepository struct {
	pool *db.Pool
}

var _ lifecycle.Directory = (*DirectoryRepository)(nil)

func NewDirectoryRepository(pool *db.Pool) *DirectoryRepository {
	return &DirectoryRepository{pool: pool}
}

func (r *DirectoryRepository) GetService(ctx context.Context, id string) (model.Service, error) {
	ctx, span := db.StartSpan(ctx, "services.get")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return model.Service{}, model.ErrNotFound
	}
	var s model.Service
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, provider_id::text, name, price::text, duration_minutes, is_active
		FROM services
		WHERE id = $1
	`, id).Scan(&s.ID, &s.ProviderID, &s.Name, &s.Price, &s.DurationMinutes, &s.IsActive)
	if IsNotFound(err) {
		return model.Service{}, model.ErrNotFound
	}
	return s, err
}

const providerColumns = `id::text, user_id, business_name, is_approved, is_active, total_bookings, completed_bookings`

func (r *DirectoryRepository) GetProvider(ctx context.Context, id string) (model.Provider, error) {
	ctx, span := db.StartSpan(ctx, "providers.get")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return model.Provider{}, model.ErrNotFound
	}
	return r.provider(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = $1`, id)
}

func (r *DirectoryRepository) ProviderByUser(ctx context.Context, userID string) (model.Provider, error) {
	ctx, span := db.StartSpan(ctx, "providers.by_user")
	defer span.End()

	return r.provider(ctx, `SELECT `+providerColumns+` FROM providers WHERE user_id = $1`, userID)
}

func (r *DirectoryRepository) provider(ctx context.Context, query string, arg string) (model.Provider, error) {
	var p model.Provider
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&p.ID,
		&p.UserID,
		&p.BusinessName,
		&p.IsApproved,
		&p.IsActive,
		&p.TotalBookings,
		&p.CompletedBookings,
	)
	if IsNotFound(err) {
		return model.Provider{}, model.ErrNotFound
	}
	return p, err
}

func (r *DirectoryRepository) WorkingHours(ctx context.Context, providerID string, day time.Weekday) (model.WorkingHours, error) {
	ctx, span := db.StartSpan(ctx, "providers.working_hours")
	defer span.End()

	if _, err := uuid.Parse(providerID); err != nil {
		return model.WorkingHours{}, model.ErrNotFound
	}
	wh := model.WorkingHours{ProviderID: providerID, Weekday: day}
	err := r.pool.QueryRow(ctx, `
		SELECT is_working, start_minute, end_minute
		FROM provider_working_hours
		WHERE provider_id = $1 AND weekday = $2
	`, providerID, int(day)).Scan(&wh.IsWorking, &wh.StartMinute, &wh.EndMinute)
	if IsNotFound(err) {
		return model.WorkingHours{}, model.ErrNotFound
	}
	return wh, err
}
