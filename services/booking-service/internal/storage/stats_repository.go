package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/servicehub/libs/db"
	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/lifecycle"
	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/model"
)

// StatsRepository bumps provider counters with single-statement increments
// so concurrent completions for one provider never lose an update.
type StatsRepository struct {
	pool *db.Pool
}

var _ lifecycle.Stats = (*StatsRepository)(nil)

func NewStatsRepository(pool *db.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

func (r *StatsRepository) IncrementTotalBookings(ctx context.Context, providerID string) error {
	ctx, span := db.StartSpan(ctx, "providers.increment_total")
	defer span.End()
	return r.exec(ctx, `
		UPDATE providers
		SET total_bookings = total_bookings + 1, updated_at = now()
		WHERE id = $1
	`, providerID)
}

func (r *StatsRepository) IncrementCompletedBookings(ctx context.Context, providerID string) error {
	ctx, span := db.StartSpan(ctx, "providers.increment_completed")
	defer span.End()
	return r.exec(ctx, `
		UPDATE providers
		SET completed_bookings = completed_bookings + 1, updated_at = now()
		WHERE id = $1
	`, providerID)
}

func (r *StatsRepository) exec(ctx context.Context, query, providerID string) error {
	if _, err := uuid.Parse(providerID); err != nil {
		return model.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, query, providerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
