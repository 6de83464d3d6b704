// Package memstore keeps bookings, the provider directory and counters in
// process memory. It backs local runs without Postgres and the engine and
// handler tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/lifecycle"
	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/model"
)

type Store struct {
	seq atomic.Int64

	mu        sync.Mutex
	bookings  map[string]model.Booking
	numbers   map[string]struct{}
	history   map[string][]model.StatusChange
	providers map[string]model.Provider
	services  map[string]model.Service
	hours     map[string]map[time.Weekday]model.WorkingHours
}

var (
	_ lifecycle.Store     = (*Store)(nil)
	_ lifecycle.Directory = (*Store)(nil)
	_ lifecycle.Stats     = (*Store)(nil)
)

func New() *Store {
	return &Store{
		bookings:  map[string]model.Booking{},
		numbers:   map[string]struct{}{},
		history:   map[string][]model.StatusChange{},
		providers: map[string]model.Provider{},
		services:  map[string]model.Service{},
		hours:     map[string]map[time.Weekday]model.WorkingHours{},
	}
}

func (s *Store) PutProvider(p model.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[p.ID] = p
}

func (s *Store) PutService(svc model.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[svc.ID] = svc
}

func (s *Store) PutWorkingHours(wh model.WorkingHours) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hours[wh.ProviderID] == nil {
		s.hours[wh.ProviderID] = map[time.Weekday]model.WorkingHours{}
	}
	s.hours[wh.ProviderID][wh.Weekday] = wh
}

func (s *Store) Create(_ context.Context, b model.Booking, change model.StatusChange) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b.ID = uuid.NewString()
	for {
		b.Number = model.BookingNumber(b.CreatedAt, s.seq.Add(1))
		if _, taken := s.numbers[b.Number]; !taken {
			break
		}
	}
	b.Version = 1
	change.BookingID = b.ID

	s.numbers[b.Number] = struct{}{}
	s.bookings[b.ID] = b
	s.history[b.ID] = append(s.history[b.ID], change)
	return b, nil
}

func (s *Store) Get(_ context.Context, id string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, model.ErrNotFound
	}
	return b, nil
}

func (s *Store) Update(_ context.Context, id string, fn lifecycle.MutateFunc) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, model.ErrNotFound
	}
	next := current
	change, err := fn(&next)
	if err != nil {
		return model.Booking{}, err
	}
	next.Version = current.Version + 1
	s.bookings[id] = next
	s.history[id] = append(s.history[id], change)
	return next, nil
}

func (s *Store) List(_ context.Context, f model.BookingFilter) (model.BookingPage, error) {
	s.mu.Lock()
	var matched []model.Booking
	for _, b := range s.bookings {
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.CustomerID != "" && b.CustomerID != f.CustomerID {
			continue
		}
		if f.ProviderID != "" && b.ProviderID != f.ProviderID {
			continue
		}
		matched = append(matched, b)
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].Number > matched[j].Number
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page := model.BookingPage{Total: len(matched), Limit: f.Limit, Offset: f.Offset, Items: []model.Booking{}}
	if f.Offset < len(matched) {
		end := len(matched)
		if f.Limit > 0 && f.Offset+f.Limit < end {
			end = f.Offset + f.Limit
		}
		page.Items = matched[f.Offset:end]
	}
	return page, nil
}

func (s *Store) History(_ context.Context, id string) ([]model.StatusChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.StatusChange(nil), s.history[id]...), nil
}

func (s *Store) ActiveOnDate(_ context.Context, providerID, date string) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, b := range s.bookings {
		if b.ProviderID == providerID && b.ScheduledDate == date && b.Status.IsActive() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *Store) GetService(_ context.Context, id string) (model.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.services[id]
	if !ok {
		return model.Service{}, model.ErrNotFound
	}
	return svc, nil
}

func (s *Store) GetProvider(_ context.Context, id string) (model.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.providers[id]
	if !ok {
		return model.Provider{}, model.ErrNotFound
	}
	return p, nil
}

func (s *Store) ProviderByUser(_ context.Context, userID string) (model.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.providers {
		if p.UserID == userID {
			return p, nil
		}
	}
	return model.Provider{}, model.ErrNotFound
}

func (s *Store) WorkingHours(_ context.Context, providerID string, day time.Weekday) (model.WorkingHours, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wh, ok := s.hours[providerID][day]
	if !ok {
		return model.WorkingHours{}, model.ErrNotFound
	}
	return wh, nil
}

func (s *Store) IncrementTotalBookings(_ context.Context, providerID string) error {
	return s.bump(providerID, func(p *model.Provider) { p.TotalBookings++ })
}

func (s *Store) IncrementCompletedBookings(_ context.Context, providerID string) error {
	return s.bump(providerID, func(p *model.Provider) { p.CompletedBookings++ })
}

func (s *Store) bump(providerID string, fn func(*model.Provider)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.providers[providerID]
	if !ok {
		return model.ErrNotFound
	}
	fn(&p)
	s.providers[providerID] = p
	return nil
}
