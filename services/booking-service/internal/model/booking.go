package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned by stores when a row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when a versioned update lost a race.
	ErrVersionConflict = errors.New("booking version conflict")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// ActiveStatuses are the statuses that still occupy a provider's calendar.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed, StatusInProgress}

type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleProvider, RoleAdmin:
		return true
	}
	return false
}

// Actor is the authenticated caller of an engine operation.
type Actor struct {
	UserID string
	Role   Role
}

type Booking struct {
	ID             string
	Number         string
	CustomerID     string
	ProviderID     string
	ProviderUserID string
	ServiceID      string

	ScheduledDate string // YYYY-MM-DD
	ScheduledTime string // HH:MM
	Status        Status

	CustomerName           string
	CustomerPhone          string
	CustomerAddress        string
	ServiceName            string
	ServicePrice           string
	ServiceDurationMinutes int

	CustomerNotes      string
	ProviderNotes      string
	CancellationReason string
	CancelledBy        Role

	CreatedAt   time.Time
	ConfirmedAt *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
	UpdatedAt   time.Time
	Version     int
}

// BookingNumber formats the human-facing reference: BK, unix millis, then
// the sequence value modulo 10000 padded to four digits.
func BookingNumber(at time.Time, seq int64) string {
	return fmt.Sprintf("BK%d%04d", at.UnixMilli(), seq%10000)
}

// StatusChange is one row of a booking's audit trail. From is empty for
// the creation entry.
type StatusChange struct {
	BookingID string
	From      Status
	To        Status
	ActorID   string
	ActorRole Role
	At        time.Time
}

// BookingFilter narrows list queries. Empty fields match everything.
type BookingFilter struct {
	Status     Status
	CustomerID string
	ProviderID string
	Limit      int
	Offset     int
}

type BookingPage struct {
	Items  []Booking
	Total  int
	Limit  int
	Offset int
}
