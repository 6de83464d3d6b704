package model

import "time"

type Provider struct {
	ID                string
	UserID            string
	BusinessName      string
	IsApproved        bool
	IsActive          bool
	TotalBookings     int64
	CompletedBookings int64
}

// Bookable reports whether new bookings may be placed with the provider.
func (p Provider) Bookable() bool {
	return p.IsApproved && p.IsActive
}

type Service struct {
	ID              string
	ProviderID      string
	Name            string
	Price           string
	DurationMinutes int
	IsActive        bool
}

// WorkingHours is one weekday of a provider's weekly schedule, in minutes
// since midnight UTC.
type WorkingHours struct {
	ProviderID  string
	Weekday     time.Weekday
	IsWorking   bool
	StartMinute int
	EndMinute   int
}

type ProviderStats struct {
	ProviderID        string
	TotalBookings     int64
	CompletedBookings int64
}

type Slot struct {
	Date      string
	StartTime string
	EndTime   string
}
