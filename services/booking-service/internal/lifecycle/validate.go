package lifecycle

import (
	"strings"
	"unicode/utf8"

	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/model"
)

const (
	MaxNoteLength = 500

	DefaultPageSize = 50
	MaxPageSize     = 200
)

type CreateBookingInput struct {
	ServiceID       string
	ScheduledDate   string
	ScheduledTime   string
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	CustomerNotes   string
}

func (in CreateBookingInput) normalized() CreateBookingInput {
	in.ServiceID = strings.TrimSpace(in.ServiceID)
	in.ScheduledDate = strings.TrimSpace(in.ScheduledDate)
	in.ScheduledTime = strings.TrimSpace(in.ScheduledTime)
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	in.CustomerAddress = strings.TrimSpace(in.CustomerAddress)
	in.CustomerNotes = strings.TrimSpace(in.CustomerNotes)
	return in
}

func (in CreateBookingInput) validate() error {
	switch {
	case in.ServiceID == "":
		return validationFailed("service id is required")
	case in.CustomerName == "":
		return validationFailed("customer name is required")
	case in.CustomerPhone == "":
		return validationFailed("customer phone is required")
	case in.CustomerAddress == "":
		return validationFailed("customer address is required")
	}
	if _, err := availability.ParseDate(in.ScheduledDate); err != nil {
		return validationFailed("scheduled date must be YYYY-MM-DD")
	}
	if _, err := availability.ParseClock(in.ScheduledTime); err != nil {
		return validationFailed("scheduled time must be HH:MM")
	}
	return checkNote("customer notes", in.CustomerNotes)
}

func checkNote(field, v string) error {
	if utf8.RuneCountInString(v) > MaxNoteLength {
		return validationFailed("%s must be at most %d characters", field, MaxNoteLength)
	}
	return nil
}

func checkReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", validationFailed("cancellation reason is required")
	}
	if err := checkNote("cancellation reason", reason); err != nil {
		return "", err
	}
	return reason, nil
}

// ListQuery pages through one side's bookings.
type ListQuery struct {
	Status string
	Limit  int
	Offset int
}

// AdminQuery additionally filters by either party.
type AdminQuery struct {
	ListQuery
	CustomerID string
	ProviderID string
}

func (q ListQuery) filter() (model.BookingFilter, error) {
	f := model.BookingFilter{Limit: q.Limit, Offset: q.Offset}
	if f.Limit == 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit < 1 || f.Limit > MaxPageSize {
		return f, validationFailed("limit must be between 1 and %d", MaxPageSize)
	}
	if f.Offset < 0 {
		return f, validationFailed("offset must not be negative")
	}
	if q.Status != "" {
		s, err := model.ParseStatus(q.Status)
		if err != nil {
			return f, validationFailed("%s", err.Error())
		}
		f.Status = s
	}
	return f, nil
}
