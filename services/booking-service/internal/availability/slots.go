package availability

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/model"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"

	// DefaultDuration applies to services that do not declare one.
	DefaultDuration = 60 * time.Minute
)

type Interval struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether other lies fully inside i.
func (i Interval) Contains(other Interval) bool {
	return !other.Start.Before(i.Start) && !other.End.After(i.End)
}

// ParseDate parses a calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// ParseClock parses a zero-padded 24 hour HH:MM time of day. time.Parse alone
// accepts a single digit hour, which the schema rejects.
func ParseClock(s string) (time.Time, error) {
	if len(s) != len(ClockLayout) {
		return time.Time{}, fmt.Errorf("time of day %q is not HH:MM", s)
	}
	return time.ParseInLocation(ClockLayout, s, time.UTC)
}

// At combines a calendar date and an HH:MM time of day into a UTC instant.
func At(date, clock string) (time.Time, error) {
	day, err := ParseDate(date)
	if err != nil {
		return time.Time{}, fmt.Errorf("scheduled date %q: %w", date, err)
	}
	tod, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("scheduled time %q: %w", clock, err)
	}
	return day.Add(time.Duration(tod.Hour())*time.Hour + time.Duration(tod.Minute())*time.Minute), nil
}

func serviceDuration(minutes int) time.Duration {
	if minutes <= 0 {
		return DefaultDuration
	}
	return time.Duration(minutes) * time.Minute
}

// BookingInterval is the calendar span a booking occupies.
func BookingInterval(b model.Booking) (Interval, error) {
	start, err := At(b.ScheduledDate, b.ScheduledTime)
	if err != nil {
		return Interval{}, err
	}
	return Interval{Start: start, End: start.Add(serviceDuration(b.ServiceDurationMinutes))}, nil
}

// WorkingWindow returns the provider's open interval on day, or false when
// the provider does not work that weekday.
func WorkingWindow(day time.Time, wh model.WorkingHours) (Interval, bool) {
	if !wh.IsWorking || wh.EndMinute <= wh.StartMinute || wh.Weekday != day.Weekday() {
		return Interval{}, false
	}
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return Interval{
		Start: midnight.Add(time.Duration(wh.StartMinute) * time.Minute),
		End:   midnight.Add(time.Duration(wh.EndMinute) * time.Minute),
	}, true
}

// WithinHours reports whether a booking of durationMinutes starting at
// date/clock fits inside the working hours.
func WithinHours(wh model.WorkingHours, date, clock string, durationMinutes int) bool {
	start, err := At(date, clock)
	if err != nil {
		return false
	}
	window, ok := WorkingWindow(start, wh)
	if !ok {
		return false
	}
	return window.Contains(Interval{Start: start, End: start.Add(serviceDuration(durationMinutes))})
}

// OpenSlots lists bookable start times on date for a service of
// durationMinutes, stepping by the same duration.
func OpenSlots(date string, wh model.WorkingHours, durationMinutes int, busy []model.Booking, now time.Time) ([]model.Slot, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	window, ok := WorkingWindow(day, wh)
	if !ok {
		return []model.Slot{}, nil
	}

	intervals := make([]Interval, 0, len(busy))
	for _, b := range busy {
		iv, err := BookingInterval(b)
		if err != nil {
			continue
		}
		intervals = append(intervals, iv)
	}

	d := serviceDuration(durationMinutes)
	starts := AvailableSlots(window.Start, window.End, d, d, intervals, now)
	slots := make([]model.Slot, 0, len(starts))
	for _, s := range starts {
		slots = append(slots, model.Slot{
			Date:      date,
			StartTime: s.Format(ClockLayout),
			EndTime:   s.Add(d).Format(ClockLayout),
		})
	}
	return slots, nil
}

// AvailableSlots returns slot start times within [windowStart, windowEnd) where a booking of
// length duration would not overlap any of the busy intervals.
func AvailableSlots(windowStart, windowEnd time.Time, duration, step time.Duration, busy []Interval, now time.Time) []time.Time {
	if duration <= 0 || step <= 0 {
		return nil
	}
	if windowStart.Add(duration).After(windowEnd) {
		return nil
	}

	var slots []time.Time
	for t := windowStart; !t.Add(duration).After(windowEnd); t = t.Add(step) {
		if t.Before(now) {
			continue
		}
		if !overlapsAny(t, t.Add(duration), busy) {
			slots = append(slots, t)
		}
	}
	return slots
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		// half-open: [start,end) overlaps [b.Start,b.End) iff start < b.End && b.Start < end
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}
