package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/lifecycle"
	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/model"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, kind, msg string) {
	writeJSON(w, code, errorResponse{Error: msg, Kind: kind})
}

// statusFor maps engine error kinds onto HTTP status codes.
func statusFor(kind lifecycle.Kind) int {
	switch kind {
	case lifecycle.KindNotFound:
		return http.StatusNotFound
	case lifecycle.KindUnavailable:
		return http.StatusUnprocessableEntity
	case lifecycle.KindForbidden:
		return http.StatusForbidden
	case lifecycle.KindInvalidTransition:
		return http.StatusConflict
	case lifecycle.KindValidationFailed:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeEngineError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	kind := lifecycle.KindOf(err)
	if kind == "" {
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "Internal", "internal error")
		return
	}
	writeError(w, statusFor(kind), string(kind), err.Error())
}

// decodeBody reads an optional JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

type bookingResponse struct {
	ID                     string     `json:"id"`
	BookingNumber          string     `json:"booking_number"`
	CustomerID             string     `json:"customer_id"`
	ProviderID             string     `json:"provider_id"`
	ServiceID              string     `json:"service_id"`
	ScheduledDate          string     `json:"scheduled_date"`
	ScheduledTime          string     `json:"scheduled_time"`
	Status                 string     `json:"status"`
	CustomerName           string     `json:"customer_name"`
	CustomerPhone          string     `json:"customer_phone"`
	CustomerAddress        string     `json:"customer_address"`
	ServiceName            string     `json:"service_name"`
	ServicePrice           string     `json:"service_price"`
	ServiceDurationMinutes int        `json:"service_duration_minutes"`
	CustomerNotes          string     `json:"customer_notes,omitempty"`
	ProviderNotes          string     `json:"provider_notes,omitempty"`
	CancellationReason     string     `json:"cancellation_reason,omitempty"`
	CancelledBy            string     `json:"cancelled_by,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	ConfirmedAt            *time.Time `json:"confirmed_at,omitempty"`
	CompletedAt            *time.Time `json:"completed_at,omitempty"`
	CancelledAt            *time.Time `json:"cancelled_at,omitempty"`
	UpdatedAt              time.Time  `json:"updated_at"`
	Version                int        `json:"version"`
}

func toBookingResponse(b model.Booking) bookingResponse {
	return bookingResponse{
		ID:                     b.ID,
		BookingNumber:          b.Number,
		CustomerID:             b.CustomerID,
		ProviderID:             b.ProviderID,
		ServiceID:              b.ServiceID,
		ScheduledDate:          b.ScheduledDate,
		ScheduledTime:          b.ScheduledTime,
		Status:                 string(b.Status),
		CustomerName:           b.CustomerName,
		CustomerPhone:          b.CustomerPhone,
		CustomerAddress:        b.CustomerAddress,
		ServiceName:            b.ServiceName,
		ServicePrice:           b.ServicePrice,
		ServiceDurationMinutes: b.ServiceDurationMinutes,
		CustomerNotes:          b.CustomerNotes,
		ProviderNotes:          b.ProviderNotes,
		CancellationReason:     b.CancellationReason,
		CancelledBy:            string(b.CancelledBy),
		CreatedAt:              b.CreatedAt,
		ConfirmedAt:            b.ConfirmedAt,
		CompletedAt:            b.CompletedAt,
		CancelledAt:            b.CancelledAt,
		UpdatedAt:              b.UpdatedAt,
		Version:                b.Version,
	}
}

type pageResponse struct {
	Items  []bookingResponse `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

func toPageResponse(p model.BookingPage) pageResponse {
	items := make([]bookingResponse, 0, len(p.Items))
	for _, b := range p.Items {
		items = append(items, toBookingResponse(b))
	}
	return pageResponse{Items: items, Total: p.Total, Limit: p.Limit, Offset: p.Offset}
}

type historyItem struct {
	From      string    `json:"from_status,omitempty"`
	To        string    `json:"to_status"`
	ActorID   string    `json:"actor_id"`
	ActorRole string    `json:"actor_role"`
	ChangedAt time.Time `json:"changed_at"`
}

type statsResponse struct {
	ProviderID        string `json:"provider_id"`
	TotalBookings     int64  `json:"total_bookings"`
	CompletedBookings int64  `json:"completed_bookings"`
}

type slotItem struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}
