package handlers

import (
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/lifecycle"
	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/model"
)

// BookingHandler is the HTTP adapter over the lifecycle engine.
type BookingHandler struct {
	engine *lifecycle.Engine
	logger *slog.Logger
}

func NewBookingHandler(engine *lifecycle.Engine, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{engine: engine, logger: logger}
}

// Register mounts the booking API on mux. Every route except slot lookup
// goes through authn.
func (h *BookingHandler) Register(mux *http.ServeMux, authn func(http.Handler) http.Handler) {
	authed := func(f http.HandlerFunc) http.Handler { return authn(f) }

	mux.Handle("POST /api/v1/bookings", authed(h.Create))
	mux.Handle("GET /api/v1/bookings/{id}", authed(h.Get))
	mux.Handle("GET /api/v1/bookings/{id}/history", authed(h.History))
	mux.Handle("POST /api/v1/bookings/{id}/confirm", authed(h.Confirm))
	mux.Handle("POST /api/v1/bookings/{id}/start", authed(h.Start))
	mux.Handle("POST /api/v1/bookings/{id}/complete", authed(h.Complete))
	mux.Handle("POST /api/v1/bookings/{id}/cancel", authed(h.Cancel))

	mux.Handle("GET /api/v1/me/bookings", authed(h.ListMine))
	mux.Handle("GET /api/v1/provider/bookings", authed(h.ListProvider))
	mux.Handle("GET /api/v1/provider/stats", authed(h.ProviderStats))
	mux.Handle("GET /api/v1/admin/bookings", authed(h.ListAll))

	mux.HandleFunc("GET /api/v1/public/slots", h.Slots)
}

type createBookingRequest struct {
	ServiceID       string `json:"service_id"`
	ScheduledDate   string `json:"scheduled_date"`
	ScheduledTime   string `json:"scheduled_time"`
	CustomerName    string `json:"customer_name"`
	CustomerPhone   string `json:"customer_phone"`
	CustomerAddress string `json:"customer_address"`
	CustomerNotes   string `json:"customer_notes"`
}

type confirmRequest struct {
	ProviderNotes string `json:"provider_notes"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	var req createBookingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(lifecycle.KindValidationFailed), "invalid json body")
		return
	}
	b, err := h.engine.CreateBooking(r.Context(), actor, lifecycle.CreateBookingInput{
		ServiceID:       req.ServiceID,
		ScheduledDate:   req.ScheduledDate,
		ScheduledTime:   req.ScheduledTime,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		CustomerNotes:   req.CustomerNotes,
	})
	if err != nil {
		writeEngineError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingResponse(b))
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	b, err := h.engine.GetBooking(r.Context(), actor, r.PathValue("id"))
	h.respondBooking(w, r, b, err)
}

func (h *BookingHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	changes, err := h.engine.GetBookingHistory(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeEngineError(w, h.logger, r, err)
		return
	}
	items := make([]historyItem, 0, len(changes))
	for _, c := range changes {
		items = append(items, historyItem{
			From:      string(c.From),
			To:        string(c.To),
			ActorID:   c.ActorID,
			ActorRole: string(c.ActorRole),
			ChangedAt: c.At,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	var req confirmRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(lifecycle.KindValidationFailed), "invalid json body")
		return
	}
	b, err := h.engine.ConfirmBooking(r.Context(), actor, r.PathValue("id"), req.ProviderNotes)
	h.respondBooking(w, r, b, err)
}

func (h *BookingHandler) Start(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	b, err := h.engine.StartBooking(r.Context(), actor, r.PathValue("id"))
	h.respondBooking(w, r, b, err)
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	b, err := h.engine.CompleteBooking(r.Context(), actor, r.PathValue("id"))
	h.respondBooking(w, r, b, err)
}

// Cancel ignores any cancelled_by in the body; the engine derives it.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	var req cancelRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(lifecycle.KindValidationFailed), "invalid json body")
		return
	}
	b, err := h.engine.CancelBooking(r.Context(), actor, r.PathValue("id"), req.Reason)
	h.respondBooking(w, r, b, err)
}

func (h *BookingHandler) respondBooking(w http.ResponseWriter, r *http.Request, b model.Booking, err error) {
	if err != nil {
		writeEngineError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	q, ok := listQuery(w, r)
	if !ok {
		return
	}
	page, err := h.engine.ListCustomerBookings(r.Context(), actor, q)
	h.respondPage(w, r, page, err)
}

func (h *BookingHandler) ListProvider(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	q, ok := listQuery(w, r)
	if !ok {
		return
	}
	page, err := h.engine.ListProviderBookings(r.Context(), actor, q)
	h.respondPage(w, r, page, err)
}

func (h *BookingHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	q, ok := listQuery(w, r)
	if !ok {
		return
	}
	page, err := h.engine.ListAllBookings(r.Context(), actor, lifecycle.AdminQuery{
		ListQuery:  q,
		CustomerID: r.URL.Query().Get("customer_id"),
		ProviderID: r.URL.Query().Get("provider_id"),
	})
	h.respondPage(w, r, page, err)
}

func listQuery(w http.ResponseWriter, r *http.Request) (lifecycle.ListQuery, bool) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, string(lifecycle.KindValidationFailed), "limit must be an integer")
		return lifecycle.ListQuery{}, false
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, http.StatusBadRequest, string(lifecycle.KindValidationFailed), "offset must be an integer")
		return lifecycle.ListQuery{}, false
	}
	return lifecycle.ListQuery{Status: r.URL.Query().Get("status"), Limit: limit, Offset: offset}, true
}

func (h *BookingHandler) respondPage(w http.ResponseWriter, r *http.Request, page model.BookingPage, err error) {
	if err != nil {
		writeEngineError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPageResponse(page))
}

func (h *BookingHandler) ProviderStats(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())
	stats, err := h.engine.GetProviderStats(r.Context(), actor, r.URL.Query().Get("provider_id"))
	if err != nil {
		writeEngineError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		ProviderID:        stats.ProviderID,
		TotalBookings:     stats.TotalBookings,
		CompletedBookings: stats.CompletedBookings,
	})
}

func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	slots, err := h.engine.AvailableSlots(r.Context(), q.Get("service_id"), q.Get("date"))
	if err != nil {
		writeEngineError(w, h.logger, r, err)
		return
	}
	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotItem{Date: s.Date, StartTime: s.StartTime, EndTime: s.EndTime})
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": items})
}
