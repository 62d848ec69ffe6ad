package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/facility-scheduler/internal/application"
	"github.com/example/facility-scheduler/internal/domain"
	"github.com/example/facility-scheduler/internal/recurrence"
)

type bookingService interface {
	ProposeBooking(ctx context.Context, principal application.Principal, proposal domain.Schedule) (domain.Schedule, error)
	CancelBooking(ctx context.Context, principal application.Principal, id string) error
	GetBooking(ctx context.Context, id string) (domain.Schedule, error)
	ListBookings(ctx context.Context, roomID string, within *application.TimeRange) ([]domain.Schedule, error)
	ListOccurrences(ctx context.Context, roomID string, within application.TimeRange) ([]recurrence.Occurrence, error)
}

// BookingHandler serves schedule proposals, cancellations and room calendars.
type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(r *http.Request, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(r.Context(), h.logger, "BookingHandler", operation, attrs...)
}

type recurrenceRequest struct {
	Type domain.RecurrenceType `json:"type"`
	Days []int                 `json:"days"`
}

type scheduleRequest struct {
	ID         string             `json:"id"`
	RoomID     string             `json:"room_id"`
	Title      domain.Localized   `json:"title"`
	Kind       domain.Kind        `json:"kind"`
	Start      time.Time          `json:"start"`
	End        time.Time          `json:"end"`
	Recurrence *recurrenceRequest `json:"recurrence"`
}

func (req scheduleRequest) toSchedule() (domain.Schedule, error) {
	rec := domain.NoRecurrence()
	if req.Recurrence != nil {
		parsed, err := domain.ParseRecurrence(req.Recurrence.Type, req.Recurrence.Days)
		if err != nil {
			return domain.Schedule{}, &application.ValidationError{FieldErrors: map[string]string{"recurrence": err.Error()}}
		}
		rec = parsed
	}
	return domain.Schedule{
		ID:         req.ID,
		RoomID:     req.RoomID,
		Title:      req.Title,
		Kind:       req.Kind,
		Start:      req.Start,
		End:        req.End,
		Recurrence: rec,
	}, nil
}

type bookingResponse struct {
	Booking domain.Schedule `json:"booking"`
}

type listBookingsResponse struct {
	Bookings []domain.Schedule `json:"bookings"`
}

type occurrenceDTO struct {
	ScheduleID string    `json:"schedule_id"`
	RoomID     string    `json:"room_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}

type listOccurrencesResponse struct {
	Occurrences []occurrenceDTO `json:"occurrences"`
}

func toOccurrenceDTOs(occurrences []recurrence.Occurrence) []occurrenceDTO {
	out := make([]occurrenceDTO, 0, len(occurrences))
	for _, o := range occurrences {
		out = append(out, occurrenceDTO{ScheduleID: o.ScheduleID, RoomID: o.RoomID, Start: o.Start, End: o.End})
	}
	return out
}

// Propose handles POST /bookings and PUT /bookings/{id}.
func (h *BookingHandler) Propose(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r, "Propose", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode booking")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, err)
		return
	}

	status := http.StatusCreated
	if id, ok := mux.Vars(r)["id"]; ok {
		req.ID = id
		status = http.StatusOK
	}

	proposal, err := req.toSchedule()
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	accepted, err := h.service.ProposeBooking(r.Context(), principal, proposal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, status, bookingResponse{Booking: accepted})
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.service.GetBooking(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, bookingResponse{Booking: schedule})
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.CancelBooking(r.Context(), principal, mux.Vars(r)["id"]); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// ListForRoom handles GET /rooms/{id}/bookings. The range is optional but
// from and to must be given together.
func (h *BookingHandler) ListForRoom(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var within *application.TimeRange
	if query.Has("from") || query.Has("to") {
		parsed, err := parseRange(query)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, err)
			return
		}
		within = &parsed
	}

	schedules, err := h.service.ListBookings(r.Context(), mux.Vars(r)["id"], within)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Bookings: nonNil(schedules)})
}

// Occurrences handles GET /rooms/{id}/occurrences?from=&to=.
func (h *BookingHandler) Occurrences(w http.ResponseWriter, r *http.Request) {
	within, err := parseRange(r.URL.Query())
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, err)
		return
	}

	occurrences, err := h.service.ListOccurrences(r.Context(), mux.Vars(r)["id"], within)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listOccurrencesResponse{Occurrences: toOccurrenceDTOs(occurrences)})
}

// parseRange reads RFC 3339 from and to. Absent values stay zero and are
// rejected by the service as validation errors.
func parseRange(query url.Values) (application.TimeRange, error) {
	var within application.TimeRange
	for key, dst := range map[string]*time.Time{"from": &within.From, "to": &within.To} {
		raw := query.Get(key)
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return application.TimeRange{}, errInvalidRange
		}
		*dst = parsed
	}
	return within, nil
}
