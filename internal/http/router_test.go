package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/facility-scheduler/internal/application"
	"github.com/example/facility-scheduler/internal/auth"
	"github.com/example/facility-scheduler/internal/domain"
	"github.com/example/facility-scheduler/internal/metrics"
	"github.com/example/facility-scheduler/internal/recurrence"
	"github.com/example/facility-scheduler/internal/testfixtures"
)

type apiHarness struct {
	t        *testing.T
	handler  http.Handler
	services *testfixtures.Services
	metrics  *metrics.Metrics
	token    string
	apiKey   string
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	const apiKey = "front-desk-key"
	hash, err := auth.HashAPIKey(apiKey)
	require.NoError(t, err)
	authenticator, err := auth.NewAuthenticator("test-secret", []string{hash}, time.Now)
	require.NoError(t, err)
	token, err := authenticator.IssueToken("coordinator", true, time.Hour)
	require.NoError(t, err)

	services := testfixtures.NewServices()
	m := metrics.New("test")

	handler := NewRouter(RouterConfig{
		Facilities:     NewFacilityHandler(services.Facility, nil),
		Equipment:      NewEquipmentHandler(services.Equipment, nil),
		Bookings:       NewBookingHandler(services.Booking, nil),
		Resolver:       authenticator,
		Observer:       m,
		MetricsHandler: m.Handler(),
		MetricsPath:    "/metrics",
	})
	return &apiHarness{t: t, handler: handler, services: services, metrics: m, token: token, apiKey: apiKey}
}

// do sends a request. header "bearer" attaches the manager token.
func (h *apiHarness) do(method, path string, body any, credentials string) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	switch credentials {
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+h.token)
	case "api-key":
		req.Header.Set("X-API-Key", h.apiKey)
	case "":
	default:
		req.Header.Set("Authorization", credentials)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (h *apiHarness) seedRoom() domain.Room {
	h.t.Helper()
	_, room, err := h.services.SeedRoom(context.Background())
	require.NoError(h.t, err)
	return room
}

func bookingBody(roomID string, start time.Time, d time.Duration, weekly ...int) map[string]any {
	body := map[string]any{
		"room_id": roomID,
		"title":   map[string]string{"primary": "Speech therapy"},
		"kind":    "therapy",
		"start":   start.Format(time.RFC3339),
		"end":     start.Add(d).Format(time.RFC3339),
	}
	if len(weekly) > 0 {
		body["recurrence"] = map[string]any{"type": "weekly", "days": weekly}
	}
	return body
}

func TestHealthAndMetrics(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	h.do(http.MethodGet, "/api/v1/buildings", nil, "")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.HTTPRequests.WithLabelValues("GET", "/api/v1/buildings", "200")))

	rec = h.do(http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_http_requests_total")
}

func TestAuthentication(t *testing.T) {
	h := newAPIHarness(t)
	building := map[string]any{"name": map[string]string{"primary": "Annex"}, "floors": 1}

	t.Run("anonymous writes are forbidden", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/api/v1/buildings", building, "")
		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, codeForbidden, decodeBody[errorResponse](t, rec).ErrorCode)
	})

	t.Run("invalid credentials are rejected", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/api/v1/buildings", nil, "Bearer not-a-token")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, codeUnauthenticated, decodeBody[errorResponse](t, rec).ErrorCode)
	})

	t.Run("bearer token may manage", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/api/v1/buildings", building, "bearer")
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("api key may manage", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/api/v1/buildings", building, "api-key")
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("request id is echoed", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/api/v1/buildings", nil, "")
		assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	})
}

func TestFacilityEndpoints(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(http.MethodPost, "/api/v1/buildings", map[string]any{
		"name":   map[string]string{"primary": "Garden House"},
		"floors": 2,
	}, "bearer")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	building := decodeBody[buildingResponse](t, rec).Building

	rec = h.do(http.MethodPost, "/api/v1/rooms", map[string]any{
		"building_id": building.ID,
		"name":        map[string]string{"primary": "Sensory room"},
		"type":        "recreational",
		"active":      true,
	}, "bearer")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	room := decodeBody[roomResponse](t, rec).Room

	rec = h.do(http.MethodGet, "/api/v1/rooms?building_id="+building.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[listRoomsResponse](t, rec).Rooms, 1)

	rec = h.do(http.MethodPost, "/api/v1/rooms", map[string]any{
		"building_id": building.ID,
		"name":        map[string]string{"primary": " "},
		"type":        "ballroom",
	}, "bearer")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	failure := decodeBody[errorResponse](t, rec)
	assert.Equal(t, codeValidation, failure.ErrorCode)
	assert.Contains(t, failure.Errors, "name")
	assert.Contains(t, failure.Errors, "type")

	rec = h.do(http.MethodPut, "/api/v1/equipment/eq-1", map[string]any{
		"room_id": room.ID,
		"name":    map[string]string{"primary": "Projector"},
		"status":  "maintenance",
	}, "bearer")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "eq-1", decodeBody[equipmentResponse](t, rec).Equipment.ID)

	rec = h.do(http.MethodGet, "/api/v1/equipment?room_id="+room.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[listEquipmentResponse](t, rec).Equipment, 1)

	rec = h.do(http.MethodDelete, "/api/v1/buildings/"+building.ID, nil, "bearer")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, codeInUse, decodeBody[errorResponse](t, rec).ErrorCode)

	rec = h.do(http.MethodDelete, "/api/v1/rooms/"+room.ID, nil, "bearer")
	require.Equal(t, http.StatusConflict, rec.Code, "equipment still references the room")

	require.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/api/v1/equipment/eq-1", nil, "bearer").Code)
	require.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/api/v1/rooms/"+room.ID, nil, "bearer").Code)
	require.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/api/v1/buildings/"+building.ID, nil, "bearer").Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/v1/buildings/"+building.ID, nil, "").Code)
}

func TestBookingEndpoints(t *testing.T) {
	h := newAPIHarness(t)
	room := h.seedRoom()
	monday := testfixtures.At(time.Monday, 9, 0)

	rec := h.do(http.MethodPost, "/api/v1/bookings", bookingBody(room.ID, monday, time.Hour), "bearer")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decodeBody[bookingResponse](t, rec).Booking
	require.NotEmpty(t, first.ID)

	t.Run("weekly proposal overlapping a one-off conflicts", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/api/v1/bookings", bookingBody(room.ID, monday.Add(30*time.Minute), time.Hour, 1, 3), "bearer")
		require.Equal(t, http.StatusConflict, rec.Code)
		failure := decodeBody[errorResponse](t, rec)
		assert.Equal(t, codeConflict, failure.ErrorCode)
		assert.Equal(t, first.ID, failure.ConflictingScheduleID)
	})

	t.Run("weekly proposal on other days is accepted", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/api/v1/bookings", bookingBody(room.ID, testfixtures.At(time.Tuesday, 9, 0), time.Hour, 2, 4), "bearer")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("malformed proposals", func(t *testing.T) {
		rec := h.do(http.MethodPost, "/api/v1/bookings", bookingBody(room.ID, monday, -time.Hour), "bearer")
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, codeValidation, decodeBody[errorResponse](t, rec).ErrorCode)

		rec = h.do(http.MethodPost, "/api/v1/bookings", bookingBody(room.ID, monday, time.Hour, 9), "bearer")
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeBody[errorResponse](t, rec).Errors, "recurrence")

		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", bytes.NewBufferString("{"))
		req.Header.Set("Authorization", "Bearer "+h.token)
		raw := httptest.NewRecorder()
		h.handler.ServeHTTP(raw, req)
		assert.Equal(t, http.StatusBadRequest, raw.Code)
	})

	t.Run("room calendar", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/api/v1/rooms/"+room.ID+"/bookings", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decodeBody[listBookingsResponse](t, rec).Bookings, 2)

		from := testfixtures.At(time.Monday, 0, 0).Format(time.RFC3339)
		to := testfixtures.At(time.Monday, 23, 0).Format(time.RFC3339)
		rec = h.do(http.MethodGet, "/api/v1/rooms/"+room.ID+"/bookings?from="+from+"&to="+to, nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		bookings := decodeBody[listBookingsResponse](t, rec).Bookings
		require.Len(t, bookings, 1)
		assert.Equal(t, first.ID, bookings[0].ID)

		weekEnd := testfixtures.At(time.Sunday, 23, 0).Format(time.RFC3339)
		rec = h.do(http.MethodGet, "/api/v1/rooms/"+room.ID+"/occurrences?from="+from+"&to="+weekEnd, nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decodeBody[listOccurrencesResponse](t, rec).Occurrences, 3)

		rec = h.do(http.MethodGet, "/api/v1/rooms/"+room.ID+"/occurrences", nil, "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		rec = h.do(http.MethodGet, "/api/v1/rooms/"+room.ID+"/occurrences?from=yesterday&to="+weekEnd, nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = h.do(http.MethodGet, "/api/v1/rooms/missing/bookings", nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("update and cancel", func(t *testing.T) {
		moved := bookingBody(room.ID, testfixtures.At(time.Monday, 15, 0), time.Hour)
		rec := h.do(http.MethodPut, "/api/v1/bookings/"+first.ID, moved, "bearer")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, first.ID, decodeBody[bookingResponse](t, rec).Booking.ID)

		rec = h.do(http.MethodDelete, "/api/v1/bookings/"+first.ID, nil, "")
		assert.Equal(t, http.StatusForbidden, rec.Code)

		assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/api/v1/bookings/"+first.ID, nil, "bearer").Code)
		assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/api/v1/bookings/"+first.ID, nil, "bearer").Code)
		assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/v1/bookings/"+first.ID, nil, "").Code)
	})

	t.Run("unknown route and method", func(t *testing.T) {
		rec := h.do(http.MethodGet, "/api/v1/nowhere", nil, "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, codeNotFound, decodeBody[errorResponse](t, rec).ErrorCode)

		for _, tc := range []struct{ method, path string }{
			{http.MethodPatch, "/api/v1/bookings"},
			{http.MethodPost, "/api/v1/bookings/" + first.ID},
			{http.MethodDelete, "/api/v1/rooms"},
			{http.MethodPatch, "/api/v1/equipment/anything"},
		} {
			rec := h.do(tc.method, tc.path, nil, "bearer")
			require.Equal(t, http.StatusMethodNotAllowed, rec.Code, "%s %s", tc.method, tc.path)
			assert.Equal(t, codeMethodNotAllowed, decodeBody[errorResponse](t, rec).ErrorCode)
		}

		assert.Equal(t, http.StatusMethodNotAllowed, h.do(http.MethodPost, "/healthz", nil, "").Code)
	})
}

type busyBookings struct{}

func (busyBookings) ProposeBooking(ctx context.Context, principal application.Principal, proposal domain.Schedule) (domain.Schedule, error) {
	return domain.Schedule{}, &application.BusyError{RoomID: proposal.RoomID}
}

func (busyBookings) CancelBooking(ctx context.Context, principal application.Principal, id string) error {
	return context.DeadlineExceeded
}

func (busyBookings) GetBooking(ctx context.Context, id string) (domain.Schedule, error) {
	return domain.Schedule{}, application.ErrNotFound
}

func (busyBookings) ListBookings(ctx context.Context, roomID string, within *application.TimeRange) ([]domain.Schedule, error) {
	return nil, nil
}

func (busyBookings) ListOccurrences(ctx context.Context, roomID string, within application.TimeRange) ([]recurrence.Occurrence, error) {
	return nil, nil
}

func TestBusyRoomIsRetryable(t *testing.T) {
	handler := NewRouter(RouterConfig{Bookings: NewBookingHandler(busyBookings{}, nil)})

	body, err := json.Marshal(bookingBody("room-1", testfixtures.At(time.Monday, 9, 0), time.Hour))
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/bookings", bytes.NewReader(body)))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, codeBusy, decodeBody[errorResponse](t, rec).ErrorCode)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rooms/room-1/bookings", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"bookings":[]}`, rec.Body.String())
}
