package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/facility-scheduler/internal/application"
	"github.com/example/facility-scheduler/internal/domain"
)

type facilityService interface {
	CreateBuilding(ctx context.Context, principal application.Principal, input domain.Building) (domain.Building, error)
	UpdateBuilding(ctx context.Context, principal application.Principal, input domain.Building) (domain.Building, error)
	DeleteBuilding(ctx context.Context, principal application.Principal, id string) error
	GetBuilding(ctx context.Context, id string) (domain.Building, error)
	ListBuildings(ctx context.Context) ([]domain.Building, error)
	CreateRoom(ctx context.Context, principal application.Principal, input domain.Room) (domain.Room, error)
	UpdateRoom(ctx context.Context, principal application.Principal, input domain.Room) (domain.Room, error)
	DeleteRoom(ctx context.Context, principal application.Principal, id string) error
	GetRoom(ctx context.Context, id string) (domain.Room, error)
	ListRooms(ctx context.Context, buildingID string) ([]domain.Room, error)
}

// FacilityHandler serves buildings and rooms.
type FacilityHandler struct {
	service   facilityService
	responder responder
	logger    *slog.Logger
}

func NewFacilityHandler(service facilityService, logger *slog.Logger) *FacilityHandler {
	base := defaultLogger(logger)
	return &FacilityHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *FacilityHandler) log(r *http.Request, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(r.Context(), h.logger, "FacilityHandler", operation, attrs...)
}

type buildingResponse struct {
	Building domain.Building `json:"building"`
}

type listBuildingsResponse struct {
	Buildings []domain.Building `json:"buildings"`
}

type roomResponse struct {
	Room domain.Room `json:"room"`
}

type listRoomsResponse struct {
	Rooms []domain.Room `json:"rooms"`
}

func (h *FacilityHandler) ListBuildings(w http.ResponseWriter, r *http.Request) {
	buildings, err := h.service.ListBuildings(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBuildingsResponse{Buildings: nonNil(buildings)})
}

func (h *FacilityHandler) GetBuilding(w http.ResponseWriter, r *http.Request) {
	building, err := h.service.GetBuilding(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, buildingResponse{Building: building})
}

func (h *FacilityHandler) CreateBuilding(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req domain.Building
	if err := decodeJSON(r, &req); err != nil {
		h.log(r, "CreateBuilding", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode building")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, err)
		return
	}

	building, err := h.service.CreateBuilding(r.Context(), principal, req)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, buildingResponse{Building: building})
}

func (h *FacilityHandler) UpdateBuilding(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req domain.Building
	if err := decodeJSON(r, &req); err != nil {
		h.log(r, "UpdateBuilding", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode building")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, err)
		return
	}
	req.ID = mux.Vars(r)["id"]

	building, err := h.service.UpdateBuilding(r.Context(), principal, req)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, buildingResponse{Building: building})
}

func (h *FacilityHandler) DeleteBuilding(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteBuilding(r.Context(), principal, mux.Vars(r)["id"]); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *FacilityHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.service.ListRooms(r.Context(), r.URL.Query().Get("building_id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRoomsResponse{Rooms: nonNil(rooms)})
}

func (h *FacilityHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.service.GetRoom(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomResponse{Room: room})
}

func (h *FacilityHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req domain.Room
	if err := decodeJSON(r, &req); err != nil {
		h.log(r, "CreateRoom", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode room")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, err)
		return
	}

	room, err := h.service.CreateRoom(r.Context(), principal, req)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, roomResponse{Room: room})
}

func (h *FacilityHandler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req domain.Room
	if err := decodeJSON(r, &req); err != nil {
		h.log(r, "UpdateRoom", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode room")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, err)
		return
	}
	req.ID = mux.Vars(r)["id"]

	room, err := h.service.UpdateRoom(r.Context(), principal, req)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, roomResponse{Room: room})
}

func (h *FacilityHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteRoom(r.Context(), principal, mux.Vars(r)["id"]); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
