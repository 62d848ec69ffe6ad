package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/facility-scheduler/internal/application"
	"github.com/example/facility-scheduler/internal/domain"
)

type equipmentService interface {
	UpsertEquipment(ctx context.Context, principal application.Principal, input domain.Equipment) (domain.Equipment, error)
	RemoveEquipment(ctx context.Context, principal application.Principal, id string) error
	GetEquipment(ctx context.Context, id string) (domain.Equipment, error)
	ListEquipment(ctx context.Context, roomID string) ([]domain.Equipment, error)
}

// EquipmentHandler serves the equipment registry.
type EquipmentHandler struct {
	service   equipmentService
	responder responder
	logger    *slog.Logger
}

func NewEquipmentHandler(service equipmentService, logger *slog.Logger) *EquipmentHandler {
	base := defaultLogger(logger)
	return &EquipmentHandler{service: service, responder: newResponder(base), logger: base}
}

type equipmentResponse struct {
	Equipment domain.Equipment `json:"equipment"`
}

type listEquipmentResponse struct {
	Equipment []domain.Equipment `json:"equipment"`
}

func (h *EquipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListEquipment(r.Context(), r.URL.Query().Get("room_id"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEquipmentResponse{Equipment: nonNil(items)})
}

func (h *EquipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetEquipment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, equipmentResponse{Equipment: item})
}

// Upsert handles POST /equipment and PUT /equipment/{id}. The path id wins
// over the body.
func (h *EquipmentHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req domain.Equipment
	if err := decodeJSON(r, &req); err != nil {
		handlerLogger(r.Context(), h.logger, "EquipmentHandler", "Upsert", "error_kind", "bad_request").
			WarnContext(r.Context(), "failed to decode equipment")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, err)
		return
	}

	status := http.StatusCreated
	if id, ok := mux.Vars(r)["id"]; ok {
		req.ID = id
		status = http.StatusOK
	}

	item, err := h.service.UpsertEquipment(r.Context(), principal, req)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, status, equipmentResponse{Equipment: item})
}

func (h *EquipmentHandler) Remove(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.RemoveEquipment(r.Context(), principal, mux.Vars(r)["id"]); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}
