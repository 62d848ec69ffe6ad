package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/facility-scheduler/internal/domain"
	"github.com/example/facility-scheduler/internal/persistence"
)

// EquipmentService tracks equipment installed in rooms. It is independent of bookings.
type EquipmentService struct {
	equipment   persistence.EquipmentRepository
	rooms       RoomCatalog
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEquipmentService constructs an equipment service.
func NewEquipmentService(equipment persistence.EquipmentRepository, rooms RoomCatalog, idGenerator func() string, now func() time.Time) *EquipmentService {
	return NewEquipmentServiceWithLogger(equipment, rooms, idGenerator, now, nil)
}

// NewEquipmentServiceWithLogger constructs an equipment service with a specified logger.
func NewEquipmentServiceWithLogger(equipment persistence.EquipmentRepository, rooms RoomCatalog, idGenerator func() string, now func() time.Time, logger *slog.Logger) *EquipmentService {
	if idGenerator == nil {
		idGenerator = newID
	}
	if now == nil {
		now = time.Now
	}
	return &EquipmentService{
		equipment:   equipment,
		rooms:       rooms,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// UpsertEquipment creates an item, or replaces it when the id is already known.
func (s *EquipmentService) UpsertEquipment(ctx context.Context, principal Principal, input domain.Equipment) (item domain.Equipment, err error) {
	if s == nil || s.equipment == nil {
		return domain.Equipment{}, fmt.Errorf("EquipmentService is not configured")
	}

	logger := serviceLogger(ctx, s.logger, "EquipmentService", "UpsertEquipment",
		"principal", principal.Subject,
		"room_id", input.RoomID,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to upsert equipment", "equipment stored", "equipment_id", item.ID, "status", item.Status)
	}()

	if !principal.CanManage {
		return domain.Equipment{}, ErrUnauthorized
	}

	item = input
	item.Name = item.Name.Trimmed()
	vErr := validateStruct(item)
	requirePrimary(vErr, "name", item.Name)
	if vErr.HasErrors() {
		return domain.Equipment{}, vErr
	}

	if s.rooms != nil {
		if _, lookupErr := s.rooms.RoomExists(ctx, item.RoomID); lookupErr != nil {
			return domain.Equipment{}, newValidationError("room_id", "room does not exist")
		}
	}

	now := s.now()
	if item.ID == "" {
		item.ID = s.idGenerator()
		item.CreatedAt = now
	} else if existing, getErr := s.equipment.GetEquipment(ctx, item.ID); getErr == nil {
		item.CreatedAt = existing.CreatedAt
	} else if errors.Is(getErr, persistence.ErrNotFound) {
		item.CreatedAt = now
	} else {
		return domain.Equipment{}, mapCatalogError(getErr)
	}
	item.UpdatedAt = now

	if err = s.equipment.UpsertEquipment(ctx, item); err != nil {
		if errors.Is(err, persistence.ErrForeignKeyViolation) {
			return domain.Equipment{}, newValidationError("room_id", "room does not exist")
		}
		return domain.Equipment{}, mapCatalogError(err)
	}
	return item, nil
}

// RemoveEquipment deletes an item.
func (s *EquipmentService) RemoveEquipment(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil || s.equipment == nil {
		return fmt.Errorf("EquipmentService is not configured")
	}

	logger := serviceLogger(ctx, s.logger, "EquipmentService", "RemoveEquipment",
		"principal", principal.Subject,
		"equipment_id", id,
	)
	defer func() {
		logOutcome(ctx, logger, err, "failed to remove equipment", "equipment removed")
	}()

	if !principal.CanManage {
		return ErrUnauthorized
	}
	return mapCatalogError(s.equipment.DeleteEquipment(ctx, id))
}

// GetEquipment returns a single item.
func (s *EquipmentService) GetEquipment(ctx context.Context, id string) (domain.Equipment, error) {
	if s == nil || s.equipment == nil {
		return domain.Equipment{}, fmt.Errorf("EquipmentService is not configured")
	}
	item, err := s.equipment.GetEquipment(ctx, id)
	return item, mapCatalogError(err)
}

// ListEquipment returns the items of one room, or all items when roomID is empty.
func (s *EquipmentService) ListEquipment(ctx context.Context, roomID string) ([]domain.Equipment, error) {
	if s == nil || s.equipment == nil {
		return nil, fmt.Errorf("EquipmentService is not configured")
	}
	items, err := s.equipment.ListEquipment(ctx, roomID)
	return items, mapCatalogError(err)
}
