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

// CatalogRepository captures the persistence operations needed by the facility service.
type CatalogRepository interface {
	persistence.BuildingRepository
	persistence.RoomRepository
	RoomCatalog
}

// RoomBookings is the booking side of the room delete policy.
type RoomBookings interface {
	LockRoom(ctx context.Context, roomID string) (func(), error)
	HasBookings(roomID string) bool
}

// FacilityService manages buildings and rooms.
type FacilityService struct {
	catalog     CatalogRepository
	bookings    RoomBookings
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewFacilityService constructs a facility service with the provided dependencies.
func NewFacilityService(catalog CatalogRepository, bookings RoomBookings, idGenerator func() string, now func() time.Time) *FacilityService {
	return NewFacilityServiceWithLogger(catalog, bookings, idGenerator, now, nil)
}

// NewFacilityServiceWithLogger constructs a facility service with a specified logger.
func NewFacilityServiceWithLogger(catalog CatalogRepository, bookings RoomBookings, idGenerator func() string, now func() time.Time, logger *slog.Logger) *FacilityService {
	if idGenerator == nil {
		idGenerator = newID
	}
	if now == nil {
		now = time.Now
	}
	return &FacilityService{
		catalog:     catalog,
		bookings:    bookings,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *FacilityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "FacilityService", operation, attrs...)
}

// CreateBuilding validates and stores a new building.
func (s *FacilityService) CreateBuilding(ctx context.Context, principal Principal, input domain.Building) (building domain.Building, err error) {
	if s == nil || s.catalog == nil {
		return domain.Building{}, fmt.Errorf("FacilityService is not configured")
	}

	logger := s.loggerWith(ctx, "CreateBuilding", "principal", principal.Subject)
	defer func() {
		logOutcome(ctx, logger, err, "failed to create building", "building created", "building_id", building.ID)
	}()

	if !principal.CanManage {
		return domain.Building{}, ErrUnauthorized
	}

	building = normalizeBuilding(input)
	if vErr := validateBuilding(building); vErr.HasErrors() {
		return domain.Building{}, vErr
	}
	if building.ID == "" {
		building.ID = s.idGenerator()
	}
	building.CreatedAt = s.now()
	building.UpdatedAt = building.CreatedAt

	if err = s.catalog.CreateBuilding(ctx, building); err != nil {
		return domain.Building{}, mapCatalogError(err)
	}
	return building, nil
}

// UpdateBuilding replaces the mutable fields of an existing building.
func (s *FacilityService) UpdateBuilding(ctx context.Context, principal Principal, input domain.Building) (building domain.Building, err error) {
	if s == nil || s.catalog == nil {
		return domain.Building{}, fmt.Errorf("FacilityService is not configured")
	}

	logger := s.loggerWith(ctx, "UpdateBuilding", "principal", principal.Subject, "building_id", input.ID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to update building", "building updated")
	}()

	if !principal.CanManage {
		return domain.Building{}, ErrUnauthorized
	}

	existing, err := s.catalog.GetBuilding(ctx, input.ID)
	if err != nil {
		return domain.Building{}, mapCatalogError(err)
	}

	building = normalizeBuilding(input)
	if vErr := validateBuilding(building); vErr.HasErrors() {
		return domain.Building{}, vErr
	}
	building.CreatedAt = existing.CreatedAt
	building.UpdatedAt = s.now()

	if err = s.catalog.UpdateBuilding(ctx, building); err != nil {
		return domain.Building{}, mapCatalogError(err)
	}
	return building, nil
}

// DeleteBuilding removes a building that no longer has rooms.
func (s *FacilityService) DeleteBuilding(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil || s.catalog == nil {
		return fmt.Errorf("FacilityService is not configured")
	}

	logger := s.loggerWith(ctx, "DeleteBuilding", "principal", principal.Subject, "building_id", id)
	defer func() {
		logOutcome(ctx, logger, err, "failed to delete building", "building deleted")
	}()

	if !principal.CanManage {
		return ErrUnauthorized
	}
	return mapCatalogError(s.catalog.DeleteBuilding(ctx, id))
}

// GetBuilding returns a single building.
func (s *FacilityService) GetBuilding(ctx context.Context, id string) (domain.Building, error) {
	if s == nil || s.catalog == nil {
		return domain.Building{}, fmt.Errorf("FacilityService is not configured")
	}
	building, err := s.catalog.GetBuilding(ctx, id)
	return building, mapCatalogError(err)
}

// ListBuildings returns every building.
func (s *FacilityService) ListBuildings(ctx context.Context) ([]domain.Building, error) {
	if s == nil || s.catalog == nil {
		return nil, fmt.Errorf("FacilityService is not configured")
	}
	buildings, err := s.catalog.ListBuildings(ctx)
	return buildings, mapCatalogError(err)
}

// CreateRoom validates and stores a new room in an existing building.
func (s *FacilityService) CreateRoom(ctx context.Context, principal Principal, input domain.Room) (room domain.Room, err error) {
	if s == nil || s.catalog == nil {
		return domain.Room{}, fmt.Errorf("FacilityService is not configured")
	}

	logger := s.loggerWith(ctx, "CreateRoom", "principal", principal.Subject, "building_id", input.BuildingID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to create room", "room created", "room_id", room.ID)
	}()

	if !principal.CanManage {
		return domain.Room{}, ErrUnauthorized
	}

	room = normalizeRoom(input)
	if vErr := validateRoom(room); vErr.HasErrors() {
		return domain.Room{}, vErr
	}
	if room.ID == "" {
		room.ID = s.idGenerator()
	}
	room.CreatedAt = s.now()
	room.UpdatedAt = room.CreatedAt

	if err = s.catalog.CreateRoom(ctx, room); err != nil {
		return domain.Room{}, mapRoomWriteError(err)
	}
	return room, nil
}

// UpdateRoom replaces the mutable fields of an existing room. Deactivating a
// room blocks new bookings but leaves accepted ones in place.
func (s *FacilityService) UpdateRoom(ctx context.Context, principal Principal, input domain.Room) (room domain.Room, err error) {
	if s == nil || s.catalog == nil {
		return domain.Room{}, fmt.Errorf("FacilityService is not configured")
	}

	logger := s.loggerWith(ctx, "UpdateRoom", "principal", principal.Subject, "room_id", input.ID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to update room", "room updated", "active", room.Active)
	}()

	if !principal.CanManage {
		return domain.Room{}, ErrUnauthorized
	}

	existing, err := s.catalog.GetRoom(ctx, input.ID)
	if err != nil {
		return domain.Room{}, mapCatalogError(err)
	}

	room = normalizeRoom(input)
	if vErr := validateRoom(room); vErr.HasErrors() {
		return domain.Room{}, vErr
	}
	room.CreatedAt = existing.CreatedAt
	room.UpdatedAt = s.now()

	if err = s.catalog.UpdateRoom(ctx, room); err != nil {
		return domain.Room{}, mapRoomWriteError(err)
	}
	return room, nil
}

// DeleteRoom removes a room that holds neither bookings nor equipment. The
// room's booking lock is held so a concurrent proposal cannot slip in.
func (s *FacilityService) DeleteRoom(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil || s.catalog == nil {
		return fmt.Errorf("FacilityService is not configured")
	}

	logger := s.loggerWith(ctx, "DeleteRoom", "principal", principal.Subject, "room_id", id)
	defer func() {
		logOutcome(ctx, logger, err, "failed to delete room", "room deleted")
	}()

	if !principal.CanManage {
		return ErrUnauthorized
	}

	if s.bookings != nil {
		unlock, lockErr := s.bookings.LockRoom(ctx, id)
		if lockErr != nil {
			return lockErr
		}
		defer unlock()

		if s.bookings.HasBookings(id) {
			return fmt.Errorf("room %s has bookings: %w", id, ErrInUse)
		}
	}
	return mapCatalogError(s.catalog.DeleteRoom(ctx, id))
}

// GetRoom returns a single room.
func (s *FacilityService) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	if s == nil || s.catalog == nil {
		return domain.Room{}, fmt.Errorf("FacilityService is not configured")
	}
	room, err := s.catalog.GetRoom(ctx, id)
	return room, mapCatalogError(err)
}

// ListRooms returns rooms, optionally restricted to one building.
func (s *FacilityService) ListRooms(ctx context.Context, buildingID string) ([]domain.Room, error) {
	if s == nil || s.catalog == nil {
		return nil, fmt.Errorf("FacilityService is not configured")
	}
	rooms, err := s.catalog.ListRooms(ctx, persistence.RoomFilter{BuildingID: buildingID})
	return rooms, mapCatalogError(err)
}

// RoomExists reports whether the room exists and accepts bookings.
func (s *FacilityService) RoomExists(ctx context.Context, id string) (domain.RoomStatus, error) {
	if s == nil || s.catalog == nil {
		return domain.RoomStatus{}, fmt.Errorf("FacilityService is not configured")
	}
	status, err := s.catalog.RoomExists(ctx, id)
	return status, mapCatalogError(err)
}

func normalizeBuilding(b domain.Building) domain.Building {
	b.Name = b.Name.Trimmed()
	b.Address = b.Address.Trimmed()
	b.Description = b.Description.Trimmed()
	return b
}

func validateBuilding(b domain.Building) *ValidationError {
	vErr := validateStruct(b)
	requirePrimary(vErr, "name", b.Name)
	return vErr
}

func normalizeRoom(r domain.Room) domain.Room {
	r = r.Clone()
	r.Name = r.Name.Trimmed()
	features := make([]domain.Localized, 0, len(r.AccessibilityFeatures))
	for _, f := range r.AccessibilityFeatures {
		if f = f.Trimmed(); !f.IsEmpty() {
			features = append(features, f)
		}
	}
	r.AccessibilityFeatures = features
	return r
}

func validateRoom(r domain.Room) *ValidationError {
	vErr := validateStruct(r)
	requirePrimary(vErr, "name", r.Name)
	return vErr
}

func mapCatalogError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		return fmt.Errorf("%v: %w", err, ErrInUse)
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return newValidationError("reference", "referenced resource does not exist")
	}
	return fmt.Errorf("catalog: %w", err)
}

func mapRoomWriteError(err error) error {
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return newValidationError("building_id", "building does not exist")
	}
	return mapCatalogError(err)
}
