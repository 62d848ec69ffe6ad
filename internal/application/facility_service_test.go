package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/facility-scheduler/internal/domain"
	"github.com/example/facility-scheduler/internal/persistence/memory"
)

func newFacilityHarness(t *testing.T) (*FacilityService, *BookingService, *memory.Catalog) {
	t.Helper()
	catalog := memory.NewCatalog()
	now := func() time.Time { return time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC) }
	bookings := NewBookingService(memory.NewBookingStore(), catalog, sequentialIDs("sch"), now, BookingOptions{LockTimeout: 50 * time.Millisecond})
	facilities := NewFacilityService(catalog, bookings, sequentialIDs("fac"), now)
	return facilities, bookings, catalog
}

func validBuilding() domain.Building {
	return domain.Building{
		Name:     domain.Localized{Primary: "  Main house  ", Secondary: "本館"},
		Address:  domain.Localized{Primary: "1 Care St"},
		Floors:   2,
		Capacity: 40,
	}
}

func validRoom(buildingID string) domain.Room {
	return domain.Room{
		BuildingID:            buildingID,
		Name:                  domain.Localized{Primary: "Sensory room"},
		Floor:                 1,
		Type:                  domain.RoomTypeTherapy,
		Capacity:              6,
		AccessibilityFeatures: []domain.Localized{{Primary: "ramp"}, {Primary: "  "}},
		Active:                true,
	}
}

func TestFacilityService_CreateBuilding(t *testing.T) {
	ctx := context.Background()

	t.Run("requires manage capability", func(t *testing.T) {
		svc, _, _ := newFacilityHarness(t)
		if _, err := svc.CreateBuilding(ctx, viewer, validBuilding()); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("validates fields", func(t *testing.T) {
		svc, _, _ := newFacilityHarness(t)
		input := validBuilding()
		input.Floors = 0
		input.Capacity = -1
		input.Name = domain.Localized{Primary: "   "}

		_, err := svc.CreateBuilding(ctx, manager, input)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"floors", "capacity", "name"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Errorf("expected %s error, got %+v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("generates id and trims names", func(t *testing.T) {
		svc, _, _ := newFacilityHarness(t)
		building, err := svc.CreateBuilding(ctx, manager, validBuilding())
		if err != nil {
			t.Fatalf("CreateBuilding failed: %v", err)
		}
		if building.ID != "fac-1" {
			t.Fatalf("expected generated id fac-1, got %s", building.ID)
		}
		if building.Name.Primary != "Main house" {
			t.Fatalf("expected trimmed name, got %q", building.Name.Primary)
		}
		if building.CreatedAt.IsZero() {
			t.Fatal("expected CreatedAt to be stamped")
		}
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		svc, _, _ := newFacilityHarness(t)
		input := validBuilding()
		input.ID = "b1"
		if _, err := svc.CreateBuilding(ctx, manager, input); err != nil {
			t.Fatalf("CreateBuilding failed: %v", err)
		}
		if _, err := svc.CreateBuilding(ctx, manager, input); !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestFacilityService_Rooms(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newFacilityHarness(t)

	building, err := svc.CreateBuilding(ctx, manager, validBuilding())
	if err != nil {
		t.Fatalf("CreateBuilding failed: %v", err)
	}

	_, err = svc.CreateRoom(ctx, manager, validRoom("missing"))
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.FieldErrors["building_id"] == "" {
		t.Fatalf("expected building_id validation error, got %v", err)
	}

	bad := validRoom(building.ID)
	bad.Type = "garage"
	if _, err := svc.CreateRoom(ctx, manager, bad); !errors.As(err, &vErr) || vErr.FieldErrors["type"] == "" {
		t.Fatalf("expected type validation error, got %v", err)
	}

	room, err := svc.CreateRoom(ctx, manager, validRoom(building.ID))
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if len(room.AccessibilityFeatures) != 1 {
		t.Fatalf("expected blank features to be dropped, got %+v", room.AccessibilityFeatures)
	}

	status, err := svc.RoomExists(ctx, room.ID)
	if err != nil || !status.Active {
		t.Fatalf("expected active room, got %+v, %v", status, err)
	}

	room.Active = false
	if _, err := svc.UpdateRoom(ctx, manager, room); err != nil {
		t.Fatalf("UpdateRoom failed: %v", err)
	}
	status, _ = svc.RoomExists(ctx, room.ID)
	if status.Active {
		t.Fatal("expected room to be inactive")
	}

	rooms, err := svc.ListRooms(ctx, building.ID)
	if err != nil || len(rooms) != 1 {
		t.Fatalf("expected one room, got %d, %v", len(rooms), err)
	}

	if _, err := svc.GetRoom(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFacilityService_DeletePolicies(t *testing.T) {
	ctx := context.Background()
	svc, bookings, catalog := newFacilityHarness(t)

	building, _ := svc.CreateBuilding(ctx, manager, validBuilding())
	room, err := svc.CreateRoom(ctx, manager, validRoom(building.ID))
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	if err := svc.DeleteBuilding(ctx, manager, building.ID); !errors.Is(err, ErrInUse) {
		t.Fatalf("expected ErrInUse for building with rooms, got %v", err)
	}

	booking, err := bookings.ProposeBooking(ctx, manager, oneOff(t, room.ID, "2024-03-01T10:00", "2024-03-01T11:00"))
	if err != nil {
		t.Fatalf("ProposeBooking failed: %v", err)
	}
	if err := svc.DeleteRoom(ctx, manager, room.ID); !errors.Is(err, ErrInUse) {
		t.Fatalf("expected ErrInUse for room with bookings, got %v", err)
	}
	if err := bookings.CancelBooking(ctx, manager, booking.ID); err != nil {
		t.Fatalf("CancelBooking failed: %v", err)
	}

	if err := catalog.UpsertEquipment(ctx, domain.Equipment{ID: "e1", RoomID: room.ID, Status: domain.EquipmentAvailable}); err != nil {
		t.Fatalf("UpsertEquipment failed: %v", err)
	}
	if err := svc.DeleteRoom(ctx, manager, room.ID); !errors.Is(err, ErrInUse) {
		t.Fatalf("expected ErrInUse for room with equipment, got %v", err)
	}
	if err := catalog.DeleteEquipment(ctx, "e1"); err != nil {
		t.Fatalf("DeleteEquipment failed: %v", err)
	}

	unlock, err := bookings.LockRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("LockRoom failed: %v", err)
	}
	var busy *BusyError
	if err := svc.DeleteRoom(ctx, manager, room.ID); !errors.As(err, &busy) {
		t.Fatalf("expected BusyError while the room is locked, got %v", err)
	}
	unlock()

	if err := svc.DeleteRoom(ctx, manager, room.ID); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}
	if err := svc.DeleteBuilding(ctx, manager, building.ID); err != nil {
		t.Fatalf("DeleteBuilding failed: %v", err)
	}
	if _, err := svc.GetBuilding(ctx, building.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestEquipmentService(t *testing.T) {
	ctx := context.Background()
	facilities, _, catalog := newFacilityHarness(t)
	building, _ := facilities.CreateBuilding(ctx, manager, validBuilding())
	room, _ := facilities.CreateRoom(ctx, manager, validRoom(building.ID))

	svc := NewEquipmentService(catalog, catalog, sequentialIDs("eq"), nil)

	item := domain.Equipment{RoomID: room.ID, Name: domain.Localized{Primary: "Swing"}, Status: domain.EquipmentAvailable}
	if _, err := svc.UpsertEquipment(ctx, viewer, item); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	bad := item
	bad.Status = "broken"
	var vErr *ValidationError
	if _, err := svc.UpsertEquipment(ctx, manager, bad); !errors.As(err, &vErr) || vErr.FieldErrors["status"] == "" {
		t.Fatalf("expected status validation error, got %v", err)
	}

	orphan := item
	orphan.RoomID = "nowhere"
	if _, err := svc.UpsertEquipment(ctx, manager, orphan); !errors.As(err, &vErr) || vErr.FieldErrors["room_id"] == "" {
		t.Fatalf("expected room_id validation error, got %v", err)
	}

	stored, err := svc.UpsertEquipment(ctx, manager, item)
	if err != nil {
		t.Fatalf("UpsertEquipment failed: %v", err)
	}
	if stored.ID != "eq-1" {
		t.Fatalf("expected generated id, got %s", stored.ID)
	}

	stored.Status = domain.EquipmentMaintenance
	if _, err := svc.UpsertEquipment(ctx, manager, stored); err != nil {
		t.Fatalf("status change failed: %v", err)
	}
	got, err := svc.GetEquipment(ctx, stored.ID)
	if err != nil || got.Status != domain.EquipmentMaintenance {
		t.Fatalf("expected maintenance status, got %+v, %v", got, err)
	}

	items, err := svc.ListEquipment(ctx, room.ID)
	if err != nil || len(items) != 1 {
		t.Fatalf("expected one item, got %d, %v", len(items), err)
	}

	if err := svc.RemoveEquipment(ctx, manager, stored.ID); err != nil {
		t.Fatalf("RemoveEquipment failed: %v", err)
	}
	if err := svc.RemoveEquipment(ctx, manager, stored.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second remove, got %v", err)
	}
}
