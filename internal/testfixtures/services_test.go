package testfixtures

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/facility-scheduler/internal/application"
)

func TestNewServicesSeedAndBook(t *testing.T) {
	ctx := context.Background()
	services := NewServices(WithIDGenerator(NewIDGenerator("fx")))

	building, room, err := services.SeedRoom(ctx)
	if err != nil {
		t.Fatalf("SeedRoom returned error: %v", err)
	}
	if building.ID != "fx-1" || room.ID != "fx-2" {
		t.Fatalf("unexpected seeded ids: %q, %q", building.ID, room.ID)
	}
	if !room.CreatedAt.Equal(ReferenceTime()) {
		t.Fatalf("expected clock time on room, got %v", room.CreatedAt)
	}

	first, err := services.Booking.ProposeBooking(ctx, Manager, OneOff(room.ID, At(time.Monday, 9, 0), time.Hour))
	if err != nil {
		t.Fatalf("ProposeBooking returned error: %v", err)
	}

	_, err = services.Booking.ProposeBooking(ctx, Manager, Weekly(room.ID, At(time.Monday, 9, 30), time.Hour, []time.Weekday{time.Monday}))
	var conflict *application.ConflictError
	if !errors.As(err, &conflict) || conflict.ScheduleID != first.ID {
		t.Fatalf("expected conflict with %s, got %v", first.ID, err)
	}

	if err := services.Facility.DeleteRoom(ctx, Manager, room.ID); !errors.Is(err, application.ErrInUse) {
		t.Fatalf("expected ErrInUse deleting a booked room, got %v", err)
	}
}

func TestSeedRoomInactive(t *testing.T) {
	ctx := context.Background()
	services := NewServices()

	_, room, err := services.SeedRoom(ctx, Inactive())
	if err != nil {
		t.Fatalf("SeedRoom returned error: %v", err)
	}
	_, err = services.Booking.ProposeBooking(ctx, Manager, OneOff(room.ID, At(time.Tuesday, 14, 0), time.Hour))
	var vErr *application.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected validation error for inactive room, got %v", err)
	}
}
