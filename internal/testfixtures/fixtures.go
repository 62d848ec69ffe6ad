package testfixtures

import (
	"time"

	"github.com/example/facility-scheduler/internal/application"
	"github.com/example/facility-scheduler/internal/domain"
)

var (
	// Manager may change facilities, equipment and bookings.
	Manager = application.Principal{Subject: "coordinator", CanManage: true}
	// Viewer is a read-only caller.
	Viewer = application.Principal{Subject: "visitor"}
)

// BuildingOption adjusts a building fixture.
type BuildingOption func(*domain.Building)

// NewBuilding returns a valid building without an id.
func NewBuilding(opts ...BuildingOption) domain.Building {
	b := domain.Building{
		Name:        domain.Localized{Primary: "Main House", Secondary: "本館"},
		Address:     domain.Localized{Primary: "1 Garden Lane"},
		Floors:      3,
		Capacity:    120,
		Description: domain.Localized{Primary: "Residential wing and therapy rooms"},
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func WithBuildingID(id string) BuildingOption {
	return func(b *domain.Building) { b.ID = id }
}

func WithBuildingName(primary string) BuildingOption {
	return func(b *domain.Building) { b.Name = domain.Localized{Primary: primary} }
}

// RoomOption adjusts a room fixture.
type RoomOption func(*domain.Room)

// NewRoom returns an active therapy room in buildingID without an id.
func NewRoom(buildingID string, opts ...RoomOption) domain.Room {
	r := domain.Room{
		BuildingID: buildingID,
		Name:       domain.Localized{Primary: "Therapy Room A", Secondary: "療法室A"},
		Floor:      1,
		Type:       domain.RoomTypeTherapy,
		Capacity:   6,
		AccessibilityFeatures: []domain.Localized{
			{Primary: "Wheelchair access"},
		},
		Active: true,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func WithRoomID(id string) RoomOption {
	return func(r *domain.Room) { r.ID = id }
}

func WithRoomName(primary string) RoomOption {
	return func(r *domain.Room) { r.Name = domain.Localized{Primary: primary} }
}

func WithRoomType(t domain.RoomType) RoomOption {
	return func(r *domain.Room) { r.Type = t }
}

// Inactive marks the room as closed for new bookings.
func Inactive() RoomOption {
	return func(r *domain.Room) { r.Active = false }
}

// NewEquipment returns an available item in roomID without an id.
func NewEquipment(roomID string, name string) domain.Equipment {
	return domain.Equipment{
		RoomID: roomID,
		Name:   domain.Localized{Primary: name},
		Status: domain.EquipmentAvailable,
	}
}

// ScheduleOption adjusts a schedule fixture.
type ScheduleOption func(*domain.Schedule)

// OneOff returns a therapy booking of roomID for [start, start+d).
func OneOff(roomID string, start time.Time, d time.Duration, opts ...ScheduleOption) domain.Schedule {
	s := domain.Schedule{
		RoomID:     roomID,
		Title:      domain.Localized{Primary: "Physiotherapy", Secondary: "理学療法"},
		Kind:       domain.KindTherapy,
		Start:      start,
		End:        start.Add(d),
		Recurrence: domain.NoRecurrence(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Weekly returns an activity booking of roomID repeating on days, using the
// time of day of start for d.
func Weekly(roomID string, start time.Time, d time.Duration, days []time.Weekday, opts ...ScheduleOption) domain.Schedule {
	s := OneOff(roomID, start, d)
	s.Kind = domain.KindActivity
	s.Title = domain.Localized{Primary: "Music circle"}
	s.Recurrence = domain.WeeklyOn(days...)
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func WithScheduleID(id string) ScheduleOption {
	return func(s *domain.Schedule) { s.ID = id }
}

func WithKind(kind domain.Kind) ScheduleOption {
	return func(s *domain.Schedule) { s.Kind = kind }
}

func WithTitle(primary string) ScheduleOption {
	return func(s *domain.Schedule) { s.Title = domain.Localized{Primary: primary} }
}
