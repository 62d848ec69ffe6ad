package persistence

import (
	"context"

	"github.com/example/facility-scheduler/internal/domain"
)

// BuildingRepository exposes CRUD operations for buildings.
type BuildingRepository interface {
	CreateBuilding(ctx context.Context, building domain.Building) error
	UpdateBuilding(ctx context.Context, building domain.Building) error
	GetBuilding(ctx context.Context, id string) (domain.Building, error)
	ListBuildings(ctx context.Context) ([]domain.Building, error)
	DeleteBuilding(ctx context.Context, id string) error
}

// RoomFilter narrows room queries.
type RoomFilter struct {
	BuildingID string
}

// RoomRepository exposes CRUD operations for rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room domain.Room) error
	UpdateRoom(ctx context.Context, room domain.Room) error
	GetRoom(ctx context.Context, id string) (domain.Room, error)
	ListRooms(ctx context.Context, filter RoomFilter) ([]domain.Room, error)
	DeleteRoom(ctx context.Context, id string) error
}

// EquipmentRepository stores equipment items attached to rooms.
type EquipmentRepository interface {
	UpsertEquipment(ctx context.Context, item domain.Equipment) error
	GetEquipment(ctx context.Context, id string) (domain.Equipment, error)
	ListEquipment(ctx context.Context, roomID string) ([]domain.Equipment, error)
	DeleteEquipment(ctx context.Context, id string) error
}
