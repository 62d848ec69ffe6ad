package domain

import "time"

// EquipmentStatus is the tri-state availability of an equipment item.
type EquipmentStatus string

const (
	EquipmentAvailable   EquipmentStatus = "available"
	EquipmentMaintenance EquipmentStatus = "maintenance"
	EquipmentInUse       EquipmentStatus = "in_use"
)

// Valid reports whether s is one of the known statuses.
func (s EquipmentStatus) Valid() bool {
	switch s {
	case EquipmentAvailable, EquipmentMaintenance, EquipmentInUse:
		return true
	}
	return false
}

// Equipment is an item installed in a room.
type Equipment struct {
	ID        string          `json:"id"`
	RoomID    string          `json:"room_id" validate:"required"`
	Name      Localized       `json:"name"`
	Status    EquipmentStatus `json:"status" validate:"oneof=available maintenance in_use"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
