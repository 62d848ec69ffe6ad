package domain

import "time"

// RoomType classifies what a room is used for.
type RoomType string

const (
	RoomTypeTherapy      RoomType = "therapy"
	RoomTypeDormitory    RoomType = "dormitory"
	RoomTypeMedical      RoomType = "medical"
	RoomTypeOffice       RoomType = "office"
	RoomTypeRecreational RoomType = "recreational"
)

// Valid reports whether t is one of the known room types.
func (t RoomType) Valid() bool {
	switch t {
	case RoomTypeTherapy, RoomTypeDormitory, RoomTypeMedical, RoomTypeOffice, RoomTypeRecreational:
		return true
	}
	return false
}

// Building is a site of the care center. Rooms point back to it through BuildingID.
type Building struct {
	ID          string    `json:"id"`
	Name        Localized `json:"name"`
	Address     Localized `json:"address"`
	Floors      int       `json:"floors" validate:"gte=1"`
	Capacity    int       `json:"capacity" validate:"gte=0"`
	Description Localized `json:"description"`
	PhotoRef    string    `json:"photo_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Room is the unit of booking.
type Room struct {
	ID                    string      `json:"id"`
	BuildingID            string      `json:"building_id" validate:"required"`
	Name                  Localized   `json:"name"`
	Floor                 int         `json:"floor"`
	Type                  RoomType    `json:"type" validate:"oneof=therapy dormitory medical office recreational"`
	Capacity              int         `json:"capacity" validate:"gte=0"`
	AccessibilityFeatures []Localized `json:"accessibility_features"`
	Active                bool        `json:"active"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

// Clone returns a copy that does not share the accessibility feature slice.
func (r Room) Clone() Room {
	if r.AccessibilityFeatures != nil {
		r.AccessibilityFeatures = append([]Localized(nil), r.AccessibilityFeatures...)
	}
	return r
}

// RoomStatus is the answer of a catalog lookup used by the booking engine.
type RoomStatus struct {
	Active bool
}
