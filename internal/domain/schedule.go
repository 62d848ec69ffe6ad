package domain

import "time"

// Kind classifies the session a schedule books a room for.
type Kind string

const (
	KindTherapy  Kind = "therapy"
	KindMedical  Kind = "medical"
	KindActivity Kind = "activity"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindTherapy, KindMedical, KindActivity:
		return true
	}
	return false
}

// Schedule is a booking of one room. Start and End describe a single
// occurrence; for weekly schedules only their time of day is reused.
type Schedule struct {
	ID         string     `json:"id"`
	RoomID     string     `json:"room_id"`
	Title      Localized  `json:"title"`
	Kind       Kind       `json:"kind"`
	Start      time.Time  `json:"start"`
	End        time.Time  `json:"end"`
	Recurrence Recurrence `json:"recurrence"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

