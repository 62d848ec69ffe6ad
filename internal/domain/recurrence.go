package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RecurrenceType names a recurrence variant on the wire.
type RecurrenceType string

const (
	RecurrenceNone   RecurrenceType = "none"
	RecurrenceWeekly RecurrenceType = "weekly"
)

var (
	// ErrUnknownRecurrence is returned when decoding an unsupported recurrence type.
	ErrUnknownRecurrence = errors.New("domain: unknown recurrence type")
	// ErrInvalidWeekday is returned when a weekday falls outside 0 (Sunday) .. 6 (Saturday).
	ErrInvalidWeekday = errors.New("domain: weekday out of range")
)

// WeekdaySet is a bit set of time.Weekday values.
type WeekdaySet uint8

// NewWeekdaySet builds a set from days. Values outside Sunday..Saturday are dropped.
func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday {
			continue
		}
		s |= 1 << uint(d)
	}
	return s
}

// Has reports whether d is in the set.
func (s WeekdaySet) Has(d time.Weekday) bool {
	if d < time.Sunday || d > time.Saturday {
		return false
	}
	return s&(1<<uint(d)) != 0
}

// Intersect returns the days present in both sets.
func (s WeekdaySet) Intersect(other WeekdaySet) WeekdaySet {
	return s & other
}

// IsEmpty reports whether the set holds no day.
func (s WeekdaySet) IsEmpty() bool {
	return s == 0
}

// Days lists the members in Sunday-first order.
func (s WeekdaySet) Days() []time.Weekday {
	days := make([]time.Weekday, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

// Recurrence is either None (a single occurrence) or Weekly on a set of
// weekdays. The zero value is None.
type Recurrence struct {
	weekly bool
	days   WeekdaySet
}

// NoRecurrence returns the one-off variant.
func NoRecurrence() Recurrence {
	return Recurrence{}
}

// WeeklyOn returns the weekly variant for the given days.
func WeeklyOn(days ...time.Weekday) Recurrence {
	return Recurrence{weekly: true, days: NewWeekdaySet(days...)}
}

// ParseRecurrence builds a recurrence from its wire representation.
func ParseRecurrence(kind RecurrenceType, days []int) (Recurrence, error) {
	switch kind {
	case RecurrenceNone, "":
		return NoRecurrence(), nil
	case RecurrenceWeekly:
		var set WeekdaySet
		for _, d := range days {
			if d < 0 || d > 6 {
				return Recurrence{}, fmt.Errorf("%w: %d", ErrInvalidWeekday, d)
			}
			set |= 1 << uint(d)
		}
		return Recurrence{weekly: true, days: set}, nil
	default:
		return Recurrence{}, fmt.Errorf("%w: %q", ErrUnknownRecurrence, string(kind))
	}
}

// Type returns the variant tag.
func (r Recurrence) Type() RecurrenceType {
	if r.weekly {
		return RecurrenceWeekly
	}
	return RecurrenceNone
}

// IsWeekly reports whether r is the weekly variant.
func (r Recurrence) IsWeekly() bool {
	return r.weekly
}

// Days returns the weekday set; empty for None.
func (r Recurrence) Days() WeekdaySet {
	if !r.weekly {
		return 0
	}
	return r.days
}

type recurrenceJSON struct {
	Type RecurrenceType `json:"type"`
	Days []int          `json:"days,omitempty"`
}

// MarshalJSON encodes r as {"type":"none"} or {"type":"weekly","days":[...]}.
func (r Recurrence) MarshalJSON() ([]byte, error) {
	payload := recurrenceJSON{Type: r.Type()}
	if r.weekly {
		payload.Days = make([]int, 0, 7)
		for _, d := range r.days.Days() {
			payload.Days = append(payload.Days, int(d))
		}
	}
	return json.Marshal(payload)
}

// UnmarshalJSON decodes the wire representation, rejecting unknown types and days.
func (r *Recurrence) UnmarshalJSON(data []byte) error {
	var payload recurrenceJSON
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	parsed, err := ParseRecurrence(payload.Type, payload.Days)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
