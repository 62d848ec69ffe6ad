package scheduler

import (
	"strings"
	"time"

	"github.com/example/facility-scheduler/internal/domain"
	"github.com/example/facility-scheduler/internal/recurrence"
)

// FieldError names a malformed schedule attribute.
type FieldError struct {
	Field   string
	Message string
}

// Validate reports every well-formedness problem of s. An empty result means
// the schedule may be handed to FindConflict.
func (d *Detector) Validate(s domain.Schedule) []FieldError {
	var problems []FieldError
	add := func(field, message string) {
		problems = append(problems, FieldError{Field: field, Message: message})
	}

	if strings.TrimSpace(s.RoomID) == "" {
		add("room_id", "room_id is required")
	}
	if !s.Kind.Valid() {
		add("kind", "kind must be one of therapy, medical, activity")
	}
	if s.Start.IsZero() {
		add("start", "start is required")
	}
	if s.End.IsZero() {
		add("end", "end is required")
	}
	if !s.Start.IsZero() && !s.End.IsZero() && !s.Start.Before(s.End) {
		add("time", "start must be before end")
	}

	if s.Recurrence.IsWeekly() {
		if s.Recurrence.Days().IsEmpty() {
			add("recurrence", "weekly recurrence requires at least one weekday")
		}
		if !s.Start.IsZero() && s.Start.Before(s.End) && d.crossesMidnight(s.Start, s.End) {
			add("time", "weekly window must not cross midnight")
		}
	}

	return problems
}

func (d *Detector) crossesMidnight(start, end time.Time) bool {
	loc := d.Location()
	start = start.In(loc)
	end = end.In(loc)
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	if sy != ey || sm != em || sd != ed {
		return true
	}
	return recurrence.SinceMidnight(end) <= recurrence.SinceMidnight(start)
}
