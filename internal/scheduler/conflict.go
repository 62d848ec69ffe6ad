package scheduler

import (
	"time"

	"github.com/example/facility-scheduler/internal/domain"
	"github.com/example/facility-scheduler/internal/recurrence"
)

const day = 24 * time.Hour

// Detector decides whether two schedules of the same room overlap. Every
// instant is read as wall-clock time in the facility location.
type Detector struct {
	loc *time.Location
}

// NewDetector constructs a Detector for the given facility location.
// If loc is nil, UTC is used.
func NewDetector(loc *time.Location) *Detector {
	if loc == nil {
		loc = time.UTC
	}
	return &Detector{loc: loc}
}

// Location returns the facility location used for weekdays and times of day.
func (d *Detector) Location() *time.Location {
	if d == nil || d.loc == nil {
		return time.UTC
	}
	return d.loc
}

// FindConflict returns the first schedule in existing that collides with
// candidate. Entries sharing the candidate's id or booked in another room are
// skipped.
func (d *Detector) FindConflict(candidate domain.Schedule, existing []domain.Schedule) (domain.Schedule, bool) {
	for _, other := range existing {
		if candidate.ID != "" && other.ID == candidate.ID {
			continue
		}
		if other.RoomID != candidate.RoomID {
			continue
		}
		if d.Conflicts(candidate, other) {
			return other, true
		}
	}
	return domain.Schedule{}, false
}

// Conflicts reports whether a and b have overlapping occurrences, ignoring
// their rooms. The relation is symmetric; touching endpoints do not overlap.
func (d *Detector) Conflicts(a, b domain.Schedule) bool {
	switch {
	case !a.Recurrence.IsWeekly() && !b.Recurrence.IsWeekly():
		return overlaps(a.Start, a.End, b.Start, b.End)
	case a.Recurrence.IsWeekly() && b.Recurrence.IsWeekly():
		if a.Recurrence.Days().Intersect(b.Recurrence.Days()).IsEmpty() {
			return false
		}
		aStart, aEnd := d.window(a)
		bStart, bEnd := d.window(b)
		return aStart < bEnd && bStart < aEnd
	case a.Recurrence.IsWeekly():
		return d.weeklyMeetsOnce(a, b)
	default:
		return d.weeklyMeetsOnce(b, a)
	}
}

// weeklyMeetsOnce compares a one-off schedule with the weekly occurrences
// falling on each local calendar day the one-off touches.
func (d *Detector) weeklyMeetsOnce(weekly, once domain.Schedule) bool {
	days := weekly.Recurrence.Days()
	if days.IsEmpty() {
		return false
	}

	loc := d.Location()
	start := once.Start.In(loc)
	end := once.End.In(loc)
	if !start.Before(end) {
		return false
	}
	// Eight days cover every weekday in full at least once.
	if end.Sub(start) >= 8*day {
		return true
	}

	winStart, winEnd := d.window(weekly)
	for cur := recurrence.StartOfDay(start); cur.Before(end); cur = recurrence.NextDay(cur) {
		if !days.Has(cur.Weekday()) {
			continue
		}
		occStart := recurrence.OnDay(cur, winStart)
		occEnd := recurrence.OnDay(cur, winEnd)
		if overlaps(start, end, occStart, occEnd) {
			return true
		}
	}
	return false
}

// window returns the time-of-day window of s as offsets from local midnight.
func (d *Detector) window(s domain.Schedule) (time.Duration, time.Duration) {
	loc := d.Location()
	return recurrence.SinceMidnight(s.Start.In(loc)), recurrence.SinceMidnight(s.End.In(loc))
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
