package recurrence

import (
	"errors"
	"sort"
	"time"

	"github.com/example/facility-scheduler/internal/domain"
)

// DefaultMaxSpan bounds how far a single expansion may reach.
const DefaultMaxSpan = 400 * 24 * time.Hour

// Window is a half-open range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether [start, end) intersects the window.
func (w Window) Overlaps(start, end time.Time) bool {
	return start.Before(w.End) && w.Start.Before(end)
}

// Occurrence is one concrete instance of a schedule.
type Occurrence struct {
	ScheduleID string
	RoomID     string
	Start      time.Time
	End        time.Time
}

// Engine expands schedules into occurrences.
type Engine struct {
	location *time.Location
	maxSpan  time.Duration
}

// NewEngine constructs an Engine that reads weekdays and clock times in loc.
// If loc is nil, UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc, maxSpan: DefaultMaxSpan}
}

// ErrInvalidWindow indicates the expansion window is empty or inverted.
var ErrInvalidWindow = errors.New("recurrence: window start must be before end")

// ErrWindowTooLarge indicates the expansion window exceeds the engine limit.
var ErrWindowTooLarge = errors.New("recurrence: window exceeds the expansion limit")

// ErrInvalidDuration indicates the schedule duration is invalid.
var ErrInvalidDuration = errors.New("recurrence: schedule duration must be positive")

// Occurrences produces the occurrences of s overlapping w, ordered by start.
//
//   - One-off schedules yield themselves when they overlap the window.
//   - Weekly schedules yield one occurrence per matching local weekday, reusing
//     only the clock time of Start and End. They have no first or last week.
func (e *Engine) Occurrences(s domain.Schedule, w Window) ([]Occurrence, error) {
	if !w.Start.Before(w.End) {
		return nil, ErrInvalidWindow
	}
	if w.End.Sub(w.Start) > e.maxSpan {
		return nil, ErrWindowTooLarge
	}
	if !s.Start.Before(s.End) {
		return nil, ErrInvalidDuration
	}

	if !s.Recurrence.IsWeekly() {
		if !w.Overlaps(s.Start, s.End) {
			return nil, nil
		}
		return []Occurrence{{ScheduleID: s.ID, RoomID: s.RoomID, Start: s.Start, End: s.End}}, nil
	}

	loc := e.location
	startOffset := SinceMidnight(s.Start.In(loc))
	endOffset := SinceMidnight(s.End.In(loc))
	days := s.Recurrence.Days()

	occurrences := make([]Occurrence, 0)
	rangeEnd := w.End.In(loc)
	for cur := StartOfDay(w.Start.In(loc)); cur.Before(rangeEnd); cur = NextDay(cur) {
		if !days.Has(cur.Weekday()) {
			continue
		}
		occStart := OnDay(cur, startOffset)
		occEnd := OnDay(cur, endOffset)
		if !w.Overlaps(occStart, occEnd) {
			continue
		}
		occurrences = append(occurrences, Occurrence{
			ScheduleID: s.ID,
			RoomID:     s.RoomID,
			Start:      occStart,
			End:        occEnd,
		})
	}
	return occurrences, nil
}

// Expand gathers the occurrences of every schedule overlapping w, ordered by
// start and then schedule id.
func (e *Engine) Expand(schedules []domain.Schedule, w Window) ([]Occurrence, error) {
	all := make([]Occurrence, 0, len(schedules))
	for _, s := range schedules {
		occ, err := e.Occurrences(s, w)
		if err != nil {
			return nil, err
		}
		all = append(all, occ...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Start.Equal(all[j].Start) {
			return all[i].ScheduleID < all[j].ScheduleID
		}
		return all[i].Start.Before(all[j].Start)
	})
	return all, nil
}

// Touches reports whether s has at least one occurrence overlapping w.
func (e *Engine) Touches(s domain.Schedule, w Window) (bool, error) {
	occ, err := e.Occurrences(s, w)
	if err != nil {
		return false, err
	}
	return len(occ) > 0, nil
}
