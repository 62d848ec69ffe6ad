package recurrence

import "time"

// SinceMidnight returns the wall-clock offset of t from the start of its day.
func SinceMidnight(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}

// StartOfDay returns local midnight of the calendar day holding t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NextDay returns local midnight of the calendar day after the one holding t.
func NextDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

// OnDay places a wall-clock offset on the calendar day holding t. Wall-clock
// placement keeps the clock time stable across daylight saving changes.
func OnDay(t time.Time, offset time.Duration) time.Time {
	y, m, d := t.Date()
	h := int(offset / time.Hour)
	offset -= time.Duration(h) * time.Hour
	mi := int(offset / time.Minute)
	offset -= time.Duration(mi) * time.Minute
	s := int(offset / time.Second)
	offset -= time.Duration(s) * time.Second
	return time.Date(y, m, d, h, mi, s, int(offset), t.Location())
}
