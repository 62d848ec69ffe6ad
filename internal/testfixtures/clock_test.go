package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}
	if ReferenceTime().Weekday() != time.Monday {
		t.Fatalf("reference week must start on Monday, got %s", ReferenceTime().Weekday())
	}
}

func TestClockAdvanceAndSet(t *testing.T) {
	start := time.Date(2024, time.March, 14, 9, 26, 0, 0, time.UTC)
	clock := NewClock(start)

	updated := clock.Advance(90 * time.Minute)
	if !updated.Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", updated)
	}

	clock.Set(start.Add(2 * time.Hour))
	if got := clock.NowFunc()(); !got.Equal(start.Add(2 * time.Hour)) {
		t.Fatalf("expected %v, got %v", start.Add(2*time.Hour), got)
	}
}

func TestAt(t *testing.T) {
	cases := []struct {
		day  time.Weekday
		want time.Time
	}{
		{time.Monday, time.Date(2024, time.January, 1, 10, 30, 0, 0, time.UTC)},
		{time.Wednesday, time.Date(2024, time.January, 3, 10, 30, 0, 0, time.UTC)},
		{time.Sunday, time.Date(2024, time.January, 7, 10, 30, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.day.String(), func(t *testing.T) {
			got := At(tc.day, 10, 30)
			if !got.Equal(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			if got.Weekday() != tc.day {
				t.Fatalf("expected weekday %s, got %s", tc.day, got.Weekday())
			}
		})
	}
}
