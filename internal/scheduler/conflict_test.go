package scheduler

import (
	"testing"
	"time"

	"github.com/example/facility-scheduler/internal/domain"
)

var facility = time.FixedZone("JST", 9*60*60)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02T15:04", value, facility)
	if err != nil {
		t.Fatalf("failed to parse %q: %v", value, err)
	}
	return ts
}

func once(t *testing.T, id, start, end string) domain.Schedule {
	t.Helper()
	return domain.Schedule{
		ID:     id,
		RoomID: "room-1",
		Kind:   domain.KindTherapy,
		Start:  at(t, start),
		End:    at(t, end),
	}
}

func weekly(t *testing.T, id, start, end string, days ...time.Weekday) domain.Schedule {
	t.Helper()
	s := once(t, id, start, end)
	s.Recurrence = domain.WeeklyOn(days...)
	return s
}

func TestDetector_Conflicts(t *testing.T) {
	t.Parallel()

	d := NewDetector(facility)

	cases := []struct {
		name string
		a    func(t *testing.T) domain.Schedule
		b    func(t *testing.T) domain.Schedule
		want bool
	}{
		{
			name: "one-off intervals overlapping",
			a:    func(t *testing.T) domain.Schedule { return once(t, "a", "2024-01-01T10:00", "2024-01-01T11:00") },
			b:    func(t *testing.T) domain.Schedule { return once(t, "b", "2024-01-01T10:30", "2024-01-01T11:30") },
			want: true,
		},
		{
			name: "one-off intervals touching",
			a:    func(t *testing.T) domain.Schedule { return once(t, "a", "2024-01-01T10:00", "2024-01-01T11:00") },
			b:    func(t *testing.T) domain.Schedule { return once(t, "b", "2024-01-01T11:00", "2024-01-01T12:00") },
			want: false,
		},
		{
			name: "one-off interval contained in another",
			a:    func(t *testing.T) domain.Schedule { return once(t, "a", "2024-01-01T09:00", "2024-01-01T17:00") },
			b:    func(t *testing.T) domain.Schedule { return once(t, "b", "2024-01-01T12:00", "2024-01-01T12:15") },
			want: true,
		},
		{
			name: "weekly schedules on disjoint weekdays",
			a:    func(t *testing.T) domain.Schedule { return weekly(t, "a", "2024-01-01T09:00", "2024-01-01T10:00", time.Monday) },
			b:    func(t *testing.T) domain.Schedule { return weekly(t, "b", "2024-01-02T09:00", "2024-01-02T10:00", time.Tuesday) },
			want: false,
		},
		{
			name: "weekly schedules sharing a weekday with overlapping clock time",
			a:    func(t *testing.T) domain.Schedule { return weekly(t, "a", "2024-01-01T09:00", "2024-01-01T10:00", time.Monday, time.Friday) },
			b:    func(t *testing.T) domain.Schedule { return weekly(t, "b", "2023-06-02T09:30", "2023-06-02T10:30", time.Friday) },
			want: true,
		},
		{
			name: "weekly schedules sharing a weekday with touching clock time",
			a:    func(t *testing.T) domain.Schedule { return weekly(t, "a", "2024-01-01T09:00", "2024-01-01T10:00", time.Monday) },
			b:    func(t *testing.T) domain.Schedule { return weekly(t, "b", "2024-01-01T10:00", "2024-01-01T11:00", time.Monday) },
			want: false,
		},
		{
			name: "weekly and one-off on a matching weekday",
			a:    func(t *testing.T) domain.Schedule { return weekly(t, "c", "2024-01-01T09:00", "2024-01-01T10:00", time.Monday) },
			b:    func(t *testing.T) domain.Schedule { return once(t, "d", "2024-01-08T09:30", "2024-01-08T10:15") },
			want: true,
		},
		{
			name: "weekly and one-off before the reference week",
			a:    func(t *testing.T) domain.Schedule { return weekly(t, "c", "2024-01-01T09:00", "2024-01-01T10:00", time.Monday) },
			b:    func(t *testing.T) domain.Schedule { return once(t, "d", "2023-12-25T09:30", "2023-12-25T09:45") },
			want: true,
		},
		{
			name: "weekly and one-off on another weekday",
			a:    func(t *testing.T) domain.Schedule { return weekly(t, "c", "2024-01-01T09:00", "2024-01-01T10:00", time.Monday) },
			b:    func(t *testing.T) domain.Schedule { return once(t, "d", "2024-01-09T09:30", "2024-01-09T10:15") },
			want: false,
		},
		{
			name: "weekly and one-off on matching weekday at another time",
			a:    func(t *testing.T) domain.Schedule { return weekly(t, "c", "2024-01-01T09:00", "2024-01-01T10:00", time.Monday) },
			b:    func(t *testing.T) domain.Schedule { return once(t, "a", "2024-01-01T10:00", "2024-01-01T11:00") },
			want: false,
		},
		{
			name: "one-off spanning midnight into a recurring morning",
			a:    func(t *testing.T) domain.Schedule { return weekly(t, "c", "2024-01-02T00:30", "2024-01-02T01:00", time.Tuesday) },
			b:    func(t *testing.T) domain.Schedule { return once(t, "d", "2024-01-01T22:00", "2024-01-02T02:00") },
			want: true,
		},
		{
			name: "one-off ending exactly at midnight",
			a:    func(t *testing.T) domain.Schedule { return weekly(t, "c", "2024-01-02T00:00", "2024-01-02T01:00", time.Tuesday) },
			b:    func(t *testing.T) domain.Schedule { return once(t, "d", "2024-01-01T22:00", "2024-01-02T00:00") },
			want: false,
		},
		{
			name: "one-off spanning more than a week",
			a:    func(t *testing.T) domain.Schedule { return weekly(t, "c", "2024-01-06T03:00", "2024-01-06T04:00", time.Saturday) },
			b:    func(t *testing.T) domain.Schedule { return once(t, "d", "2024-02-01T00:00", "2024-02-12T00:00") },
			want: true,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			a, b := tc.a(t), tc.b(t)
			if got := d.Conflicts(a, b); got != tc.want {
				t.Fatalf("Conflicts(a, b) = %v, want %v", got, tc.want)
			}
			if got := d.Conflicts(b, a); got != tc.want {
				t.Fatalf("Conflicts(b, a) = %v, want %v (relation must be symmetric)", got, tc.want)
			}
		})
	}
}

func TestDetector_FindConflict(t *testing.T) {
	t.Parallel()

	d := NewDetector(facility)
	existing := []domain.Schedule{
		once(t, "a", "2024-01-01T10:00", "2024-01-01T11:00"),
		weekly(t, "c", "2024-01-01T09:00", "2024-01-01T10:00", time.Monday),
	}

	t.Run("names the colliding schedule", func(t *testing.T) {
		t.Parallel()
		got, ok := d.FindConflict(once(t, "b", "2024-01-01T10:30", "2024-01-01T11:30"), existing)
		if !ok {
			t.Fatalf("expected a conflict")
		}
		if got.ID != "a" {
			t.Fatalf("expected conflict with a, got %q", got.ID)
		}
	})

	t.Run("skips the schedule being replaced", func(t *testing.T) {
		t.Parallel()
		moved := once(t, "a", "2024-01-01T10:30", "2024-01-01T11:30")
		if got, ok := d.FindConflict(moved, existing); ok {
			t.Fatalf("expected no conflict, got %q", got.ID)
		}
	})

	t.Run("ignores schedules of other rooms", func(t *testing.T) {
		t.Parallel()
		other := once(t, "b", "2024-01-01T10:30", "2024-01-01T11:30")
		other.RoomID = "room-2"
		if got, ok := d.FindConflict(other, existing); ok {
			t.Fatalf("expected no conflict across rooms, got %q", got.ID)
		}
	})
}

func TestDetector_Validate(t *testing.T) {
	t.Parallel()

	d := NewDetector(facility)

	t.Run("accepts a well formed weekly schedule", func(t *testing.T) {
		t.Parallel()
		if problems := d.Validate(weekly(t, "c", "2024-01-01T09:00", "2024-01-01T10:00", time.Monday)); len(problems) != 0 {
			t.Fatalf("expected no problems, got %+v", problems)
		}
	})

	cases := []struct {
		name  string
		build func(t *testing.T) domain.Schedule
		field string
	}{
		{"inverted interval", func(t *testing.T) domain.Schedule { return once(t, "a", "2024-01-01T11:00", "2024-01-01T10:00") }, "time"},
		{"zero duration", func(t *testing.T) domain.Schedule { return once(t, "a", "2024-01-01T10:00", "2024-01-01T10:00") }, "time"},
		{"missing room", func(t *testing.T) domain.Schedule {
			s := once(t, "a", "2024-01-01T10:00", "2024-01-01T11:00")
			s.RoomID = " "
			return s
		}, "room_id"},
		{"unknown kind", func(t *testing.T) domain.Schedule {
			s := once(t, "a", "2024-01-01T10:00", "2024-01-01T11:00")
			s.Kind = "surgery"
			return s
		}, "kind"},
		{"empty weekday set", func(t *testing.T) domain.Schedule { return weekly(t, "c", "2024-01-01T09:00", "2024-01-01T10:00") }, "recurrence"},
		{"weekly window across midnight", func(t *testing.T) domain.Schedule {
			return weekly(t, "c", "2024-01-01T23:00", "2024-01-02T01:00", time.Monday)
		}, "time"},
		{"missing start", func(t *testing.T) domain.Schedule {
			s := once(t, "a", "2024-01-01T10:00", "2024-01-01T11:00")
			s.Start = time.Time{}
			return s
		}, "start"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			problems := d.Validate(tc.build(t))
			for _, p := range problems {
				if p.Field == tc.field {
					return
				}
			}
			t.Fatalf("expected a problem on %q, got %+v", tc.field, problems)
		})
	}
}
