package persistence

import (
	"context"
	"time"

	"github.com/example/facility-scheduler/internal/domain"
)

// Snapshot is the full durable state of the service. Schedules are keyed by
// room id.
type Snapshot struct {
	TakenAt   time.Time                    `json:"taken_at"`
	Buildings []domain.Building            `json:"buildings"`
	Rooms     []domain.Room                `json:"rooms"`
	Equipment []domain.Equipment           `json:"equipment"`
	Schedules map[string][]domain.Schedule `json:"schedules"`
}

// ScheduleCount returns the number of schedules across all rooms.
func (s Snapshot) ScheduleCount() int {
	n := 0
	for _, list := range s.Schedules {
		n += len(list)
	}
	return n
}

// SnapshotStore persists snapshots. LoadSnapshot returns ErrNotFound when
// nothing has been saved yet.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot Snapshot) error
	LoadSnapshot(ctx context.Context) (Snapshot, error)
}
