// Package jobs runs background work on a cron schedule.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/facility-scheduler/internal/persistence"
)

// DefaultSnapshotTimeout bounds a single scheduled snapshot.
const DefaultSnapshotTimeout = time.Minute

// Section is one part of the service state that can be copied into and
// restored from a snapshot.
type Section interface {
	Export(snapshot *persistence.Snapshot)
	Import(snapshot persistence.Snapshot) error
}

// SnapshotObserver receives snapshot outcomes.
type SnapshotObserver interface {
	ObserveSnapshot(took time.Duration, err error)
}

// Snapshotter copies the in-memory state into a SnapshotStore periodically
// and on demand. Sections are exported and imported in the order given, so
// referenced data must come first.
type Snapshotter struct {
	store    persistence.SnapshotStore
	sections []Section
	observer SnapshotObserver
	now      func() time.Time
	logger   *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewSnapshotter builds a snapshotter. observer may be nil.
func NewSnapshotter(store persistence.SnapshotStore, observer SnapshotObserver, now func() time.Time, logger *slog.Logger, sections ...Section) *Snapshotter {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Snapshotter{
		store:    store,
		sections: sections,
		observer: observer,
		now:      now,
		logger:   logger.With("component", "snapshotter"),
	}
}

// Restore loads the stored snapshot into every section. A missing snapshot is
// not an error and leaves the sections empty.
func (s *Snapshotter) Restore(ctx context.Context) error {
	snapshot, err := s.store.LoadSnapshot(ctx)
	if errors.Is(err, persistence.ErrNotFound) {
		s.logger.InfoContext(ctx, "no snapshot to restore")
		return nil
	}
	if err != nil {
		return fmt.Errorf("jobs: load snapshot: %w", err)
	}

	for _, section := range s.sections {
		if err := section.Import(snapshot); err != nil {
			return fmt.Errorf("jobs: restore snapshot: %w", err)
		}
	}
	s.logger.InfoContext(ctx, "snapshot restored",
		"taken_at", snapshot.TakenAt,
		"buildings", len(snapshot.Buildings),
		"rooms", len(snapshot.Rooms),
		"equipment", len(snapshot.Equipment),
		"schedules", snapshot.ScheduleCount(),
	)
	return nil
}

// Snapshot writes the current state to the store.
func (s *Snapshotter) Snapshot(ctx context.Context) (err error) {
	started := time.Now()
	defer func() {
		if s.observer != nil {
			s.observer.ObserveSnapshot(time.Since(started), err)
		}
	}()

	snapshot := persistence.Snapshot{TakenAt: s.now()}
	for _, section := range s.sections {
		section.Export(&snapshot)
	}
	if err = s.store.SaveSnapshot(ctx, snapshot); err != nil {
		s.logger.ErrorContext(ctx, "snapshot failed", "error", err)
		return fmt.Errorf("jobs: save snapshot: %w", err)
	}
	s.logger.InfoContext(ctx, "snapshot saved", "schedules", snapshot.ScheduleCount(), "duration", time.Since(started))
	return nil
}

// Start schedules Snapshot with a standard five-field cron spec. Overlapping
// runs are skipped.
func (s *Snapshotter) Start(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("jobs: snapshotter already started")
	}

	logger := cronLogger{logger: s.logger}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultSnapshotTimeout)
		defer cancel()
		_ = s.Snapshot(ctx)
	}); err != nil {
		return fmt.Errorf("jobs: invalid snapshot schedule %q: %w", spec, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("snapshot schedule started", "schedule", spec)
	return nil
}

// Stop waits for a running scheduled snapshot, then writes a final one.
func (s *Snapshotter) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.Snapshot(ctx)
}

// cronLogger routes cron's own logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
