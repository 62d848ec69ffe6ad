package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/facility-scheduler/internal/domain"
	"github.com/example/facility-scheduler/internal/persistence"
	"github.com/example/facility-scheduler/internal/recurrence"
	"github.com/example/facility-scheduler/internal/scheduler"
)

// RoomCatalog answers whether a room exists and is active.
type RoomCatalog interface {
	RoomExists(ctx context.Context, id string) (domain.RoomStatus, error)
}

// BookingStore is the in-memory schedule index used inside room critical sections.
type BookingStore interface {
	ListByRoom(roomID string) []domain.Schedule
	Get(id string) (domain.Schedule, error)
	Insert(schedule domain.Schedule) error
	Replace(schedule domain.Schedule) error
	Remove(id string) (domain.Schedule, error)
	CountByRoom(roomID string) int
	RoomOf(id string) (string, bool)
	All() map[string][]domain.Schedule
	Load(schedules map[string][]domain.Schedule) error
}

// BookingMetrics receives booking outcomes. Outcomes use ErrorKind labels,
// with "accepted" or "cancelled" for success.
type BookingMetrics interface {
	ObserveProposal(outcome string)
	ObserveCancellation(outcome string)
	ObserveLockWait(waited time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ObserveProposal(string)        {}
func (noopMetrics) ObserveCancellation(string)    {}
func (noopMetrics) ObserveLockWait(time.Duration) {}

// BookingOptions tunes a BookingService. Zero values select defaults.
type BookingOptions struct {
	Location    *time.Location
	LockTimeout time.Duration
	Metrics     BookingMetrics
	Logger      *slog.Logger
}

// BookingService accepts, replaces and cancels room bookings. Every write runs
// inside the room's critical section: read, detect, write.
type BookingService struct {
	store       BookingStore
	catalog     RoomCatalog
	detector    *scheduler.Detector
	engine      *recurrence.Engine
	locks       *roomLocks
	cache       *occurrenceCache
	metrics     BookingMetrics
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewBookingService constructs a booking service.
func NewBookingService(store BookingStore, catalog RoomCatalog, idGenerator func() string, now func() time.Time, opts BookingOptions) *BookingService {
	if idGenerator == nil {
		idGenerator = newID
	}
	if now == nil {
		now = time.Now
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	var metrics BookingMetrics = noopMetrics{}
	if opts.Metrics != nil {
		metrics = opts.Metrics
	}
	return &BookingService{
		store:       store,
		catalog:     catalog,
		detector:    scheduler.NewDetector(loc),
		engine:      recurrence.NewEngine(loc),
		locks:       newRoomLocks(opts.LockTimeout),
		cache:       newOccurrenceCache(0, 0, now),
		metrics:     metrics,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(opts.Logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// ProposeBooking accepts the schedule when it is well formed, its room is
// active and it conflicts with no other schedule of that room. A schedule whose
// id is already stored replaces the stored one; the old version is never
// counted as a conflict. A rejected proposal leaves the store unchanged.
func (s *BookingService) ProposeBooking(ctx context.Context, principal Principal, proposal domain.Schedule) (accepted domain.Schedule, err error) {
	if s == nil || s.store == nil {
		return domain.Schedule{}, fmt.Errorf("BookingService is not configured")
	}

	logger := s.loggerWith(ctx, "ProposeBooking",
		"principal", principal.Subject,
		"room_id", proposal.RoomID,
		"proposed_id", proposal.ID,
	)
	defer func() {
		outcome := "accepted"
		if err != nil {
			outcome = ErrorKind(err)
		}
		s.metrics.ObserveProposal(outcome)
		attrs := []any{"schedule_id", accepted.ID, "recurrence", string(proposal.Recurrence.Type())}
		var cErr *ConflictError
		if errors.As(err, &cErr) {
			attrs = append(attrs, "conflicting_schedule_id", cErr.ScheduleID)
		}
		logOutcome(ctx, logger, err, "booking rejected", "booking accepted", attrs...)
	}()

	if !principal.CanManage {
		return domain.Schedule{}, ErrUnauthorized
	}

	proposal.Title = proposal.Title.Trimmed()
	if fieldErrs := s.detector.Validate(proposal); len(fieldErrs) > 0 {
		vErr := &ValidationError{}
		for _, fe := range fieldErrs {
			vErr.add(fe.Field, fe.Message)
		}
		return domain.Schedule{}, vErr
	}

	isNew := proposal.ID == ""
	if isNew {
		proposal.ID = s.idGenerator()
	}

	unlock, previous, err := s.lockForWrite(ctx, proposal.ID, proposal.RoomID)
	if err != nil {
		return domain.Schedule{}, err
	}
	defer unlock()

	if err = s.checkRoom(ctx, proposal.RoomID); err != nil {
		return domain.Schedule{}, err
	}

	if existing, found := s.detector.FindConflict(proposal, s.store.ListByRoom(proposal.RoomID)); found {
		return domain.Schedule{}, &ConflictError{ScheduleID: existing.ID}
	}

	now := s.now()
	proposal.UpdatedAt = now
	if previous != nil {
		proposal.CreatedAt = previous.CreatedAt
		err = s.store.Replace(proposal)
	} else {
		proposal.CreatedAt = now
		err = s.store.Insert(proposal)
	}
	if err != nil {
		return domain.Schedule{}, mapBookingStoreError(err)
	}

	s.cache.InvalidateRoom(proposal.RoomID)
	if previous != nil && previous.RoomID != proposal.RoomID {
		s.cache.InvalidateRoom(previous.RoomID)
	}
	return proposal, nil
}

// CancelBooking removes an accepted schedule. Unknown ids, including ones
// already cancelled, yield ErrNotFound.
func (s *BookingService) CancelBooking(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil || s.store == nil {
		return fmt.Errorf("BookingService is not configured")
	}

	logger := s.loggerWith(ctx, "CancelBooking", "principal", principal.Subject, "schedule_id", id)
	defer func() {
		outcome := "cancelled"
		if err != nil {
			outcome = ErrorKind(err)
		}
		s.metrics.ObserveCancellation(outcome)
		logOutcome(ctx, logger, err, "failed to cancel booking", "booking cancelled")
	}()

	if !principal.CanManage {
		return ErrUnauthorized
	}

	roomID, ok := s.store.RoomOf(id)
	if !ok {
		return ErrNotFound
	}

	unlock, previous, err := s.lockForWrite(ctx, id, roomID)
	if err != nil {
		return err
	}
	defer unlock()

	if previous == nil {
		return ErrNotFound
	}
	if _, err = s.store.Remove(id); err != nil {
		return mapBookingStoreError(err)
	}
	s.cache.InvalidateRoom(previous.RoomID)
	return nil
}

// GetBooking returns one accepted schedule.
func (s *BookingService) GetBooking(ctx context.Context, id string) (domain.Schedule, error) {
	if s == nil || s.store == nil {
		return domain.Schedule{}, fmt.Errorf("BookingService is not configured")
	}
	schedule, err := s.store.Get(id)
	if err != nil {
		return domain.Schedule{}, mapBookingStoreError(err)
	}
	return schedule, nil
}

// ListBookings returns a room's schedules ordered by start. With a range, only
// schedules with at least one occurrence overlapping it are kept.
func (s *BookingService) ListBookings(ctx context.Context, roomID string, within *TimeRange) ([]domain.Schedule, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("BookingService is not configured")
	}
	if err := s.requireRoom(ctx, roomID); err != nil {
		return nil, err
	}

	schedules := s.store.ListByRoom(roomID)
	if within == nil {
		return schedules, nil
	}
	if vErr := within.validate(); vErr.HasErrors() {
		return nil, vErr
	}

	window := recurrence.Window{Start: within.From, End: within.To}
	filtered := make([]domain.Schedule, 0, len(schedules))
	for _, schedule := range schedules {
		touches, err := s.engine.Touches(schedule, window)
		if err != nil {
			return nil, mapEngineError(err)
		}
		if touches {
			filtered = append(filtered, schedule)
		}
	}
	return filtered, nil
}

// ListOccurrences expands a room's schedules into concrete occurrences inside
// the range, ordered by start.
func (s *BookingService) ListOccurrences(ctx context.Context, roomID string, within TimeRange) ([]recurrence.Occurrence, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("BookingService is not configured")
	}
	if vErr := within.validate(); vErr.HasErrors() {
		return nil, vErr
	}
	if err := s.requireRoom(ctx, roomID); err != nil {
		return nil, err
	}

	key := occurrenceCacheKey(roomID, within)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	version := s.cache.Version(roomID)
	occurrences, err := s.engine.Expand(s.store.ListByRoom(roomID), recurrence.Window{Start: within.From, End: within.To})
	if err != nil {
		return nil, mapEngineError(err)
	}
	s.cache.Store(key, roomID, version, occurrences)
	return occurrences, nil
}

// LockRoom enters the room's critical section. The returned func releases it
// and is safe to call more than once.
func (s *BookingService) LockRoom(ctx context.Context, roomID string) (func(), error) {
	release, waited, err := s.locks.acquire(ctx, roomID)
	s.metrics.ObserveLockWait(waited)
	if err != nil {
		return nil, err
	}
	return release, nil
}

// HasBookings reports whether any schedule is booked in the room.
func (s *BookingService) HasBookings(roomID string) bool {
	return s.store.CountByRoom(roomID) > 0
}

// Export copies every accepted schedule into snapshot.
func (s *BookingService) Export(snapshot *persistence.Snapshot) {
	snapshot.Schedules = s.store.All()
}

// Import replaces the store with the snapshot's schedules after checking that
// each is well formed and that no two schedules of a room conflict. The
// catalog must already hold the snapshot's rooms. Schedules of rooms the
// catalog does not know are dropped with a warning; such a room was created
// after the catalog section of the snapshot was exported.
func (s *BookingService) Import(snapshot persistence.Snapshot) error {
	if s.catalog == nil {
		return errNoRoomCatalog
	}
	ctx := context.Background()
	kept := make(map[string][]domain.Schedule, len(snapshot.Schedules))
	for roomID, schedules := range snapshot.Schedules {
		if _, err := s.catalog.RoomExists(ctx, roomID); err != nil {
			if errors.Is(err, persistence.ErrNotFound) || errors.Is(err, ErrNotFound) {
				s.logger.Warn("dropping schedules of unknown room", "room_id", roomID, "schedules", len(schedules))
				continue
			}
			return fmt.Errorf("import room %s: %w", roomID, err)
		}
		kept[roomID] = schedules
		for i, schedule := range schedules {
			if fieldErrs := s.detector.Validate(schedule); len(fieldErrs) > 0 {
				return fmt.Errorf("import schedule %s: %s: %s", schedule.ID, fieldErrs[0].Field, fieldErrs[0].Message)
			}
			if other, found := s.detector.FindConflict(schedule, schedules[i+1:]); found {
				return fmt.Errorf("import room %s: schedule %s conflicts with %s", roomID, schedule.ID, other.ID)
			}
		}
	}
	if err := s.store.Load(kept); err != nil {
		return fmt.Errorf("import schedules: %w", err)
	}
	s.cache.Invalidate()
	return nil
}

// lockForWrite locks the rooms a write to schedule id touches: the target room
// and, for a stored schedule, its current room. The stored version is returned
// as previous, read while the locks are held.
func (s *BookingService) lockForWrite(ctx context.Context, id, targetRoom string) (func(), *domain.Schedule, error) {
	for {
		rooms := []string{targetRoom}
		currentRoom, stored := s.store.RoomOf(id)
		if stored {
			rooms = append(rooms, currentRoom)
		}

		release, waited, err := s.locks.acquire(ctx, rooms...)
		s.metrics.ObserveLockWait(waited)
		if err != nil {
			return nil, nil, err
		}

		roomNow, storedNow := s.store.RoomOf(id)
		if storedNow != stored || (stored && roomNow != currentRoom) {
			// Moved by a concurrent writer between the read and the lock.
			release()
			continue
		}
		if !stored {
			return release, nil, nil
		}
		previous, err := s.store.Get(id)
		if err != nil {
			release()
			return nil, nil, mapBookingStoreError(err)
		}
		return release, &previous, nil
	}
}

func (s *BookingService) checkRoom(ctx context.Context, roomID string) error {
	if s.catalog == nil {
		return newValidationError("room_id", "room could not be resolved")
	}
	status, err := s.catalog.RoomExists(ctx, roomID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) || errors.Is(err, ErrNotFound) {
			return newValidationError("room_id", "room does not exist")
		}
		return newValidationError("room_id", "room could not be resolved")
	}
	if !status.Active {
		return newValidationError("room_id", "room is not active")
	}
	return nil
}

func (s *BookingService) requireRoom(ctx context.Context, roomID string) error {
	if s.catalog == nil {
		return fmt.Errorf("room lookup: %w", errNoRoomCatalog)
	}
	if _, err := s.catalog.RoomExists(ctx, roomID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) || errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("room lookup: %w", err)
	}
	return nil
}

var errNoRoomCatalog = errors.New("room catalog is not configured")

func mapBookingStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	}
	return fmt.Errorf("booking store: %w", err)
}

func mapEngineError(err error) error {
	switch {
	case errors.Is(err, recurrence.ErrInvalidWindow):
		return newValidationError("to", "to must be after from")
	case errors.Is(err, recurrence.ErrWindowTooLarge):
		return newValidationError("to", "range is too large")
	}
	return fmt.Errorf("expand occurrences: %w", err)
}
