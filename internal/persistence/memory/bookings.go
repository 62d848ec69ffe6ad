package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/example/facility-scheduler/internal/domain"
	"github.com/example/facility-scheduler/internal/persistence"
)

// BookingStore holds schedules grouped by room. Callers serialize writers per
// room; the store's own mutex only protects the maps.
type BookingStore struct {
	mu     sync.RWMutex
	byRoom map[string]map[string]domain.Schedule
	roomOf map[string]string
}

// NewBookingStore returns an empty store.
func NewBookingStore() *BookingStore {
	return &BookingStore{
		byRoom: make(map[string]map[string]domain.Schedule),
		roomOf: make(map[string]string),
	}
}

// ListByRoom returns the room's schedules ordered by start, then id.
func (s *BookingStore) ListByRoom(roomID string) []domain.Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return sortedSchedules(s.byRoom[roomID])
}

// Get retrieves a schedule by id.
func (s *BookingStore) Get(id string) (domain.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roomID, ok := s.roomOf[id]
	if !ok {
		return domain.Schedule{}, persistence.ErrNotFound
	}
	return s.byRoom[roomID][id], nil
}

// Insert adds a new schedule.
func (s *BookingStore) Insert(schedule domain.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.roomOf[schedule.ID]; ok {
		return fmt.Errorf("memory: schedule %s: %w", schedule.ID, persistence.ErrDuplicate)
	}
	s.putLocked(schedule)
	return nil
}

// Replace overwrites an existing schedule, moving it between rooms when its
// room changed.
func (s *BookingStore) Replace(schedule domain.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous, ok := s.roomOf[schedule.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if previous != schedule.RoomID {
		s.dropLocked(previous, schedule.ID)
	}
	s.putLocked(schedule)
	return nil
}

// Remove deletes a schedule and returns what was stored.
func (s *BookingStore) Remove(id string) (domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roomID, ok := s.roomOf[id]
	if !ok {
		return domain.Schedule{}, persistence.ErrNotFound
	}
	removed := s.byRoom[roomID][id]
	s.dropLocked(roomID, id)
	return removed, nil
}

// CountByRoom returns the number of schedules booked in a room.
func (s *BookingStore) CountByRoom(roomID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.byRoom[roomID])
}

// RoomOf returns the room a schedule is booked in.
func (s *BookingStore) RoomOf(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roomID, ok := s.roomOf[id]
	return roomID, ok
}

// All returns every schedule keyed by room id.
func (s *BookingStore) All() map[string][]domain.Schedule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]domain.Schedule, len(s.byRoom))
	for roomID, schedules := range s.byRoom {
		out[roomID] = sortedSchedules(schedules)
	}
	return out
}

// Load replaces the store's contents. Schedule ids must be unique and each
// schedule must be listed under its own room.
func (s *BookingStore) Load(schedules map[string][]domain.Schedule) error {
	byRoom := make(map[string]map[string]domain.Schedule, len(schedules))
	roomOf := make(map[string]string)
	for roomID, list := range schedules {
		for _, schedule := range list {
			if schedule.RoomID != roomID {
				return fmt.Errorf("memory: schedule %s listed under room %s: %w", schedule.ID, roomID, persistence.ErrConstraintViolation)
			}
			if _, ok := roomOf[schedule.ID]; ok {
				return fmt.Errorf("memory: schedule %s: %w", schedule.ID, persistence.ErrDuplicate)
			}
			if byRoom[roomID] == nil {
				byRoom[roomID] = make(map[string]domain.Schedule)
			}
			byRoom[roomID][schedule.ID] = schedule
			roomOf[schedule.ID] = roomID
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byRoom = byRoom
	s.roomOf = roomOf
	return nil
}

func (s *BookingStore) putLocked(schedule domain.Schedule) {
	room := s.byRoom[schedule.RoomID]
	if room == nil {
		room = make(map[string]domain.Schedule)
		s.byRoom[schedule.RoomID] = room
	}
	room[schedule.ID] = schedule
	s.roomOf[schedule.ID] = schedule.RoomID
}

func (s *BookingStore) dropLocked(roomID, id string) {
	delete(s.byRoom[roomID], id)
	if len(s.byRoom[roomID]) == 0 {
		delete(s.byRoom, roomID)
	}
	delete(s.roomOf, id)
}

func sortedSchedules(schedules map[string]domain.Schedule) []domain.Schedule {
	out := make([]domain.Schedule, 0, len(schedules))
	for _, schedule := range schedules {
		out = append(out, schedule)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}
