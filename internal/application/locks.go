package application

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultLockTimeout bounds how long a writer waits for a room.
const DefaultLockTimeout = 2 * time.Second

// roomLocks hands out one exclusive slot per room. Each slot is a channel of
// capacity one so waiting can be bounded and cancelled. A slot lives only while
// some caller holds or waits for it.
type roomLocks struct {
	mu      sync.Mutex
	slots   map[string]*roomSlot
	timeout time.Duration
}

type roomSlot struct {
	ch   chan struct{}
	refs int
}

func newRoomLocks(timeout time.Duration) *roomLocks {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &roomLocks{slots: make(map[string]*roomSlot), timeout: timeout}
}

func (l *roomLocks) join(roomID string) *roomSlot {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[roomID]
	if !ok {
		slot = &roomSlot{ch: make(chan struct{}, 1)}
		l.slots[roomID] = slot
	}
	slot.refs++
	return slot
}

func (l *roomLocks) leave(roomID string, slot *roomSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, roomID)
	}
}

// size reports how many rooms currently have a slot.
func (l *roomLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

// acquire locks every listed room in ascending id order. On failure nothing
// stays locked. The returned duration is the total time spent waiting.
func (l *roomLocks) acquire(ctx context.Context, roomIDs ...string) (func(), time.Duration, error) {
	ids := uniqueSorted(roomIDs)
	started := time.Now()
	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	held := make([]string, 0, len(ids))
	slots := make([]*roomSlot, 0, len(ids))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-slots[i].ch
			l.leave(held[i], slots[i])
		}
	}

	for _, id := range ids {
		slot := l.join(id)
		select {
		case slot.ch <- struct{}{}:
			held = append(held, id)
			slots = append(slots, slot)
			continue
		default:
		}

		select {
		case slot.ch <- struct{}{}:
			held = append(held, id)
			slots = append(slots, slot)
		case <-timer.C:
			l.leave(id, slot)
			release()
			return nil, time.Since(started), &BusyError{RoomID: id}
		case <-ctx.Done():
			l.leave(id, slot)
			release()
			return nil, time.Since(started), ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, time.Since(started), nil
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
