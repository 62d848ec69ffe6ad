package application

import (
	"strings"
	"sync"
	"time"

	"github.com/example/facility-scheduler/internal/recurrence"
)

// occurrenceCache keeps recently expanded occurrence listings so repeated
// calendar reads skip the expansion while a room's bookings are unchanged.
//
// Readers expand outside the room lock, so a listing is only stored when no
// invalidation touched its room since the reader took its version.
type occurrenceCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]occurrenceCacheEntry
	epoch      uint64
	rooms      map[string]uint64
}

// cacheVersion identifies the state of a room's bookings as seen by the cache.
type cacheVersion struct {
	epoch uint64
	room  uint64
}

type occurrenceCacheEntry struct {
	roomID      string
	occurrences []recurrence.Occurrence
	expiresAt   time.Time
}

func newOccurrenceCache(ttl time.Duration, maxEntries int, now func() time.Time) *occurrenceCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if now == nil {
		now = time.Now
	}
	return &occurrenceCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]occurrenceCacheEntry),
		rooms:      make(map[string]uint64),
	}
}

// Version must be read before the room's schedules are loaded for expansion.
func (c *occurrenceCache) Version(roomID string) cacheVersion {
	if c == nil {
		return cacheVersion{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cacheVersion{epoch: c.epoch, room: c.rooms[roomID]}
}

func (c *occurrenceCache) Get(key string) ([]recurrence.Occurrence, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneOccurrences(entry.occurrences), true
}

// Store keeps the listing unless the room was invalidated after version was
// read. It reports whether the listing was kept.
func (c *occurrenceCache) Store(key, roomID string, version cacheVersion, occurrences []recurrence.Occurrence) bool {
	if c == nil {
		return false
	}
	entry := occurrenceCacheEntry{
		roomID:      roomID,
		occurrences: cloneOccurrences(occurrences),
		expiresAt:   c.now().Add(c.ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if version.epoch != c.epoch || version.room != c.rooms[roomID] {
		return false
	}
	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = entry
	return true
}

// InvalidateRoom drops every listing of the given room.
func (c *occurrenceCache) InvalidateRoom(roomID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[roomID]++
	for key, entry := range c.entries {
		if entry.roomID == roomID {
			delete(c.entries, key)
		}
	}
}

// Invalidate drops everything.
func (c *occurrenceCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.epoch++
	c.entries = make(map[string]occurrenceCacheEntry)
	c.rooms = make(map[string]uint64)
	c.mu.Unlock()
}

func (c *occurrenceCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *occurrenceCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneOccurrences(occurrences []recurrence.Occurrence) []recurrence.Occurrence {
	out := make([]recurrence.Occurrence, len(occurrences))
	copy(out, occurrences)
	return out
}

func occurrenceCacheKey(roomID string, r TimeRange) string {
	var b strings.Builder
	b.WriteString(roomID)
	b.WriteString("|")
	b.WriteString(r.From.UTC().Format(time.RFC3339Nano))
	b.WriteString("|")
	b.WriteString(r.To.UTC().Format(time.RFC3339Nano))
	return b.String()
}
