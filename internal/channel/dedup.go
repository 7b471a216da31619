package channel

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

const (
	DefaultDedupTTL      = 10 * time.Minute
	DefaultDedupCapacity = 10000
)

type dedupEntry struct {
	id     string
	seenAt time.Time
}

// Deduplicator remembers recently processed event ids. Entries expire after
// the TTL and the oldest entries are evicted once capacity is reached, so the
// window is bounded in both time and memory. It is not persisted.
type Deduplicator struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	order    *list.List
	index    map[string]*list.Element
	now      func() time.Time
}

// NewDeduplicator creates a window. Non-positive values fall back to defaults.
func NewDeduplicator(ttl time.Duration, capacity int) *Deduplicator {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	return &Deduplicator{
		ttl:      ttl,
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element),
		now:      time.Now,
	}
}

// Seen reports whether id was marked within the window. Empty ids are never seen.
func (d *Deduplicator) Seen(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sweepLocked()
	_, ok := d.index[id]
	return ok
}

// MarkSeen records id. Empty ids are ignored.
func (d *Deduplicator) MarkSeen(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sweepLocked()
	d.markLocked(id)
}

// CheckAndMark marks id and reports whether it had already been seen. Two
// concurrent deliveries of the same id get exactly one false.
func (d *Deduplicator) CheckAndMark(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sweepLocked()
	if _, ok := d.index[id]; ok {
		return true
	}
	d.markLocked(id)
	return false
}

// Len returns the number of live entries.
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sweepLocked()
	return d.order.Len()
}

func (d *Deduplicator) markLocked(id string) {
	if el, ok := d.index[id]; ok {
		d.order.Remove(el)
	}
	d.index[id] = d.order.PushBack(dedupEntry{id: id, seenAt: d.now()})
	for d.order.Len() > d.capacity {
		d.removeLocked(d.order.Front())
	}
}

// sweepLocked drops expired entries from the front; entries are kept in mark order.
func (d *Deduplicator) sweepLocked() {
	expireBefore := d.now().Add(-d.ttl)
	for el := d.order.Front(); el != nil; el = d.order.Front() {
		if !el.Value.(dedupEntry).seenAt.Before(expireBefore) {
			return
		}
		d.removeLocked(el)
	}
}

func (d *Deduplicator) removeLocked(el *list.Element) {
	entry := d.order.Remove(el).(dedupEntry)
	delete(d.index, entry.id)
}
