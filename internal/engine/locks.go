package engine

import (
	"sync"

	"github.com/google/uuid"
)

// LockTable hands out one mutual-exclusion handle per trade id, created
// lazily on first acquire. Entries are reference counted so a sweep can
// reclaim handles nobody holds once the trade has left the pending map.
type LockTable struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
	onSize  func(int)
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// NewLockTable creates an empty lock table.
func NewLockTable() *LockTable {
	return &LockTable{
		entries: make(map[uuid.UUID]*lockEntry),
		onSize:  func(int) {},
	}
}

// OnSize registers a hook receiving the table size after each change.
func (lt *LockTable) OnSize(fn func(int)) {
	if fn != nil {
		lt.onSize = fn
	}
}

// Acquire blocks until the trade's lock is held and returns the release
// function. Callers must release on every exit path.
func (lt *LockTable) Acquire(tradeID uuid.UUID) func() {
	lt.mu.Lock()
	e, ok := lt.entries[tradeID]
	if !ok {
		e = &lockEntry{}
		lt.entries[tradeID] = e
	}
	e.refs++
	lt.onSize(len(lt.entries))
	lt.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			lt.mu.Lock()
			e.refs--
			lt.mu.Unlock()
		})
	}
}

// Reap drops every unheld entry whose trade id the keep predicate
// rejects. Held entries stay regardless.
func (lt *LockTable) Reap(keep func(uuid.UUID) bool) int {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	removed := 0
	for id, e := range lt.entries {
		if e.refs == 0 && !keep(id) {
			delete(lt.entries, id)
			removed++
		}
	}
	lt.onSize(len(lt.entries))
	return removed
}

// Len returns the current entry count.
func (lt *LockTable) Len() int {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	return len(lt.entries)
}
