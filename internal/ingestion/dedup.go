package ingestion

import (
	"container/list"
	"fmt"
)

// Deduper catches JetStream redeliveries by command id. A bounded LRU is
// enough: redeliveries arrive within the ack window, long before the
// capacity horizon.
// Not thread-safe — only accessed from the single dispatcher goroutine.
type Deduper struct {
	capacity int
	cache    map[string]*list.Element
	lruList  *list.List

	evictions int64
	onEvict   func()
}

type dedupEntry struct {
	key string
}

// NewDeduper creates a deduper holding at most capacity keys.
func NewDeduper(capacity int) *Deduper {
	return &Deduper{
		capacity: capacity,
		cache:    make(map[string]*list.Element, capacity),
		lruList:  list.New(),
	}
}

// OnEvict registers a hook invoked once per evicted key.
func (d *Deduper) OnEvict(fn func()) {
	d.onEvict = fn
}

func compositeKey(commandType, commandID string) string {
	return fmt.Sprintf("%s:%s", commandType, commandID)
}

// IsDuplicate checks whether the command was already processed and
// promotes the key on a hit.
func (d *Deduper) IsDuplicate(commandType, commandID string) bool {
	elem, exists := d.cache[compositeKey(commandType, commandID)]
	if exists {
		d.lruList.MoveToFront(elem)
		return true
	}
	return false
}

// MarkProcessed records the command id after successful processing.
func (d *Deduper) MarkProcessed(commandType, commandID string) {
	key := compositeKey(commandType, commandID)
	if elem, exists := d.cache[key]; exists {
		d.lruList.MoveToFront(elem)
		return
	}

	entry := &dedupEntry{key: key}
	elem := d.lruList.PushFront(entry)
	d.cache[key] = elem

	if d.lruList.Len() > d.capacity {
		d.evictOldest()
	}
}

func (d *Deduper) evictOldest() {
	elem := d.lruList.Back()
	if elem != nil {
		d.lruList.Remove(elem)
		entry := elem.Value.(*dedupEntry)
		delete(d.cache, entry.key)
		d.evictions++
		if d.onEvict != nil {
			d.onEvict()
		}
	}
}

// Size returns current number of entries.
func (d *Deduper) Size() int {
	return d.lruList.Len()
}

// Evictions returns total evictions (for metrics).
func (d *Deduper) Evictions() int64 {
	return d.evictions
}
