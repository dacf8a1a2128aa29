package inventory

import (
	"errors"
	"sync"

	"BarterLedger/internal/item"
)

// ErrNoSpace is returned when a container cannot absorb an entire bundle.
var ErrNoSpace = errors.New("inventory: no space")

// ErrInsufficient is returned when a removal asks for more units than the
// container holds of a matching bundle.
var ErrInsufficient = errors.New("inventory: insufficient resources")

// DefaultCapacity matches the stock actor container size.
const DefaultCapacity = 36

// Container is a fixed-capacity, slot-based resource holder. All methods
// are safe for concurrent use; callers that need multi-step atomicity
// (snapshot, mutate, verify) coordinate above this level with trade locks.
type Container struct {
	mu      sync.Mutex
	slots   []item.Bundle
	catalog *item.Catalog
}

// NewContainer creates an empty container with the given slot count.
func NewContainer(capacity int, catalog *item.Catalog) *Container {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Container{
		slots:   make([]item.Bundle, capacity),
		catalog: catalog,
	}
}

// Count returns the total units held matching the probe bundle's kind and
// attributes, across all slots.
func (c *Container) Count(probe item.Bundle) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, s := range c.slots {
		if !s.IsEmpty() && item.SameKindSameAttrs(s, probe) {
			total += s.Count
		}
	}
	return total
}

// Remove takes bundle.Count units matching the bundle's kind and
// attributes out of the container, splitting across slots as needed.
// Nothing is removed if the container holds fewer than bundle.Count units.
func (c *Container) Remove(bundle item.Bundle) error {
	if bundle.IsEmpty() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	held := 0
	for _, s := range c.slots {
		if !s.IsEmpty() && item.SameKindSameAttrs(s, bundle) {
			held += s.Count
		}
	}
	if held < bundle.Count {
		return ErrInsufficient
	}

	remaining := bundle.Count
	for i := range c.slots {
		if remaining == 0 {
			break
		}
		s := &c.slots[i]
		if s.IsEmpty() || !item.SameKindSameAttrs(*s, bundle) {
			continue
		}
		take := s.Count
		if take > remaining {
			take = remaining
		}
		s.Count -= take
		remaining -= take
		if s.Count == 0 {
			*s = item.Empty
		}
	}
	return nil
}

// Add places the bundle into the container, topping up matching stacks to
// the kind's stack limit before filling empty slots. If the bundle does
// not fully fit the container is left unchanged and ErrNoSpace returns.
func (c *Container) Add(bundle item.Bundle) error {
	if bundle.IsEmpty() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	maxStack := item.DefaultMaxStack
	if c.catalog != nil {
		maxStack = c.catalog.MaxStack(bundle.Kind)
	}

	// Dry run first so a partial fit never mutates the container.
	room := 0
	for _, s := range c.slots {
		if s.IsEmpty() {
			room += maxStack
		} else if item.SameKindSameAttrs(s, bundle) && s.Count < maxStack {
			room += maxStack - s.Count
		}
		if room >= bundle.Count {
			break
		}
	}
	if room < bundle.Count {
		return ErrNoSpace
	}

	remaining := bundle.Count
	for i := range c.slots {
		if remaining == 0 {
			break
		}
		s := &c.slots[i]
		if s.IsEmpty() || !item.SameKindSameAttrs(*s, bundle) || s.Count >= maxStack {
			continue
		}
		give := maxStack - s.Count
		if give > remaining {
			give = remaining
		}
		s.Count += give
		remaining -= give
	}
	for i := range c.slots {
		if remaining == 0 {
			break
		}
		s := &c.slots[i]
		if !s.IsEmpty() {
			continue
		}
		give := maxStack
		if give > remaining {
			give = remaining
		}
		*s = bundle.WithCount(give)
		remaining -= give
	}
	return nil
}

// Snapshot deep-copies every slot for later Restore.
func (c *Container) Snapshot() []item.Bundle {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]item.Bundle, len(c.slots))
	for i, s := range c.slots {
		out[i] = s.Clone()
	}
	return out
}

// Restore overwrites the container's slots from a prior Snapshot.
func (c *Container) Restore(snapshot []item.Bundle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots = make([]item.Bundle, len(snapshot))
	for i, s := range snapshot {
		c.slots[i] = s.Clone()
	}
}

// Slots returns a deep copy of the current contents for display.
func (c *Container) Slots() []item.Bundle {
	return c.Snapshot()
}

// Capacity returns the slot count.
func (c *Container) Capacity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}
