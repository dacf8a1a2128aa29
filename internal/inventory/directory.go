package inventory

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"BarterLedger/internal/item"
)

// ErrUnknownActor is returned when a handle does not resolve to a
// registered container.
var ErrUnknownActor = errors.New("inventory: unknown actor")

// Resolver maps an actor id to that actor's live container.
type Resolver interface {
	Resolve(actorID uuid.UUID) (*Container, error)
}

// Directory is the in-memory actor registry. Actors appear through
// Register (driven by registration commands) and stay for the life of
// the process.
type Directory struct {
	mu         sync.RWMutex
	containers map[uuid.UUID]*Container
	names      map[string]uuid.UUID
	catalog    *item.Catalog
	capacity   int
}

// NewDirectory creates an empty registry. capacity <= 0 uses
// DefaultCapacity for new containers.
func NewDirectory(catalog *item.Catalog, capacity int) *Directory {
	return &Directory{
		containers: make(map[uuid.UUID]*Container),
		names:      make(map[string]uuid.UUID),
		catalog:    catalog,
		capacity:   capacity,
	}
}

// Register creates (or returns) the container for actorID and records the
// display name for lookup.
func (d *Directory) Register(actorID uuid.UUID, name string) *Container {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.containers[actorID]; ok {
		if name != "" {
			d.names[name] = actorID
		}
		return c
	}
	c := NewContainer(d.capacity, d.catalog)
	d.containers[actorID] = c
	if name != "" {
		d.names[name] = actorID
	}
	return c
}

// Resolve implements Resolver.
func (d *Directory) Resolve(actorID uuid.UUID) (*Container, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.containers[actorID]
	if !ok {
		return nil, ErrUnknownActor
	}
	return c, nil
}

// Lookup resolves a display name to an actor id.
func (d *Directory) Lookup(name string) (uuid.UUID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.names[name]
	return id, ok
}

// Known reports whether the actor is registered.
func (d *Directory) Known(actorID uuid.UUID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.containers[actorID]
	return ok
}
