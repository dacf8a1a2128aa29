package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the mutable administrative policy state behind the Gate.
// Bans carry an expiry and are dropped lazily on read. Alias mutations
// bump the snapshot version so in-flight operations keep a consistent
// view.
type Store struct {
	mu sync.RWMutex

	bans          map[uuid.UUID]time.Time
	globalBlocked map[string]struct{}
	actorBlocked  map[uuid.UUID]map[string]struct{}
	aliases       map[string]string
	aliasVersion  uint64
	infinite      map[uuid.UUID]struct{}

	now func() time.Time
}

// NewStore creates an empty policy store.
func NewStore() *Store {
	return &Store{
		bans:          make(map[uuid.UUID]time.Time),
		globalBlocked: make(map[string]struct{}),
		actorBlocked:  make(map[uuid.UUID]map[string]struct{}),
		aliases:       make(map[string]string),
		infinite:      make(map[uuid.UUID]struct{}),
		now:           time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// IsBanned implements Gate. An expired ban is deleted on the way out.
func (s *Store) IsBanned(actorID uuid.UUID) bool {
	s.mu.RLock()
	until, ok := s.bans[actorID]
	now := s.now()
	s.mu.RUnlock()
	if !ok {
		return false
	}
	if now.After(until) {
		s.mu.Lock()
		if cur, still := s.bans[actorID]; still && now.After(cur) {
			delete(s.bans, actorID)
		}
		s.mu.Unlock()
		return false
	}
	return true
}

// IsBlocked implements Gate.
func (s *Store) IsBlocked(kind string, actorID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.globalBlocked[kind]; ok {
		return true
	}
	if per, ok := s.actorBlocked[actorID]; ok {
		if _, ok := per[kind]; ok {
			return true
		}
	}
	return false
}

// Aliases implements Gate.
func (s *Store) Aliases() AliasTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make(map[string]string, len(s.aliases))
	for c, k := range s.aliases {
		codes[c] = k
	}
	return AliasTable{version: s.aliasVersion, codes: codes}
}

// HasInfiniteMode implements Gate.
func (s *Store) HasInfiniteMode(actorID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.infinite[actorID]
	return ok
}

// Ban bans the actor for the given duration.
func (s *Store) Ban(actorID uuid.UUID, d time.Duration) {
	s.mu.Lock()
	s.bans[actorID] = s.now().Add(d)
	s.mu.Unlock()
}

// Unban lifts a ban immediately.
func (s *Store) Unban(actorID uuid.UUID) {
	s.mu.Lock()
	delete(s.bans, actorID)
	s.mu.Unlock()
}

// BlockGlobal blocks a kind for everyone.
func (s *Store) BlockGlobal(kind string) {
	s.mu.Lock()
	s.globalBlocked[kind] = struct{}{}
	s.mu.Unlock()
}

// UnblockGlobal removes a global block.
func (s *Store) UnblockGlobal(kind string) {
	s.mu.Lock()
	delete(s.globalBlocked, kind)
	s.mu.Unlock()
}

// BlockFor blocks a kind for one actor.
func (s *Store) BlockFor(actorID uuid.UUID, kind string) {
	s.mu.Lock()
	per, ok := s.actorBlocked[actorID]
	if !ok {
		per = make(map[string]struct{})
		s.actorBlocked[actorID] = per
	}
	per[kind] = struct{}{}
	s.mu.Unlock()
}

// UnblockFor removes a per-actor block.
func (s *Store) UnblockFor(actorID uuid.UUID, kind string) {
	s.mu.Lock()
	if per, ok := s.actorBlocked[actorID]; ok {
		delete(per, kind)
		if len(per) == 0 {
			delete(s.actorBlocked, actorID)
		}
	}
	s.mu.Unlock()
}

// SetAlias registers or replaces a currency code.
func (s *Store) SetAlias(code, kind string) {
	s.mu.Lock()
	s.aliases[code] = kind
	s.aliasVersion++
	s.mu.Unlock()
}

// RemoveAlias drops a currency code.
func (s *Store) RemoveAlias(code string) {
	s.mu.Lock()
	if _, ok := s.aliases[code]; ok {
		delete(s.aliases, code)
		s.aliasVersion++
	}
	s.mu.Unlock()
}

// SetInfiniteMode toggles the infinite-mode flag for an actor.
func (s *Store) SetInfiniteMode(actorID uuid.UUID, on bool) {
	s.mu.Lock()
	if on {
		s.infinite[actorID] = struct{}{}
	} else {
		delete(s.infinite, actorID)
	}
	s.mu.Unlock()
}

type storeFile struct {
	Bans          map[string]time.Time `json:"bans,omitempty"`
	GlobalBlocked []string             `json:"global_blocked,omitempty"`
	ActorBlocked  map[string][]string  `json:"actor_blocked,omitempty"`
	Aliases       map[string]string    `json:"aliases,omitempty"`
	Infinite      []string             `json:"infinite_mode,omitempty"`
}

// Save writes the full policy state to path as JSON.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	f := storeFile{
		Bans:          make(map[string]time.Time, len(s.bans)),
		GlobalBlocked: make([]string, 0, len(s.globalBlocked)),
		ActorBlocked:  make(map[string][]string, len(s.actorBlocked)),
		Aliases:       make(map[string]string, len(s.aliases)),
		Infinite:      make([]string, 0, len(s.infinite)),
	}
	for id, until := range s.bans {
		f.Bans[id.String()] = until
	}
	for kind := range s.globalBlocked {
		f.GlobalBlocked = append(f.GlobalBlocked, kind)
	}
	for id, per := range s.actorBlocked {
		kinds := make([]string, 0, len(per))
		for kind := range per {
			kinds = append(kinds, kind)
		}
		f.ActorBlocked[id.String()] = kinds
	}
	for c, k := range s.aliases {
		f.Aliases[c] = k
	}
	for id := range s.infinite {
		f.Infinite = append(f.Infinite, id.String())
	}
	s.mu.RUnlock()

	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write policy: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load replaces the store's state from a previously saved file. A missing
// file is not an error; the store stays empty.
func (s *Store) Load(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read policy: %w", err)
	}
	var f storeFile
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("parse policy: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bans = make(map[uuid.UUID]time.Time, len(f.Bans))
	for raw, until := range f.Bans {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		s.bans[id] = until
	}
	s.globalBlocked = make(map[string]struct{}, len(f.GlobalBlocked))
	for _, kind := range f.GlobalBlocked {
		s.globalBlocked[kind] = struct{}{}
	}
	s.actorBlocked = make(map[uuid.UUID]map[string]struct{}, len(f.ActorBlocked))
	for raw, kinds := range f.ActorBlocked {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		per := make(map[string]struct{}, len(kinds))
		for _, kind := range kinds {
			per[kind] = struct{}{}
		}
		s.actorBlocked[id] = per
	}
	s.aliases = make(map[string]string, len(f.Aliases))
	for c, k := range f.Aliases {
		s.aliases[c] = k
	}
	s.aliasVersion++
	s.infinite = make(map[uuid.UUID]struct{}, len(f.Infinite))
	for _, raw := range f.Infinite {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		s.infinite[id] = struct{}{}
	}
	return nil
}
