package engine

import (
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestLockTableMutualExclusion(t *testing.T) {
	lt := NewLockTable()
	id := uuid.New()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := lt.Acquire(id)
			defer release()
			counter++
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
}

func TestLockTableReleaseIsIdempotent(t *testing.T) {
	lt := NewLockTable()
	id := uuid.New()

	release := lt.Acquire(id)
	release()
	release() // second call must be a no-op

	// If the double release corrupted the refcount, this would hang or
	// panic.
	release2 := lt.Acquire(id)
	release2()
}

func TestLockTableReap(t *testing.T) {
	lt := NewLockTable()
	live := uuid.New()
	dead := uuid.New()

	lt.Acquire(live)()
	lt.Acquire(dead)()
	if lt.Len() != 2 {
		t.Fatalf("Len = %d, want 2", lt.Len())
	}

	removed := lt.Reap(func(id uuid.UUID) bool { return id == live })
	if removed != 1 {
		t.Errorf("Reap = %d, want 1", removed)
	}
	if lt.Len() != 1 {
		t.Errorf("Len = %d, want 1", lt.Len())
	}
}

func TestLockTableReapSkipsHeldEntries(t *testing.T) {
	lt := NewLockTable()
	id := uuid.New()

	release := lt.Acquire(id)
	defer release()

	// Nothing keeps the id, but the lock is held.
	if removed := lt.Reap(func(uuid.UUID) bool { return false }); removed != 0 {
		t.Errorf("Reap removed a held entry")
	}
	if lt.Len() != 1 {
		t.Errorf("Len = %d, want 1", lt.Len())
	}
}

func TestLockTableDoesNotGrowUnbounded(t *testing.T) {
	lt := NewLockTable()

	for i := 0; i < 1000; i++ {
		lt.Acquire(uuid.New())()
	}
	lt.Reap(func(uuid.UUID) bool { return false })

	if lt.Len() != 0 {
		t.Errorf("Len after reap = %d, want 0", lt.Len())
	}
}
