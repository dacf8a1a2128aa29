package exchange

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"BarterLedger/internal/inventory"
	"BarterLedger/internal/item"
	"BarterLedger/internal/policy"
	"BarterLedger/internal/trade"
)

var (
	alice = uuid.MustParse("aaaaaaaa-0000-0000-0000-00000000000a")
	bob   = uuid.MustParse("bbbbbbbb-0000-0000-0000-00000000000b")
)

type fixture struct {
	directory *inventory.Directory
	store     *policy.Store
	exec      *Executor
	alice     *inventory.Container
	bob       *inventory.Container
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog := item.DefaultCatalog()
	directory := inventory.NewDirectory(catalog, 36)
	store := policy.NewStore()
	for _, kind := range catalog.Kinds() {
		store.SetAlias(kind, kind)
	}
	return &fixture{
		directory: directory,
		store:     store,
		exec:      NewExecutor(directory, store, catalog, zerolog.Nop()),
		alice:     directory.Register(alice, "Alice"),
		bob:       directory.Register(bob, "Bob"),
	}
}

func grant(t *testing.T, c *inventory.Container, kind string, n int) {
	t.Helper()
	if err := c.Add(item.Bundle{Kind: kind, Count: n}); err != nil {
		t.Fatalf("grant %dx%s: %v", n, kind, err)
	}
}

func newTrade(offeredKind string, offeredAmt int, kind1 string, amt1 int) *trade.Trade {
	return trade.New(alice, bob,
		item.Bundle{Kind: offeredKind, Count: offeredAmt},
		kind1, amt1, "", 0, "", time.Now())
}

func TestExecuteMovesBundlesBothWays(t *testing.T) {
	f := newFixture(t)
	grant(t, f.alice, "diamond", 3)
	grant(t, f.bob, "iron_ingot", 10)

	tr := newTrade("diamond", 2, "iron_ingot", 5)
	if err := f.exec.Execute(tr); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := f.alice.Count(item.Bundle{Kind: "diamond", Count: 1}); got != 1 {
		t.Errorf("alice diamonds = %d, want 1", got)
	}
	if got := f.alice.Count(item.Bundle{Kind: "iron_ingot", Count: 1}); got != 5 {
		t.Errorf("alice iron = %d, want 5", got)
	}
	if got := f.bob.Count(item.Bundle{Kind: "diamond", Count: 1}); got != 2 {
		t.Errorf("bob diamonds = %d, want 2", got)
	}
	if got := f.bob.Count(item.Bundle{Kind: "iron_ingot", Count: 1}); got != 5 {
		t.Errorf("bob iron = %d, want 5", got)
	}

	if err := f.exec.Verify(tr); err != nil {
		t.Errorf("Verify after clean execute: %v", err)
	}
}

func TestExecuteSecondRequestedKind(t *testing.T) {
	f := newFixture(t)
	grant(t, f.alice, "diamond", 1)
	grant(t, f.bob, "iron_ingot", 5)
	grant(t, f.bob, "ender_pearl", 4)

	tr := trade.New(alice, bob,
		item.Bundle{Kind: "diamond", Count: 1},
		"iron_ingot", 5, "ender_pearl", 2, "", time.Now())
	if err := f.exec.Execute(tr); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := f.alice.Count(item.Bundle{Kind: "ender_pearl", Count: 1}); got != 2 {
		t.Errorf("alice pearls = %d, want 2", got)
	}
	if got := f.bob.Count(item.Bundle{Kind: "ender_pearl", Count: 1}); got != 2 {
		t.Errorf("bob pearls = %d, want 2", got)
	}
}

func TestExecuteTargetLacksRequested(t *testing.T) {
	f := newFixture(t)
	grant(t, f.alice, "diamond", 1)
	grant(t, f.bob, "iron_ingot", 3)

	// Asks for 5 iron but bob only holds 3.
	tr := newTrade("diamond", 1, "iron_ingot", 5)
	err := f.exec.Execute(tr)
	if !errors.Is(err, trade.ErrInsufficientResources) {
		t.Fatalf("Execute = %v, want ErrInsufficientResources", err)
	}

	if got := f.alice.Count(item.Bundle{Kind: "diamond", Count: 1}); got != 1 {
		t.Errorf("alice diamonds changed: %d", got)
	}
	if got := f.bob.Count(item.Bundle{Kind: "iron_ingot", Count: 1}); got != 3 {
		t.Errorf("bob iron changed: %d", got)
	}
}

func TestExecuteInitiatorLacksOffered(t *testing.T) {
	f := newFixture(t)
	grant(t, f.bob, "iron_ingot", 10)

	tr := newTrade("diamond", 1, "iron_ingot", 5)
	if err := f.exec.Execute(tr); !errors.Is(err, trade.ErrInsufficientResources) {
		t.Fatalf("Execute = %v, want ErrInsufficientResources", err)
	}
}

func TestExecuteInfiniteModeSkipsInitiatorHoldings(t *testing.T) {
	f := newFixture(t)
	f.store.SetInfiniteMode(alice, true)
	grant(t, f.bob, "iron_ingot", 10)

	// Alice holds nothing; infinite mode conjures the offered bundle.
	tr := newTrade("diamond", 2, "iron_ingot", 5)
	if err := f.exec.Execute(tr); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := f.bob.Count(item.Bundle{Kind: "diamond", Count: 1}); got != 2 {
		t.Errorf("bob diamonds = %d, want 2", got)
	}
	if got := f.alice.Count(item.Bundle{Kind: "iron_ingot", Count: 1}); got != 5 {
		t.Errorf("alice iron = %d, want 5", got)
	}
	if err := f.exec.Verify(tr); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestExecuteBlockedKinds(t *testing.T) {
	f := newFixture(t)
	grant(t, f.alice, "diamond", 1)
	grant(t, f.bob, "iron_ingot", 5)

	t.Run("offered kind blocked for initiator", func(t *testing.T) {
		f.store.BlockFor(alice, "diamond")
		defer f.store.UnblockFor(alice, "diamond")

		tr := newTrade("diamond", 1, "iron_ingot", 5)
		if err := f.exec.Execute(tr); !errors.Is(err, trade.ErrPolicyBlocked) {
			t.Fatalf("Execute = %v, want ErrPolicyBlocked", err)
		}
	})

	t.Run("requested kind blocked globally", func(t *testing.T) {
		f.store.BlockGlobal("iron_ingot")
		defer f.store.UnblockGlobal("iron_ingot")

		tr := newTrade("diamond", 1, "iron_ingot", 5)
		if err := f.exec.Execute(tr); !errors.Is(err, trade.ErrPolicyBlocked) {
			t.Fatalf("Execute = %v, want ErrPolicyBlocked", err)
		}
	})

	if got := f.alice.Count(item.Bundle{Kind: "diamond", Count: 1}); got != 1 {
		t.Errorf("blocked trades mutated alice: %d", got)
	}
}

func TestExecuteUnresolvableCodeFails(t *testing.T) {
	f := newFixture(t)
	grant(t, f.alice, "diamond", 1)
	grant(t, f.bob, "iron_ingot", 5)

	tr := newTrade("diamond", 1, "IRN", 5) // code never registered
	if err := f.exec.Execute(tr); !errors.Is(err, trade.ErrPolicyBlocked) {
		t.Fatalf("Execute = %v, want ErrPolicyBlocked", err)
	}
}

func TestExecuteAliasCodeResolves(t *testing.T) {
	f := newFixture(t)
	f.store.SetAlias("IRN", "iron_ingot")
	grant(t, f.alice, "diamond", 1)
	grant(t, f.bob, "iron_ingot", 5)

	tr := newTrade("diamond", 1, "IRN", 5)
	if err := f.exec.Execute(tr); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := f.alice.Count(item.Bundle{Kind: "iron_ingot", Count: 1}); got != 5 {
		t.Errorf("alias delivery failed: alice iron = %d", got)
	}
}

func TestExecuteScreensContainerContents(t *testing.T) {
	f := newFixture(t)
	f.store.BlockGlobal("ancient_debris")
	grant(t, f.bob, "iron_ingot", 5)

	box := item.Bundle{Kind: "shulker_box", Count: 1, Attrs: &item.Attributes{
		Contents: []item.Bundle{{Kind: "ancient_debris", Count: 16}},
	}}
	if err := f.alice.Add(box); err != nil {
		t.Fatalf("grant box: %v", err)
	}

	tr := trade.New(alice, bob, box, "iron_ingot", 5, "", 0, "", time.Now())
	if err := f.exec.Execute(tr); !errors.Is(err, trade.ErrPolicyBlocked) {
		t.Fatalf("Execute = %v, want ErrPolicyBlocked", err)
	}
}

func TestExecuteScreensDegenerateContents(t *testing.T) {
	f := newFixture(t)
	grant(t, f.bob, "iron_ingot", 5)

	box := item.Bundle{Kind: "shulker_box", Count: 1, Attrs: &item.Attributes{
		Contents: []item.Bundle{{Kind: "diamond", Count: 0}},
	}}
	if err := f.alice.Add(box); err != nil {
		t.Fatalf("grant box: %v", err)
	}

	tr := trade.New(alice, bob, box, "iron_ingot", 5, "", 0, "", time.Now())
	if err := f.exec.Execute(tr); !errors.Is(err, trade.ErrPolicyBlocked) {
		t.Fatalf("Execute = %v, want ErrPolicyBlocked", err)
	}
}

func TestExecuteNoSpaceRollsBack(t *testing.T) {
	catalog := item.DefaultCatalog()
	directory := inventory.NewDirectory(catalog, 1) // one slot each
	store := policy.NewStore()
	for _, kind := range catalog.Kinds() {
		store.SetAlias(kind, kind)
	}
	exec := NewExecutor(directory, store, catalog, zerolog.Nop())

	rollbacks := 0
	exec.OnRollback(func() { rollbacks++ })

	aliceC := directory.Register(alice, "")
	bobC := directory.Register(bob, "")
	grant(t, aliceC, "diamond", 1)
	grant(t, bobC, "iron_ingot", 64)

	// Removing 32 iron leaves bob's only slot occupied, so the offered
	// diamond has nowhere to land.
	tr := newTrade("diamond", 1, "iron_ingot", 32)
	if err := exec.Execute(tr); !errors.Is(err, trade.ErrNoSpace) {
		t.Fatalf("Execute = %v, want ErrNoSpace", err)
	}
	if rollbacks != 1 {
		t.Errorf("rollbacks = %d, want 1", rollbacks)
	}

	if got := aliceC.Count(item.Bundle{Kind: "diamond", Count: 1}); got != 1 {
		t.Errorf("alice not restored: diamonds = %d", got)
	}
	if got := bobC.Count(item.Bundle{Kind: "iron_ingot", Count: 1}); got != 64 {
		t.Errorf("bob not restored: iron = %d", got)
	}
}

func TestVerifyDetectsMissingBundles(t *testing.T) {
	f := newFixture(t)
	grant(t, f.alice, "diamond", 1)
	grant(t, f.bob, "iron_ingot", 5)

	tr := newTrade("diamond", 1, "iron_ingot", 5)
	if err := f.exec.Execute(tr); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	// Simulate an out-of-band withdrawal between transfer and verify.
	if err := f.bob.Remove(item.Bundle{Kind: "diamond", Count: 1}); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := f.exec.Verify(tr); !errors.Is(err, trade.ErrVerifyMismatch) {
		t.Fatalf("Verify = %v, want ErrVerifyMismatch", err)
	}
}
