package exchange

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"BarterLedger/internal/inventory"
	"BarterLedger/internal/item"
	"BarterLedger/internal/policy"
	"BarterLedger/internal/trade"
)

// Executor performs the two-party resource exchange for an agreed trade.
// It never mutates the Trade itself; it only reads terms and moves
// bundles between the parties' containers. Any failure before or during
// the transfer restores both containers from pre-transfer snapshots.
type Executor struct {
	resolver inventory.Resolver
	gate     policy.Gate
	catalog  *item.Catalog
	log      zerolog.Logger

	// onRollback is invoked whenever a failed transfer triggers a
	// container restore. Used for metrics.
	onRollback func()
}

// NewExecutor wires the executor's collaborators.
func NewExecutor(resolver inventory.Resolver, gate policy.Gate, catalog *item.Catalog, log zerolog.Logger) *Executor {
	return &Executor{
		resolver:   resolver,
		gate:       gate,
		catalog:    catalog,
		log:        log.With().Str("component", "exchange").Logger(),
		onRollback: func() {},
	}
}

// OnRollback registers a hook fired once per rollback.
func (e *Executor) OnRollback(fn func()) {
	if fn != nil {
		e.onRollback = fn
	}
}

// Execute runs the exchange for t. On a nil return both sides hold their
// agreed bundles; on error neither container has changed. The caller is
// expected to follow up with Verify.
func (e *Executor) Execute(t *trade.Trade) error {
	initiator, err := e.resolver.Resolve(t.InitiatorID)
	if err != nil {
		return fmt.Errorf("resolve initiator: %w", err)
	}
	target, err := e.resolver.Resolve(t.TargetID)
	if err != nil {
		return fmt.Errorf("resolve target: %w", err)
	}

	// One alias snapshot for the whole execution; a concurrent alias
	// change cannot split the resolution of kind 1 and kind 2.
	aliases := e.gate.Aliases()
	req1, req2, err := e.resolveRequests(t, aliases)
	if err != nil {
		return err
	}

	infinite := e.gate.HasInfiniteMode(t.InitiatorID)
	if err := e.preValidate(t, initiator, target, req1, req2, infinite); err != nil {
		return err
	}

	initiatorSnap := initiator.Snapshot()
	targetSnap := target.Snapshot()

	if err := e.transfer(t, initiator, target, req1, req2, infinite); err != nil {
		e.rollback(t, initiator, initiatorSnap, target, targetSnap)
		return err
	}
	return nil
}

func (e *Executor) resolveRequests(t *trade.Trade, aliases policy.AliasTable) (item.Bundle, item.Bundle, error) {
	kind1, ok := aliases.Resolve(t.RequestedKind1)
	if !ok {
		return item.Empty, item.Empty, fmt.Errorf("code %q: %w", t.RequestedKind1, trade.ErrPolicyBlocked)
	}
	req1 := item.Bundle{Kind: kind1, Count: t.RequestedAmount1}

	req2 := item.Empty
	if t.HasSecondRequest() {
		kind2, ok := aliases.Resolve(t.RequestedKind2)
		if !ok {
			return item.Empty, item.Empty, fmt.Errorf("code %q: %w", t.RequestedKind2, trade.ErrPolicyBlocked)
		}
		req2 = item.Bundle{Kind: kind2, Count: t.RequestedAmount2}
	}
	return req1, req2, nil
}

func (e *Executor) preValidate(t *trade.Trade, initiator, target *inventory.Container, req1, req2 item.Bundle, infinite bool) error {
	if !infinite && initiator.Count(t.Offered) < t.Offered.Count {
		return fmt.Errorf("initiator lacks %dx%s: %w", t.Offered.Count, t.Offered.Kind, trade.ErrInsufficientResources)
	}
	if e.gate.IsBlocked(t.Offered.Kind, t.InitiatorID) {
		return fmt.Errorf("offered kind %s: %w", t.Offered.Kind, trade.ErrPolicyBlocked)
	}
	if err := e.screenContents(t.Offered, t.InitiatorID); err != nil {
		return err
	}

	if e.gate.IsBlocked(req1.Kind, t.TargetID) {
		return fmt.Errorf("requested kind %s: %w", req1.Kind, trade.ErrPolicyBlocked)
	}
	if target.Count(req1) < req1.Count {
		return fmt.Errorf("target lacks %dx%s: %w", req1.Count, req1.Kind, trade.ErrInsufficientResources)
	}
	if !req2.IsEmpty() {
		if e.gate.IsBlocked(req2.Kind, t.TargetID) {
			return fmt.Errorf("requested kind %s: %w", req2.Kind, trade.ErrPolicyBlocked)
		}
		if target.Count(req2) < req2.Count {
			return fmt.Errorf("target lacks %dx%s: %w", req2.Count, req2.Kind, trade.ErrInsufficientResources)
		}
	}
	return nil
}

// screenContents rejects container items carrying blocked or degenerate
// inner bundles. Non-container kinds pass trivially.
func (e *Executor) screenContents(offered item.Bundle, initiatorID uuid.UUID) error {
	if !e.catalog.IsContainer(offered.Kind) || offered.Attrs == nil {
		return nil
	}
	for _, inner := range offered.Attrs.Contents {
		if inner.Kind == "" || inner.Count <= 0 {
			return fmt.Errorf("container holds empty entry: %w", trade.ErrPolicyBlocked)
		}
		if e.gate.IsBlocked(inner.Kind, initiatorID) {
			return fmt.Errorf("container holds blocked kind %s: %w", inner.Kind, trade.ErrPolicyBlocked)
		}
	}
	return nil
}

func (e *Executor) transfer(t *trade.Trade, initiator, target *inventory.Container, req1, req2 item.Bundle, infinite bool) error {
	if !infinite {
		if err := initiator.Remove(t.Offered); err != nil {
			return fmt.Errorf("remove offered: %w", trade.ErrInsufficientResources)
		}
	}
	if err := target.Remove(req1); err != nil {
		return fmt.Errorf("remove requested 1: %w", trade.ErrInsufficientResources)
	}
	if !req2.IsEmpty() {
		if err := target.Remove(req2); err != nil {
			return fmt.Errorf("remove requested 2: %w", trade.ErrInsufficientResources)
		}
	}
	if err := target.Add(t.Offered); err != nil {
		return fmt.Errorf("deliver offered: %w", trade.ErrNoSpace)
	}
	if err := initiator.Add(req1); err != nil {
		return fmt.Errorf("deliver requested 1: %w", trade.ErrNoSpace)
	}
	if !req2.IsEmpty() {
		if err := initiator.Add(req2); err != nil {
			return fmt.Errorf("deliver requested 2: %w", trade.ErrNoSpace)
		}
	}
	return nil
}

// rollback restores both containers from their pre-transfer snapshots.
// A restore fault is logged and swallowed; it must never abort the
// caller's request.
func (e *Executor) rollback(t *trade.Trade, initiator *inventory.Container, initiatorSnap []item.Bundle, target *inventory.Container, targetSnap []item.Bundle) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Str("trade_id", t.ID.String()).Interface("panic", r).
				Msg("rollback failed; containers may be inconsistent")
		}
	}()
	initiator.Restore(initiatorSnap)
	target.Restore(targetSnap)
	e.onRollback()
	e.log.Warn().Str("trade_id", t.ID.String()).Msg("transfer failed; containers rolled back")
}

// Verify re-scans both containers after a successful transfer and
// confirms the agreed bundles landed in the expected hands. It is an
// independent double-check against concurrent out-of-band container
// mutation during the transfer window.
func (e *Executor) Verify(t *trade.Trade) error {
	initiator, err := e.resolver.Resolve(t.InitiatorID)
	if err != nil {
		return fmt.Errorf("resolve initiator: %w", err)
	}
	target, err := e.resolver.Resolve(t.TargetID)
	if err != nil {
		return fmt.Errorf("resolve target: %w", err)
	}

	aliases := e.gate.Aliases()
	req1, req2, err := e.resolveRequests(t, aliases)
	if err != nil {
		return err
	}

	if target.Count(t.Offered) < t.Offered.Count {
		return fmt.Errorf("target missing offered bundle: %w", trade.ErrVerifyMismatch)
	}
	if initiator.Count(req1) < req1.Count {
		return fmt.Errorf("initiator missing requested bundle 1: %w", trade.ErrVerifyMismatch)
	}
	if !req2.IsEmpty() && initiator.Count(req2) < req2.Count {
		return fmt.Errorf("initiator missing requested bundle 2: %w", trade.ErrVerifyMismatch)
	}
	return nil
}
