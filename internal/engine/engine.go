package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"BarterLedger/internal/exchange"
	"BarterLedger/internal/item"
	"BarterLedger/internal/ledger"
	"BarterLedger/internal/notify"
	"BarterLedger/internal/observability"
	"BarterLedger/internal/policy"
	"BarterLedger/internal/trade"
)

// Engine owns the pending-trade map and is the only component that
// mutates trade status or bargained amounts. All mutating operations on
// one trade id are serialized through the lock table; distinct trades
// proceed in parallel.
type Engine struct {
	mu      sync.RWMutex
	pending map[uuid.UUID]*trade.Trade

	locks    *LockTable
	gate     policy.Gate
	exec     *exchange.Executor
	ledger   *ledger.Ledger
	notifier notify.Notifier
	catalog  *item.Catalog

	metrics *observability.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

// Config carries the engine's collaborators. Metrics may be nil.
type Config struct {
	Gate     policy.Gate
	Executor *exchange.Executor
	Ledger   *ledger.Ledger
	Notifier notify.Notifier
	Catalog  *item.Catalog
	Metrics  *observability.Metrics
	Logger   zerolog.Logger
	Now      func() time.Time
}

// New builds an engine with an empty pending map.
func New(cfg Config) *Engine {
	e := &Engine{
		pending:  make(map[uuid.UUID]*trade.Trade),
		locks:    NewLockTable(),
		gate:     cfg.Gate,
		exec:     cfg.Executor,
		ledger:   cfg.Ledger,
		notifier: cfg.Notifier,
		catalog:  cfg.Catalog,
		metrics:  cfg.Metrics,
		log:      cfg.Logger.With().Str("component", "engine").Logger(),
		now:      cfg.Now,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.metrics != nil {
		e.locks.OnSize(func(n int) { e.metrics.TradeLocks.Set(float64(n)) })
	}
	return e
}

// Locks exposes the lock table to the sweeper.
func (e *Engine) Locks() *LockTable { return e.locks }

// Create registers a new PENDING trade and notifies the target. Policy
// prechecks (parties not banned, offered kind not blocked, target
// reachable) belong to the dispatcher, not here.
func (e *Engine) Create(initiator, target uuid.UUID, offered item.Bundle, kind1 string, amt1 int, kind2 string, amt2 int, note string) (*trade.Trade, error) {
	if initiator == target {
		return nil, fmt.Errorf("initiator and target must differ")
	}
	if offered.IsEmpty() {
		return nil, fmt.Errorf("offered bundle empty: %w", trade.ErrInvalidAmount)
	}
	if amt1 < 1 {
		return nil, fmt.Errorf("requested amount 1 must be at least 1: %w", trade.ErrInvalidAmount)
	}
	if amt2 < 0 {
		return nil, fmt.Errorf("requested amount 2 must not be negative: %w", trade.ErrInvalidAmount)
	}

	now := e.now()
	t := trade.New(initiator, target, offered.Clone(), kind1, amt1, kind2, amt2, note, now)

	e.mu.Lock()
	e.pending[t.ID] = t
	size := len(e.pending)
	e.mu.Unlock()

	h := trade.Snapshot(t, trade.StatusPending, now)
	e.ledger.Record(initiator, h)
	e.ledger.Record(target, h)

	e.notifier.Notify(target, fmt.Sprintf(
		"trade offer from %s: %dx%s for %s (trade %s)",
		initiator, offered.Count, offered.Kind, describeRequest(t), t.ID))

	if e.metrics != nil {
		e.metrics.TradesCreated.Inc()
		e.metrics.PendingTrades.Set(float64(size))
	}
	e.log.Info().Str("trade_id", t.ID.String()).
		Str("initiator", initiator.String()).Str("target", target.String()).
		Msg("trade created")
	return t, nil
}

// Accept drives a pending or bargained trade to completion. Only the
// target may accept a PENDING trade and only the initiator may accept a
// BARGAINING one; any other combination leaves the trade untouched.
func (e *Engine) Accept(actorID, tradeID uuid.UUID) error {
	start := e.now()
	release := e.locks.Acquire(tradeID)
	defer release()
	defer e.observeOp("accept", start)

	t, err := e.lookup(actorID, tradeID)
	if err != nil {
		return e.opError("accept", err)
	}
	if t.Expired(e.now()) {
		e.expireLocked(t)
		return e.opError("accept", trade.ErrExpired)
	}

	canAccept := (t.Status == trade.StatusPending && actorID == t.TargetID) ||
		(t.Status == trade.StatusBargaining && actorID == t.InitiatorID)
	if !canAccept {
		e.notifier.Notify(actorID, fmt.Sprintf("cannot accept trade %s in its current state", t.ID))
		return e.opError("accept", trade.ErrWrongState)
	}

	execStart := e.now()
	execErr := e.exec.Execute(t)
	if e.metrics != nil {
		e.metrics.ExchangeDuration.Observe(e.now().Sub(execStart).Seconds())
	}
	if execErr != nil {
		e.notifier.Notify(t.InitiatorID, fmt.Sprintf("trade %s failed: %v", t.ID, execErr))
		e.notifier.Notify(t.TargetID, fmt.Sprintf("trade %s could not complete: your side no longer satisfies the terms or policy", t.ID))
		return e.opError("accept", execErr)
	}

	// Independent re-scan. The acting actor's other concurrent actions
	// can alter containers between transfer and here; if the agreed
	// bundles are not where they should be, resources have already
	// moved and no second rollback is attempted.
	if err := e.exec.Verify(t); err != nil {
		if e.metrics != nil {
			e.metrics.VerifyMismatches.Inc()
		}
		e.log.Error().Str("trade_id", t.ID.String()).Err(err).
			Msg("post-trade verification mismatch")
		e.notifier.Notify(t.InitiatorID, fmt.Sprintf("trade %s failed: verification mismatch", t.ID))
		e.notifier.Notify(t.TargetID, fmt.Sprintf("trade %s failed: verification mismatch", t.ID))
		return e.opError("accept", err)
	}

	now := e.now()
	size := e.finalize(t, trade.StatusCompleted)

	h := trade.Snapshot(t, trade.StatusCompleted, now)
	e.ledger.Record(t.InitiatorID, h)
	e.ledger.Record(t.TargetID, h)

	e.notifier.Notify(t.InitiatorID, fmt.Sprintf("trade %s succeeded", t.ID))
	e.notifier.Notify(t.TargetID, fmt.Sprintf("trade %s succeeded", t.ID))

	if e.metrics != nil {
		e.metrics.TradesCompleted.Inc()
		e.metrics.PendingTrades.Set(float64(size))
	}
	e.log.Info().Str("trade_id", t.ID.String()).Msg("trade completed")
	return nil
}

// Deny terminates the trade unconditionally for either participant.
func (e *Engine) Deny(actorID, tradeID uuid.UUID) error {
	start := e.now()
	release := e.locks.Acquire(tradeID)
	defer release()
	defer e.observeOp("deny", start)

	t, err := e.lookup(actorID, tradeID)
	if err != nil {
		return e.opError("deny", err)
	}

	now := e.now()
	size := e.finalize(t, trade.StatusDenied)

	h := trade.Snapshot(t, trade.StatusDenied, now)
	e.ledger.Record(t.InitiatorID, h)
	e.ledger.Record(t.TargetID, h)

	e.notifier.Notify(t.Counterparty(actorID), fmt.Sprintf("trade %s was denied", t.ID))
	e.notifier.Notify(actorID, fmt.Sprintf("you denied trade %s", t.ID))

	if e.metrics != nil {
		e.metrics.TradesDenied.Inc()
		e.metrics.PendingTrades.Set(float64(size))
	}
	e.log.Info().Str("trade_id", t.ID.String()).Msg("trade denied")
	return nil
}

// Bargain lets the target counter-offer new requested amounts. The TTL
// is not renewed.
func (e *Engine) Bargain(actorID, tradeID uuid.UUID, newAmt1, newAmt2 int) error {
	start := e.now()
	release := e.locks.Acquire(tradeID)
	defer release()
	defer e.observeOp("bargain", start)

	e.mu.RLock()
	t, ok := e.pending[tradeID]
	e.mu.RUnlock()
	if !ok {
		return e.opError("bargain", trade.ErrNotFound)
	}
	if actorID != t.TargetID {
		return e.opError("bargain", trade.ErrNotParticipant)
	}
	if t.Expired(e.now()) {
		e.expireLocked(t)
		return e.opError("bargain", trade.ErrExpired)
	}

	aliases := e.gate.Aliases()
	max1 := e.maxStackFor(t.RequestedKind1, aliases)
	if newAmt1 < 1 || newAmt1 > max1 {
		return e.opError("bargain", fmt.Errorf("amount 1 outside [1,%d]: %w", max1, trade.ErrInvalidAmount))
	}
	if t.RequestedKind2 != "" {
		max2 := e.maxStackFor(t.RequestedKind2, aliases)
		if newAmt2 < 0 || newAmt2 > max2 {
			return e.opError("bargain", fmt.Errorf("amount 2 outside [0,%d]: %w", max2, trade.ErrInvalidAmount))
		}
	} else {
		newAmt2 = 0
	}

	// Term writes take e.mu as well as the trade lock: PendingFor and
	// FindBetween read trades under e.mu.RLock only, so every Trade field
	// write must be serialized against them.
	e.mu.Lock()
	t.RequestedAmount1 = newAmt1
	t.RequestedAmount2 = newAmt2
	t.Status = trade.StatusBargaining
	e.mu.Unlock()

	e.notifier.Notify(t.InitiatorID, fmt.Sprintf(
		"counter-offer on trade %s: %s", t.ID, describeRequest(t)))

	if e.metrics != nil {
		e.metrics.TradesBargained.Inc()
	}
	e.log.Info().Str("trade_id", t.ID.String()).
		Int("amount_1", newAmt1).Int("amount_2", newAmt2).
		Msg("trade bargained")
	return nil
}

// PendingFor returns copies of all live trades involving the actor,
// newest first.
func (e *Engine) PendingFor(actorID uuid.UUID) []trade.Trade {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []trade.Trade
	for _, t := range e.pending {
		if t.Participant(actorID) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// FindBetween resolves the newest pending trade where both actors
// participate. Used to address accept/deny/bargain by counterparty.
func (e *Engine) FindBetween(actorID, counterpartyID uuid.UUID) (uuid.UUID, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var best *trade.Trade
	for _, t := range e.pending {
		if t.Participant(actorID) && t.Participant(counterpartyID) {
			if best == nil || t.CreatedAt.After(best.CreatedAt) {
				best = t
			}
		}
	}
	if best == nil {
		return uuid.Nil, false
	}
	return best.ID, true
}

// SweepExpired expires every stale pending trade. Called by the sweeper.
func (e *Engine) SweepExpired(now time.Time) int {
	e.mu.RLock()
	ids := make([]uuid.UUID, 0, len(e.pending))
	for id := range e.pending {
		ids = append(ids, id)
	}
	e.mu.RUnlock()

	expired := 0
	for _, id := range ids {
		release := e.locks.Acquire(id)
		e.mu.RLock()
		t, ok := e.pending[id]
		e.mu.RUnlock()
		if ok && t.Expired(now) {
			e.expireLocked(t)
			expired++
		}
		release()
	}
	return expired
}

// IsPending reports whether the trade id is still live.
func (e *Engine) IsPending(tradeID uuid.UUID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.pending[tradeID]
	return ok
}

// lookup fetches a live trade and checks participation.
func (e *Engine) lookup(actorID, tradeID uuid.UUID) (*trade.Trade, error) {
	e.mu.RLock()
	t, ok := e.pending[tradeID]
	e.mu.RUnlock()
	if !ok {
		return nil, trade.ErrNotFound
	}
	if !t.Participant(actorID) {
		return nil, trade.ErrNotParticipant
	}
	return t, nil
}

// expireLocked terminates a stale trade. The caller holds the trade lock.
func (e *Engine) expireLocked(t *trade.Trade) {
	size := e.finalize(t, trade.StatusExpired)

	e.notifier.Notify(t.InitiatorID, fmt.Sprintf("trade %s expired", t.ID))
	e.notifier.Notify(t.TargetID, fmt.Sprintf("trade %s expired", t.ID))

	if e.metrics != nil {
		e.metrics.TradesExpired.Inc()
		e.metrics.PendingTrades.Set(float64(size))
	}
	e.log.Info().Str("trade_id", t.ID.String()).Msg("trade expired")
}

// finalize stamps the terminal status and drops the trade from the
// pending map in one critical section. Status is written under e.mu so
// readers copying pending trades never observe a torn struct.
func (e *Engine) finalize(t *trade.Trade, status trade.Status) int {
	e.mu.Lock()
	t.Status = status
	delete(e.pending, t.ID)
	size := len(e.pending)
	e.mu.Unlock()
	return size
}

func (e *Engine) maxStackFor(code string, aliases policy.AliasTable) int {
	kind, ok := aliases.Resolve(code)
	if !ok {
		kind = code
	}
	return e.catalog.MaxStack(kind)
}

func (e *Engine) observeOp(op string, start time.Time) {
	if e.metrics != nil {
		e.metrics.TradeOpDuration.WithLabelValues(op).Observe(e.now().Sub(start).Seconds())
	}
}

func (e *Engine) opError(op string, err error) error {
	if e.metrics != nil {
		e.metrics.TradeOpErrors.WithLabelValues(op, reasonLabel(err)).Inc()
	}
	return err
}

func describeRequest(t *trade.Trade) string {
	s := fmt.Sprintf("%dx%s", t.RequestedAmount1, t.RequestedKind1)
	if t.HasSecondRequest() {
		s += fmt.Sprintf(" + %dx%s", t.RequestedAmount2, t.RequestedKind2)
	}
	return s
}
