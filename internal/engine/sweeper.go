package engine

import (
	"time"

	"github.com/rs/zerolog"

	"BarterLedger/internal/ledger"
)

// Default sweep cadences. Expiry and persistence run on independent
// intervals off one driving tick.
const (
	DefaultExpiryInterval  = 30 * time.Second
	DefaultPersistInterval = 60 * time.Second
)

// Sweeper expires stale trades, reclaims orphaned lock handles, and
// periodically flushes the ledger's exceptional subset. It does not
// schedule itself: the owner drives OnTick from a ticker.
type Sweeper struct {
	engine *Engine
	ledger *ledger.Ledger
	log    zerolog.Logger

	expiryInterval  time.Duration
	persistInterval time.Duration
	lastExpiry      time.Time
	lastPersist     time.Time
}

// NewSweeper wires a sweeper with the default cadences.
func NewSweeper(e *Engine, l *ledger.Ledger, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		engine:          e,
		ledger:          l,
		log:             log.With().Str("component", "sweeper").Logger(),
		expiryInterval:  DefaultExpiryInterval,
		persistInterval: DefaultPersistInterval,
	}
}

// SetIntervals overrides the cadences. Test hook.
func (s *Sweeper) SetIntervals(expiry, persist time.Duration) {
	s.expiryInterval = expiry
	s.persistInterval = persist
}

// OnTick runs due sweeps for the given wall-clock instant. Safe to call
// at any frequency; each sweep fires only when its interval has elapsed.
func (s *Sweeper) OnTick(now time.Time) {
	if now.Sub(s.lastExpiry) >= s.expiryInterval {
		s.lastExpiry = now
		expired := s.engine.SweepExpired(now)
		reaped := s.engine.Locks().Reap(s.engine.IsPending)
		if expired > 0 || reaped > 0 {
			s.log.Info().Int("expired", expired).Int("locks_reaped", reaped).
				Msg("expiry sweep")
		}
	}

	if now.Sub(s.lastPersist) >= s.persistInterval {
		s.lastPersist = now
		if err := s.ledger.PersistExceptional(); err != nil {
			s.log.Error().Err(err).Msg("exceptional persist failed")
		}
	}
}
