package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"BarterLedger/internal/trade"
)

// Ledger keeps each actor's trade history in memory, appends every entry
// to a durable text log, and persists DENIED entries to a JSON file for
// reload after restart. Completed and pending entries deliberately do
// not survive a restart.
type Ledger struct {
	mu      sync.RWMutex
	byActor map[uuid.UUID][]trade.History

	logPath         string
	logFile         *os.File
	exceptionalPath string

	// archive receives every recorded entry for the Postgres outcome
	// archive. Sends never block; a full channel drops the entry.
	archive chan<- trade.History

	log          zerolog.Logger
	onEntry      func()
	onWriteError func()
	onFlush      func()
}

// New opens (or creates) the durable text log in append mode. logPath and
// exceptionalPath may be empty to disable the respective file.
func New(logPath, exceptionalPath string, log zerolog.Logger) (*Ledger, error) {
	l := &Ledger{
		byActor:         make(map[uuid.UUID][]trade.History),
		logPath:         logPath,
		exceptionalPath: exceptionalPath,
		log:             log.With().Str("component", "ledger").Logger(),
		onEntry:         func() {},
		onWriteError:    func() {},
		onFlush:         func() {},
	}
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open trade log: %w", err)
		}
		l.logFile = f
	}
	return l, nil
}

// SetArchive wires the outcome-archive channel.
func (l *Ledger) SetArchive(ch chan<- trade.History) {
	l.mu.Lock()
	l.archive = ch
	l.mu.Unlock()
}

// OnEntry registers a hook fired once per recorded entry.
func (l *Ledger) OnEntry(fn func()) {
	if fn != nil {
		l.onEntry = fn
	}
}

// OnWriteError registers a hook fired when a durable log append fails.
func (l *Ledger) OnWriteError(fn func()) {
	if fn != nil {
		l.onWriteError = fn
	}
}

// OnFlush registers a hook fired after each exceptional-trade persist.
func (l *Ledger) OnFlush(fn func()) {
	if fn != nil {
		l.onFlush = fn
	}
}

// Record appends the entry to the actor's in-memory history and to the
// durable text log, and feeds the outcome archive. A text-log write
// failure is logged and swallowed; it never blocks trade progress.
func (l *Ledger) Record(actorID uuid.UUID, h trade.History) {
	l.mu.Lock()
	l.byActor[actorID] = append(l.byActor[actorID], h)
	file := l.logFile
	archive := l.archive
	l.mu.Unlock()

	l.onEntry()

	if file != nil {
		if _, err := fmt.Fprintln(file, h.LogLine()); err != nil {
			l.onWriteError()
			l.log.Error().Err(err).Str("trade_id", h.TradeID.String()).
				Msg("trade log append failed")
		}
	}

	if archive != nil {
		select {
		case archive <- h:
		default:
			l.log.Warn().Str("trade_id", h.TradeID.String()).
				Msg("archive channel full, outcome dropped")
		}
	}
}

// Query returns the actor's history in insertion order. The returned
// slice is a copy and safe to iterate repeatedly.
func (l *Ledger) Query(actorID uuid.UUID) []trade.History {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entries := l.byActor[actorID]
	out := make([]trade.History, len(entries))
	copy(out, entries)
	return out
}

// PersistExceptional writes every DENIED entry, grouped by actor, to the
// exceptional-trade file. Other statuses are intentionally excluded.
func (l *Ledger) PersistExceptional() error {
	if l.exceptionalPath == "" {
		return nil
	}

	l.mu.RLock()
	grouped := make(map[string][]trade.History)
	for actorID, entries := range l.byActor {
		for _, h := range entries {
			if h.Status == trade.StatusDenied.String() {
				key := actorID.String()
				grouped[key] = append(grouped[key], h)
			}
		}
	}
	l.mu.RUnlock()

	b, err := json.MarshalIndent(grouped, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal exceptional trades: %w", err)
	}
	tmp := l.exceptionalPath + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write exceptional trades: %w", err)
	}
	if err := os.Rename(tmp, l.exceptionalPath); err != nil {
		return fmt.Errorf("rename exceptional trades: %w", err)
	}
	l.onFlush()
	return nil
}

// LoadExceptional repopulates the in-memory ledger from a previously
// persisted exceptional-trade file. A missing file is not an error.
func (l *Ledger) LoadExceptional() error {
	if l.exceptionalPath == "" {
		return nil
	}
	b, err := os.ReadFile(l.exceptionalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read exceptional trades: %w", err)
	}
	var grouped map[string][]trade.History
	if err := json.Unmarshal(b, &grouped); err != nil {
		return fmt.Errorf("parse exceptional trades: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for raw, entries := range grouped {
		actorID, err := uuid.Parse(raw)
		if err != nil {
			l.log.Warn().Str("actor", raw).Msg("skipping malformed actor id in exceptional file")
			continue
		}
		l.byActor[actorID] = append(l.byActor[actorID], entries...)
	}
	return nil
}

// Close releases the durable log file handle.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logFile == nil {
		return nil
	}
	err := l.logFile.Close()
	l.logFile = nil
	return err
}
