package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"

	"BarterLedger/internal/testutil"
	"BarterLedger/internal/trade"
)

// setupArchiveDB connects to the compose Postgres, applies migrations
// and returns a migrated pool. Skips when the database is unreachable.
func setupArchiveDB(t *testing.T) (*sql.DB, func(), context.Context) {
	t.Helper()
	testutil.RequireIntegration(t)

	db, cleanup := testutil.SetupTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	if err := NewMigrator(db, "../../migrations").Up(ctx); err != nil {
		cleanup()
		t.Fatalf("migrate up: %v", err)
	}
	return db, cleanup, ctx
}

func completedHistory(recordedAt time.Time) trade.History {
	return trade.History{
		TradeID:          uuid.New(),
		InitiatorID:      uuid.New(),
		TargetID:         uuid.New(),
		OfferedKind:      "diamond",
		OfferedAmount:    1,
		RequestedKind1:   "iron_ingot",
		RequestedAmount1: 5,
		Status:           "COMPLETED",
		RecordedAt:       recordedAt,
	}
}

func TestWriteBatchCollapsesParticipantPair(t *testing.T) {
	db, cleanup, ctx := setupArchiveDB(t)
	defer cleanup()

	w := NewOutcomeWriter(db)
	h := completedHistory(time.Now().UTC().Truncate(time.Microsecond))

	// The ledger records one entry per participant; both land in the
	// same batch with the same (trade_id, status).
	rows := []OutcomeRow{RowFromHistory(h), RowFromHistory(h)}
	if err := w.WriteBatch(ctx, nil, rows); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	// A redelivered batch is a no-op.
	if err := w.WriteBatch(ctx, nil, rows[:1]); err != nil {
		t.Fatalf("WriteBatch redelivery: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM barter.trade_outcomes WHERE trade_id = $1`,
		h.TradeID,
	).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Errorf("archived rows = %d, want 1", count)
	}

	// Empty second request and note are stored as NULL.
	var kind2, note sql.NullString
	if err := db.QueryRowContext(ctx,
		`SELECT requested_kind_2, note FROM barter.trade_outcomes WHERE trade_id = $1`,
		h.TradeID,
	).Scan(&kind2, &note); err != nil {
		t.Fatalf("read row: %v", err)
	}
	if kind2.Valid || note.Valid {
		t.Errorf("empty kind2/note stored non-NULL: %+v %+v", kind2, note)
	}
}

func TestArchiveWorkerFlushesOnChannelClose(t *testing.T) {
	db, cleanup, ctx := setupArchiveDB(t)
	defer cleanup()

	feed := make(chan trade.History, 8)
	worker := NewArchiveWorker(db, feed, 2, 50*time.Millisecond, nil)

	base := time.Now().UTC().Truncate(time.Microsecond)
	ids := make([]uuid.UUID, 3)
	for i := range ids {
		h := completedHistory(base.Add(time.Duration(i) * time.Second))
		ids[i] = h.TradeID
		feed <- h
	}
	close(feed)

	// Full batch of two flushes inline, the straggler on channel close.
	if err := worker.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, id := range ids {
		var count int
		if err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM barter.trade_outcomes WHERE trade_id = $1`, id,
		).Scan(&count); err != nil {
			t.Fatalf("count rows: %v", err)
		}
		if count != 1 {
			t.Errorf("trade %s archived %d times, want 1", id, count)
		}
	}
}
