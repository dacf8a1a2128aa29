package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"BarterLedger/internal/trade"
)

// OutcomeWriter writes trade outcomes to Postgres using multi-row
// INSERT. Writes are idempotent: the ledger records one entry per
// participant and the unique (trade_id, status) constraint collapses
// the pair into one archived row.
type OutcomeWriter struct {
	db *sql.DB
}

// OutcomeRow represents a row in barter.trade_outcomes.
type OutcomeRow struct {
	TradeID          uuid.UUID
	Status           string
	InitiatorID      uuid.UUID
	TargetID         uuid.UUID
	OfferedKind      string
	OfferedAmount    int
	RequestedKind1   string
	RequestedAmount1 int
	RequestedKind2   string
	RequestedAmount2 int
	Note             string
	RecordedAt       time.Time
}

// RowFromHistory converts a ledger entry into its archive row.
func RowFromHistory(h trade.History) OutcomeRow {
	return OutcomeRow{
		TradeID:          h.TradeID,
		Status:           h.Status,
		InitiatorID:      h.InitiatorID,
		TargetID:         h.TargetID,
		OfferedKind:      h.OfferedKind,
		OfferedAmount:    h.OfferedAmount,
		RequestedKind1:   h.RequestedKind1,
		RequestedAmount1: h.RequestedAmount1,
		RequestedKind2:   h.RequestedKind2,
		RequestedAmount2: h.RequestedAmount2,
		Note:             h.Note,
		RecordedAt:       h.RecordedAt,
	}
}

func NewOutcomeWriter(db *sql.DB) *OutcomeWriter {
	return &OutcomeWriter{db: db}
}

// WriteBatch writes a batch of outcomes inside tx. A nil tx executes
// directly on the pool.
func (w *OutcomeWriter) WriteBatch(ctx context.Context, tx *sql.Tx, rows []OutcomeRow) error {
	if len(rows) == 0 {
		return nil
	}

	query := `INSERT INTO barter.trade_outcomes
		(trade_id, status, initiator_id, target_id, offered_kind, offered_amount,
		 requested_kind_1, requested_amount_1, requested_kind_2, requested_amount_2,
		 note, recorded_at)
		VALUES `

	values := make([]string, 0, len(rows))
	args := make([]interface{}, 0, len(rows)*12)

	for i, r := range rows {
		base := i * 12
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
			base+7, base+8, base+9, base+10, base+11, base+12,
		))
		args = append(args,
			r.TradeID, r.Status, r.InitiatorID, r.TargetID,
			r.OfferedKind, r.OfferedAmount,
			r.RequestedKind1, r.RequestedAmount1,
			nullable(r.RequestedKind2), r.RequestedAmount2,
			nullable(r.Note), r.RecordedAt,
		)
	}

	query += strings.Join(values, ", ")
	query += " ON CONFLICT (trade_id, status) DO NOTHING" // Idempotent writes

	if tx != nil {
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	}
	_, err := w.db.ExecContext(ctx, query, args...)
	return err
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
