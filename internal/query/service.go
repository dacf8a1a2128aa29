package query

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// ArchiveService provides read-only access to the Postgres outcome
// archive. The live pending set and in-memory ledger are served directly
// by the engine; this service covers everything that survived a restart.
type ArchiveService struct {
	db *sql.DB
}

func NewArchiveService(db *sql.DB) *ArchiveService {
	return &ArchiveService{db: db}
}

// OutcomesForActor returns archived outcomes involving the actor as
// either party, newest first, with cursor-based pagination on
// recorded_at.
func (as *ArchiveService) OutcomesForActor(
	ctx context.Context,
	actorID uuid.UUID,
	status *string,
	limit int,
	before *int64,
) ([]OutcomeResponse, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT trade_id, status, initiator_id, target_id,
		       offered_kind, offered_amount,
		       requested_kind_1, requested_amount_1,
		       COALESCE(requested_kind_2, ''), requested_amount_2,
		       COALESCE(note, ''), recorded_at
		FROM barter.trade_outcomes
		WHERE (initiator_id = $1 OR target_id = $1)
	`
	args := []interface{}{actorID}
	argIdx := 2

	if status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *status)
		argIdx++
	}

	if before != nil {
		query += fmt.Sprintf(" AND recorded_at < to_timestamp($%d)", argIdx)
		args = append(args, *before)
		argIdx++
	}

	query += " ORDER BY recorded_at DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := as.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []OutcomeResponse
	for rows.Next() {
		var o OutcomeResponse
		if err := rows.Scan(
			&o.TradeID, &o.Status, &o.InitiatorID, &o.TargetID,
			&o.OfferedKind, &o.OfferedAmount,
			&o.RequestedKind1, &o.RequestedAmount1,
			&o.RequestedKind2, &o.RequestedAmount2,
			&o.Note, &o.RecordedAt,
		); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}

	return outcomes, rows.Err()
}

// Outcome returns one archived outcome by trade id and status.
func (as *ArchiveService) Outcome(ctx context.Context, tradeID uuid.UUID, status string) (*OutcomeResponse, error) {
	var o OutcomeResponse
	err := as.db.QueryRowContext(ctx, `
		SELECT trade_id, status, initiator_id, target_id,
		       offered_kind, offered_amount,
		       requested_kind_1, requested_amount_1,
		       COALESCE(requested_kind_2, ''), requested_amount_2,
		       COALESCE(note, ''), recorded_at
		FROM barter.trade_outcomes
		WHERE trade_id = $1 AND status = $2
	`, tradeID, status).Scan(
		&o.TradeID, &o.Status, &o.InitiatorID, &o.TargetID,
		&o.OfferedKind, &o.OfferedAmount,
		&o.RequestedKind1, &o.RequestedAmount1,
		&o.RequestedKind2, &o.RequestedAmount2,
		&o.Note, &o.RecordedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Stats returns per-status archived outcome counts.
func (as *ArchiveService) Stats(ctx context.Context) ([]OutcomeStats, error) {
	rows, err := as.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM barter.trade_outcomes
		GROUP BY status
		ORDER BY status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []OutcomeStats
	for rows.Next() {
		var s OutcomeStats
		if err := rows.Scan(&s.Status, &s.Count); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}
