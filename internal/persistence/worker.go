package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"BarterLedger/internal/observability"
	"BarterLedger/internal/trade"
)

// ArchiveWorker drains the ledger's archive channel and batch-writes
// trade outcomes to Postgres. It runs independently from trade
// processing: the ledger feeds it with non-blocking sends, so a slow or
// unreachable database never stalls a trade. The text log remains the
// authoritative durable record; the archive serves queries.
type ArchiveWorker struct {
	writer       *OutcomeWriter
	inputChan    <-chan trade.History
	batchSize    int
	flushTimeout time.Duration
	metrics      *observability.Metrics
}

func NewArchiveWorker(
	db *sql.DB,
	inputChan <-chan trade.History,
	batchSize int,
	flushTimeout time.Duration,
	metrics *observability.Metrics,
) *ArchiveWorker {
	return &ArchiveWorker{
		writer:       NewOutcomeWriter(db),
		inputChan:    inputChan,
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
		metrics:      metrics,
	}
}

// Run starts the worker loop. It batches incoming outcomes and flushes
// either when the batch is full or the flush timeout expires. Blocks
// until ctx is cancelled.
func (aw *ArchiveWorker) Run(ctx context.Context) error {
	batch := make([]OutcomeRow, 0, aw.batchSize)

	timer := time.NewTimer(aw.flushTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			// Graceful shutdown: flush remaining
			if len(batch) > 0 {
				if err := aw.flush(context.Background(), batch); err != nil {
					log.Printf("ERROR: final archive flush failed: %v", err)
				}
			}
			return ctx.Err()

		case h, ok := <-aw.inputChan:
			if !ok {
				if len(batch) > 0 {
					if err := aw.flush(context.Background(), batch); err != nil {
						log.Printf("ERROR: final archive flush failed: %v", err)
					}
				}
				return nil
			}

			batch = append(batch, RowFromHistory(h))

			if len(batch) >= aw.batchSize {
				if err := aw.flushWithRetry(ctx, batch); err != nil {
					log.Printf("ERROR: archive flush failed after retries: %v", err)
				}
				batch = batch[:0]
				timer.Reset(aw.flushTimeout)
			}

		case <-timer.C:
			if len(batch) > 0 {
				if err := aw.flushWithRetry(ctx, batch); err != nil {
					log.Printf("ERROR: archive timeout flush failed after retries: %v", err)
				}
				batch = batch[:0]
			}
			timer.Reset(aw.flushTimeout)
		}
	}
}

// flushWithRetry attempts to flush with exponential backoff until the
// write succeeds or the context is cancelled. On shutdown one final
// flush runs with a background context so the batch is not lost.
func (aw *ArchiveWorker) flushWithRetry(ctx context.Context, rows []OutcomeRow) error {
	backoff := 100 * time.Millisecond
	const maxBackoff = 30 * time.Second

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			log.Printf("WARN: archive retry attempt %d (backoff=%v, rows=%d)",
				attempt, backoff, len(rows))
			select {
			case <-ctx.Done():
				finalErr := aw.flush(context.Background(), rows)
				if finalErr != nil {
					return fmt.Errorf("final flush on shutdown failed: %w", finalErr)
				}
				return nil
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		err := aw.flush(ctx, rows)
		if err == nil {
			if attempt > 0 {
				log.Printf("INFO: archive flush succeeded after %d retries", attempt)
			}
			return nil
		}

		if aw.metrics != nil {
			aw.metrics.PersistRetry.Inc()
		}
	}
}

func (aw *ArchiveWorker) flush(ctx context.Context, rows []OutcomeRow) error {
	start := time.Now()

	tx, err := aw.writer.db.BeginTx(ctx, nil)
	if err != nil {
		if aw.metrics != nil {
			aw.metrics.PersistErrors.WithLabelValues("tx_begin").Inc()
		}
		return err
	}
	defer tx.Rollback()

	if err := aw.writer.WriteBatch(ctx, tx, rows); err != nil {
		if aw.metrics != nil {
			aw.metrics.PersistErrors.WithLabelValues("write_outcomes").Inc()
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if aw.metrics != nil {
			aw.metrics.PersistErrors.WithLabelValues("tx_commit").Inc()
		}
		return err
	}

	if aw.metrics != nil {
		aw.metrics.PersistBatchDur.Observe(time.Since(start).Seconds())
		aw.metrics.PersistBatchSize.Observe(float64(len(rows)))
		aw.metrics.PersistOutcomesWritten.Add(float64(len(rows)))
	}

	return nil
}
