package worker

import (
	"context"
	"database/sql"
	"log"
	"time"
)

const (
	// DefaultSweepInterval is how often the expiry sweep runs.
	DefaultSweepInterval = 1 * time.Hour

	// sweepBatchSize limits each UPDATE to avoid long row locks.
	sweepBatchSize = 10000
)

// ExpirySweepWorker marks overdue verification records as expired. Runs
// in batches until a cycle affects zero rows so a large backlog never
// holds one long transaction.
type ExpirySweepWorker struct {
	db       *sql.DB
	interval time.Duration
}

// NewExpirySweepWorker creates a sweep worker with the default interval.
func NewExpirySweepWorker(db *sql.DB) *ExpirySweepWorker {
	return &ExpirySweepWorker{db: db, interval: DefaultSweepInterval}
}

// Start begins the sweep loop. It blocks until ctx is cancelled.
func (w *ExpirySweepWorker) Start(ctx context.Context) {
	log.Printf("[ExpirySweep] Starting (interval=%s, batch_size=%d)", w.interval, sweepBatchSize)

	// Run once immediately on start
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[ExpirySweep] Stopping")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpirySweepWorker) sweep(ctx context.Context) {
	var total int64

	for {
		if ctx.Err() != nil {
			return
		}

		queryCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		res, err := w.db.ExecContext(queryCtx, `
			UPDATE verification_records
			SET status = 'expired', updated_at = NOW()
			WHERE id IN (
				SELECT id FROM verification_records
				WHERE status = 'pending' AND expires_at < NOW()
				LIMIT $1
			)
		`, sweepBatchSize)
		cancel()

		if err != nil {
			log.Printf("[ExpirySweep] Error expiring records: %v", err)
			return
		}

		affected, _ := res.RowsAffected()
		if affected == 0 {
			break
		}
		total += affected
	}

	if total > 0 {
		log.Printf("[ExpirySweep] Expired %d verification records", total)
	}
}
