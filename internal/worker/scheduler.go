// Package worker hosts the long-running loops of the sync engine: ticker
// workers for schema discovery, provider ingestion and task enqueueing,
// the queue consumer that executes warehouse syncs, and the verification
// expiry sweep.
package worker

import (
	"context"
	"log"
	"time"
)

// DiscoveryRunner is the schema discovery job surface the worker drives.
type DiscoveryRunner interface {
	Run(ctx context.Context) (int, error)
}

// DiscoveryWorker runs schema discovery on a fixed cadence.
type DiscoveryWorker struct {
	job      DiscoveryRunner
	interval time.Duration
}

// NewDiscoveryWorker creates a discovery worker.
func NewDiscoveryWorker(job DiscoveryRunner, interval time.Duration) *DiscoveryWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &DiscoveryWorker{job: job, interval: interval}
}

// Start begins the discovery loop. It blocks until ctx is cancelled.
func (w *DiscoveryWorker) Start(ctx context.Context) {
	log.Printf("[Discovery] Starting (interval=%s)", w.interval)

	// Run once immediately on start
	w.run(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[Discovery] Stopping")
			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

func (w *DiscoveryWorker) run(ctx context.Context) {
	start := time.Now()
	fields, err := w.job.Run(ctx)
	if err != nil {
		log.Printf("[Discovery] Run failed: %v", err)
		return
	}
	log.Printf("[Discovery] Run completed: %d fields in %s", fields, time.Since(start).Round(time.Millisecond))
}

// IngestionRunner is the event ingestion job surface the worker drives.
type IngestionRunner interface {
	Run(ctx context.Context)
}

// IngestionWorker runs provider event ingestion on a fixed cadence.
type IngestionWorker struct {
	job      IngestionRunner
	interval time.Duration
}

// NewIngestionWorker creates an ingestion worker.
func NewIngestionWorker(job IngestionRunner, interval time.Duration) *IngestionWorker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &IngestionWorker{job: job, interval: interval}
}

// Start begins the ingestion loop. It blocks until ctx is cancelled.
func (w *IngestionWorker) Start(ctx context.Context) {
	log.Printf("[Ingestion] Starting (interval=%s)", w.interval)

	w.job.Run(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[Ingestion] Stopping")
			return
		case <-ticker.C:
			w.job.Run(ctx)
		}
	}
}

// EnqueueRunner is the task enqueuer surface the worker drives.
type EnqueueRunner interface {
	Run(ctx context.Context) (int, error)
}

// EnqueueWorker scans integrations and queues sync tasks every interval.
type EnqueueWorker struct {
	enqueuer EnqueueRunner
	interval time.Duration
}

// NewEnqueueWorker creates an enqueue worker.
func NewEnqueueWorker(enqueuer EnqueueRunner, interval time.Duration) *EnqueueWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &EnqueueWorker{enqueuer: enqueuer, interval: interval}
}

// Start begins the enqueue loop. It blocks until ctx is cancelled.
func (w *EnqueueWorker) Start(ctx context.Context) {
	log.Printf("[Enqueuer] Starting (interval=%s)", w.interval)

	w.run(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[Enqueuer] Stopping")
			return
		case <-ticker.C:
			w.run(ctx)
		}
	}
}

func (w *EnqueueWorker) run(ctx context.Context) {
	if _, err := w.enqueuer.Run(ctx); err != nil {
		log.Printf("[Enqueuer] Scan failed: %v", err)
	}
}
