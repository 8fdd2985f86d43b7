// Package ingest implements the provider event ingestion job: a pull flow
// that pages the Mailgun events API forward from the sink watermark for
// every account with provider credentials, and a push flow that drains the
// SES webhook staging table. Both feed the same analytical sink, whose
// dedup key makes overlapping or repeated runs safe.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/audience-sync/internal/domain"
	"github.com/ignite/audience-sync/internal/mailgun"
	"github.com/ignite/audience-sync/internal/pkg/logger"
)

// DefaultBatchSize bounds account pages and staging drain batches.
const DefaultBatchSize = 500

// defaultPageLimit is the events-per-page cap requested from the provider.
const defaultPageLimit = 300

// EventSink is the analytical store the job writes to.
type EventSink interface {
	MaxTimestamp(ctx context.Context) (*time.Time, error)
	InsertBatch(ctx context.Context, events []domain.MessageStatusEvent) error
}

// AccountSource lists accounts holding pull-provider credentials.
type AccountSource interface {
	ListMailgunAccounts(ctx context.Context, offset, limit int) ([]domain.Account, error)
}

// Staging is the push-provider staging table written by the webhook
// receiver and drained here.
type Staging interface {
	TakeBatch(ctx context.Context, limit int) ([]domain.StagingEvent, error)
	Delete(ctx context.Context, id int64) error
}

// EventsAPI is the pull-provider surface the job consumes.
type EventsAPI interface {
	ListEvents(ctx context.Context, creds mailgun.Credentials, query mailgun.EventsQuery) (*mailgun.EventsPage, error)
	NextPage(ctx context.Context, creds mailgun.Credentials, pageURL string) (*mailgun.EventsPage, error)
}

// Job ingests message delivery events from both providers.
type Job struct {
	api       EventsAPI
	accounts  AccountSource
	sink      EventSink
	staging   Staging
	watermark *WatermarkTracker
	batchSize int
	pageLimit int
}

// NewJob creates an ingestion job over the given collaborators.
func NewJob(api EventsAPI, accounts AccountSource, sink EventSink, staging Staging, batchSize int) *Job {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Job{
		api:       api,
		accounts:  accounts,
		sink:      sink,
		staging:   staging,
		watermark: NewWatermarkTracker(sink),
		batchSize: batchSize,
		pageLimit: defaultPageLimit,
	}
}

// Run executes both sub-flows. Neither depends on the other's output;
// a failure in one is logged and does not stop the other.
func (j *Job) Run(ctx context.Context) {
	start := time.Now()

	if err := j.runPull(ctx); err != nil {
		logger.Error("pull ingestion failed", "provider", ProviderMailgun, "error", err)
	}
	if err := j.runPush(ctx); err != nil {
		logger.Error("staging drain failed", "provider", ProviderSES, "error", err)
	}

	logger.Info("event ingestion completed", "elapsed", time.Since(start).Round(time.Millisecond))
}

// runPull pages every credentialed account's events forward from the
// watermark. Per-account failures are logged and skipped so one bad API
// key cannot starve the rest of the batch.
func (j *Job) runPull(ctx context.Context) error {
	watermark, err := j.watermark.Current(ctx)
	if err != nil {
		return err
	}

	for offset := 0; ; offset += j.batchSize {
		accounts, err := j.accounts.ListMailgunAccounts(ctx, offset, j.batchSize)
		if err != nil {
			return fmt.Errorf("listing accounts at offset %d: %w", offset, err)
		}
		if len(accounts) == 0 {
			return nil
		}

		for _, acct := range accounts {
			if err := j.ingestAccount(ctx, acct, watermark); err != nil {
				logger.Error("account ingestion failed", "account", acct.ID, "error", err)
			}
		}

		if len(accounts) < j.batchSize {
			return nil
		}
	}
}

// ingestAccount follows pagination from watermark+1s until the cursor
// catches up to the watermark or the provider returns an empty page, then
// bulk-inserts the account's accepted events in one batch.
func (j *Job) ingestAccount(ctx context.Context, acct domain.Account, watermark time.Time) error {
	creds := mailgun.Credentials{APIKey: acct.MailgunAPIKey, Domain: acct.MailgunDomain}

	// Begin strictly after the watermark so the boundary event already in
	// the sink is not refetched.
	page, err := j.api.ListEvents(ctx, creds, mailgun.EventsQuery{
		Begin:     watermark.Add(time.Second),
		Ascending: true,
		Limit:     j.pageLimit,
	})
	if err != nil {
		return fmt.Errorf("opening events query: %w", err)
	}

	var batch []domain.MessageStatusEvent
	accepted, dropped := 0, 0
	for {
		for _, item := range page.Items {
			ev, ok := Normalize(item, ProviderMailgun)
			if !ok {
				dropped++
				continue
			}
			batch = append(batch, ev)
			accepted++
		}

		// An empty page means end of data; a last event at or before the
		// watermark means the cursor caught up.
		last := page.LastEventTime()
		if last.IsZero() || !last.After(watermark) || page.Paging.Next == "" {
			break
		}

		page, err = j.api.NextPage(ctx, creds, page.Paging.Next)
		if err != nil {
			return fmt.Errorf("following events page: %w", err)
		}
	}

	if dropped > 0 {
		logger.Warn("dropped events without correlation ids", "account", acct.ID, "dropped", dropped)
	}
	if len(batch) == 0 {
		return nil
	}
	if err := j.sink.InsertBatch(ctx, batch); err != nil {
		return fmt.Errorf("inserting %d events: %w", len(batch), err)
	}

	logger.Info("account events ingested", "account", acct.ID, "events", accepted)
	return nil
}

// runPush drains the staging table until it yields zero rows. Rows are
// deleted only after their batch landed in the sink; a crash in between
// redelivers at most once and the dedup key absorbs it.
func (j *Job) runPush(ctx context.Context) error {
	total := 0
	for {
		rows, err := j.staging.TakeBatch(ctx, j.batchSize)
		if err != nil {
			return fmt.Errorf("taking staging batch: %w", err)
		}
		if len(rows) == 0 {
			if total > 0 {
				logger.Info("staging drained", "provider", ProviderSES, "events", total)
			}
			return nil
		}

		events := make([]domain.MessageStatusEvent, 0, len(rows))
		for _, r := range rows {
			events = append(events, domain.MessageStatusEvent{
				AudienceID: r.AudienceID,
				CustomerID: r.CustomerID,
				MessageID:  r.MessageID,
				EventType:  r.EventType,
				Provider:   ProviderSES,
				CreatedAt:  r.CreatedAt,
			})
		}
		if err := j.sink.InsertBatch(ctx, events); err != nil {
			return fmt.Errorf("inserting staging batch: %w", err)
		}
		for _, r := range rows {
			if err := j.staging.Delete(ctx, r.ID); err != nil {
				return fmt.Errorf("deleting drained row %d: %w", r.ID, err)
			}
		}
		total += len(rows)
	}
}
