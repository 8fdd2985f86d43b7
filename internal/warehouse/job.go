package warehouse

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ignite/audience-sync/internal/domain"
	"github.com/ignite/audience-sync/internal/pkg/logger"
)

// identifierColumn is the warehouse column that carries the customer's
// external id. Matching is case-insensitive; connectors lowercase
// column names before handing rows over.
const identifierColumn = "id"

// IntegrationSource reads and advances integration state.
type IntegrationSource interface {
	Find(ctx context.Context, id string) (*domain.Integration, error)
	SaveLastSync(ctx context.Context, id string, t time.Time) error
}

// RecordMerger folds warehouse fields into a platform customer record,
// creating it when absent. It reports whether a record was created.
type RecordMerger interface {
	MergeFields(ctx context.Context, accountID, externalID string, src domain.FieldMap) (bool, error)
}

// Job runs one integration's sync: stream rows from the customer's
// warehouse and merge each into the matching platform record.
type Job struct {
	integrations IntegrationSource
	registry     *Registry
	merger       RecordMerger
	now          func() time.Time
}

// NewJob creates a sync job over the given collaborators.
func NewJob(integrations IntegrationSource, registry *Registry, merger RecordMerger) *Job {
	return &Job{
		integrations: integrations,
		registry:     registry,
		merger:       merger,
		now:          time.Now,
	}
}

// Sync executes the sync for one queued integration id. Tasks that are
// not due or reference a missing integration are skipped without error;
// a malformed integration (no database config) is an error so the
// operator sees it.
func (j *Job) Sync(ctx context.Context, integrationID string) error {
	integration, err := j.integrations.Find(ctx, integrationID)
	if err != nil {
		return fmt.Errorf("loading integration %s: %w", integrationID, err)
	}
	if integration == nil {
		logger.Warn("queued integration no longer exists", "integration", integrationID)
		return nil
	}
	if integration.Database == nil {
		return fmt.Errorf("integration %s has no database configured", integrationID)
	}

	now := j.now().UTC()
	dueAt := integration.LastSync.Add(time.Duration(integration.FrequencyNumber) * integration.FrequencyUnit.Duration())
	if !now.Before(dueAt) {
		logger.Debug("integration not due, skipping",
			"integration", integrationID, "last_sync", integration.LastSync, "due_at", dueAt)
		return nil
	}

	connector := j.registry.Lookup(integration.Database.Type)
	if connector == nil {
		return fmt.Errorf("integration %s has unknown database type %q", integrationID, integration.Database.Type)
	}

	created, merged, skipped := 0, 0, 0
	err = connector.Stream(ctx, *integration.Database, func(ctx context.Context, rows []Row) error {
		for _, row := range rows {
			externalID, ok := rowIdentifier(row)
			if !ok {
				skipped++
				continue
			}

			fields := make(domain.FieldMap, len(row)-1)
			for col, v := range row {
				if col == identifierColumn {
					continue
				}
				fields[col] = v
			}

			wasCreated, err := j.merger.MergeFields(ctx, integration.AccountID, externalID, fields)
			if err != nil {
				return fmt.Errorf("merging record %s: %w", externalID, err)
			}
			if wasCreated {
				created++
			} else {
				merged++
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("syncing integration %s: %w", integrationID, err)
	}

	if skipped > 0 {
		logger.Warn("skipped rows without identifier column", "integration", integrationID, "skipped", skipped)
	}
	if err := j.integrations.SaveLastSync(ctx, integrationID, now); err != nil {
		return err
	}

	logger.Info("integration synced",
		"integration", integrationID, "account", integration.AccountID,
		"created", created, "merged", merged)
	return nil
}

// rowIdentifier extracts the external id from a row, stringifying
// numeric ids the way they were written.
func rowIdentifier(row Row) (string, bool) {
	v, ok := row[identifierColumn]
	if !ok || !v.IsUsable() {
		return "", false
	}
	switch v.Kind {
	case domain.KindString:
		return v.Str, true
	case domain.KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64), true
	default:
		return "", false
	}
}
