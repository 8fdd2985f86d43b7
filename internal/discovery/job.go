// Package discovery implements the schema discovery job: a full batched
// scan of the customer store that infers one FieldMetadata per distinct
// field name observed across all records.
package discovery

import (
	"context"
	"fmt"

	"github.com/ignite/audience-sync/internal/domain"
	"github.com/ignite/audience-sync/internal/infer"
	"github.com/ignite/audience-sync/internal/pkg/logger"
)

// DefaultBatchSize bounds how many records one scan iteration loads.
// It only limits read/memory pressure; writes happen once per field after
// the full scan, not per record.
const DefaultBatchSize = 500

// RecordSource is the slice of the customer store the scan needs.
type RecordSource interface {
	Count(ctx context.Context) (int, error)
	FindBatch(ctx context.Context, offset, limit int) ([]domain.CustomerRecord, error)
}

// MetadataSink receives the inferred field metadata.
type MetadataSink interface {
	UpsertField(ctx context.Context, md domain.FieldMetadata) error
}

// Job scans customer records and upserts field metadata.
type Job struct {
	source    RecordSource
	sink      MetadataSink
	batchSize int
	excluded  map[string]struct{}
}

// NewJob creates a discovery job. An empty excluded set means the built-in
// structural field names.
func NewJob(source RecordSource, sink MetadataSink, batchSize int, excluded []string) *Job {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if len(excluded) == 0 {
		excluded = domain.StructuralFields()
	}
	set := make(map[string]struct{}, len(excluded))
	for _, name := range excluded {
		set[name] = struct{}{}
	}
	return &Job{source: source, sink: sink, batchSize: batchSize, excluded: set}
}

// Run scans every record and returns the number of fields discovered.
//
// The total is snapshotted once up front; records inserted mid-scan may be
// missed or double-counted until the next run, which is tolerated because
// upserts are idempotent. Any batch error aborts the remaining batches —
// metadata already upserted stands and the next scheduled run repairs
// drift.
func (j *Job) Run(ctx context.Context) (int, error) {
	total, err := j.source.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}

	samples := make(map[string][]domain.Value)
	for offset := 0; offset < total; offset += j.batchSize {
		batch, err := j.source.FindBatch(ctx, offset, j.batchSize)
		if err != nil {
			return 0, fmt.Errorf("fetching batch at offset %d: %w", offset, err)
		}
		for _, rec := range batch {
			j.collect(samples, rec)
		}
		if len(batch) == 0 {
			break
		}
	}

	discovered := 0
	for name, values := range samples {
		result, ok := infer.Infer(values)
		if !ok {
			// No usable sample: skip the field, write nothing.
			continue
		}
		md := domain.FieldMetadata{Name: name, Type: result.Type, IsArray: result.IsArray}
		if err := j.sink.UpsertField(ctx, md); err != nil {
			return discovered, fmt.Errorf("upserting field %s: %w", name, err)
		}
		discovered++
	}

	logger.Info("schema discovery completed", "records", total, "fields", discovered)
	return discovered, nil
}

func (j *Job) collect(samples map[string][]domain.Value, rec domain.CustomerRecord) {
	for name, value := range rec.Fields {
		if _, structural := j.excluded[name]; structural {
			continue
		}
		samples[name] = append(samples[name], value)
	}
}
