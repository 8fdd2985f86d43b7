package ingest

import (
	"context"
	"fmt"
	"time"
)

// EpochFloor is the watermark used when the analytical sink is empty: the
// first ever run backfills from here.
var EpochFloor = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// SinkReader is the read side of the analytical sink the tracker needs.
type SinkReader interface {
	MaxTimestamp(ctx context.Context) (*time.Time, error)
}

// WatermarkTracker derives the lower bound for incremental fetching from
// what the sink has already durably ingested. It holds no state of its own,
// so overlapping runs each see a consistent watermark.
type WatermarkTracker struct {
	sink SinkReader
}

// NewWatermarkTracker creates a tracker over the given sink.
func NewWatermarkTracker(sink SinkReader) *WatermarkTracker {
	return &WatermarkTracker{sink: sink}
}

// Current returns the newest ingested event timestamp, or EpochFloor when
// the sink is empty.
func (t *WatermarkTracker) Current(ctx context.Context) (time.Time, error) {
	max, err := t.sink.MaxTimestamp(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("reading watermark: %w", err)
	}
	if max == nil {
		return EpochFloor, nil
	}
	return max.UTC(), nil
}
