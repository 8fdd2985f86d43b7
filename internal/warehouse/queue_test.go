package warehouse

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/audience-sync/internal/domain"
)

func setupTestQueue(t *testing.T) (*Queue, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewQueue(client), func() {
		client.Close()
		mr.Close()
	}
}

type fakeLister struct {
	integrations []domain.Integration
}

func (f *fakeLister) List(ctx context.Context, offset, limit int) ([]domain.Integration, error) {
	if offset >= len(f.integrations) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.integrations) {
		end = len(f.integrations)
	}
	return f.integrations[offset:end], nil
}

func TestQueueFIFO(t *testing.T) {
	queue, cleanup := setupTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, queue.Enqueue(ctx, "int-1"))
	require.NoError(t, queue.Enqueue(ctx, "int-2"))

	id, ok, err := queue.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "int-1", id)

	id, ok, err = queue.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "int-2", id)
}

func TestDequeueEmptyQueue(t *testing.T) {
	queue, cleanup := setupTestQueue(t)
	defer cleanup()

	_, ok, err := queue.Dequeue(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnqueuerQueuesEveryIntegration(t *testing.T) {
	queue, cleanup := setupTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	lister := &fakeLister{}
	for i := 0; i < 7; i++ {
		lister.integrations = append(lister.integrations, domain.Integration{ID: fmt.Sprintf("int-%d", i)})
	}

	enqueuer := NewEnqueuer(lister, queue, 3)
	queued, err := enqueuer.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, queued)

	pending, err := queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), pending)
}
