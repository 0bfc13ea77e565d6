package identity_test

import (
	"context"
	"testing"
	"time"

	identity "github.com/mentorhub/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueueEnqueueDequeue(t *testing.T) {
	queue := identity.NewMemoryQueue()
	defer queue.Stop()

	id, err := queue.Enqueue(context.Background(), identity.EmailJob{
		To:      []string{"a@example.com"},
		Subject: "first",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	_, err = queue.Enqueue(context.Background(), identity.EmailJob{
		To:      []string{"b@example.com"},
		Subject: "second",
	})
	require.NoError(t, err)

	first, err := queue.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", first.Job.Subject)
	assert.Equal(t, id, first.ID)
	assert.Equal(t, identity.DefaultMaxAttempts, first.MaxAttempts)
	assert.False(t, first.EnqueuedAt.IsZero())

	second, err := queue.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", second.Job.Subject)
}

func TestMemoryQueueDequeueBlocksUntilCancel(t *testing.T) {
	queue := identity.NewMemoryQueue()
	defer queue.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := queue.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryQueueRetryDelaysRedelivery(t *testing.T) {
	queue := identity.NewMemoryQueue()
	defer queue.Stop()

	_, err := queue.Enqueue(context.Background(), identity.EmailJob{Subject: "retry-me"})
	require.NoError(t, err)

	env, err := queue.Dequeue(context.Background())
	require.NoError(t, err)

	env.Attempts = 1
	require.NoError(t, queue.Retry(context.Background(), env, 30*time.Millisecond))

	// not ready yet
	shortCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = queue.Dequeue(shortCtx)
	assert.Error(t, err)

	// ready after the delay
	longCtx, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	redelivered, err := queue.Dequeue(longCtx)
	require.NoError(t, err)
	assert.Equal(t, env.ID, redelivered.ID)
	assert.Equal(t, 1, redelivered.Attempts)
}

func TestMemoryQueueRetrySurvivesFullBuffer(t *testing.T) {
	queue := identity.NewMemoryQueue(identity.WithMemoryQueueCapacity(1))
	defer queue.Stop()

	_, err := queue.Enqueue(context.Background(), identity.EmailJob{Subject: "retry-me"})
	require.NoError(t, err)

	env, err := queue.Dequeue(context.Background())
	require.NoError(t, err)

	// Fill the only buffer slot so the redelivery finds the channel full.
	_, err = queue.Enqueue(context.Background(), identity.EmailJob{Subject: "blocker"})
	require.NoError(t, err)

	env.Attempts = 1
	require.NoError(t, queue.Retry(context.Background(), env, 10*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	blocker, err := queue.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "blocker", blocker.Job.Subject)

	redelivered, err := queue.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, env.ID, redelivered.ID)
	assert.Equal(t, 1, redelivered.Attempts)
}

func TestMemoryQueueRetentionIsAsymmetric(t *testing.T) {
	queue := identity.NewMemoryQueue()

	env := &identity.JobEnvelope{ID: "done", Attempts: 1}
	require.NoError(t, queue.Complete(context.Background(), env))

	failed := &identity.JobEnvelope{ID: "dead", Attempts: 3, LastError: "smtp gone"}
	require.NoError(t, queue.Fail(context.Background(), failed))

	require.Len(t, queue.Completed(), 1)
	assert.Equal(t, "done", queue.Completed()[0].ID)

	require.Len(t, queue.Failed(), 1)
	assert.Equal(t, "dead", queue.Failed()[0].ID)
}
