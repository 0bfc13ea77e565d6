package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultQueuePrefix = "identity:mail"

	readyQueueSuffix     = "ready"
	delayedQueueSuffix   = "delayed"
	completedQueueSuffix = "completed"
)

// RedisQueue is the durable Queue backed by a redis instance. Ready jobs sit
// in a list consumed with a blocking pop; retried jobs wait in a sorted set
// keyed by their due time until the promoter moves them back to the list.
type RedisQueue struct {
	client      *redis.Client
	prefix      string
	maxAttempts int
	promoteTick time.Duration
	logger      Logger
}

type RedisQueueOption func(*RedisQueue)

func WithQueuePrefix(prefix string) RedisQueueOption {
	return func(q *RedisQueue) {
		if prefix != "" {
			q.prefix = prefix
		}
	}
}

func WithQueueMaxAttempts(n int) RedisQueueOption {
	return func(q *RedisQueue) {
		if n > 0 {
			q.maxAttempts = n
		}
	}
}

// WithPromoteInterval tunes how often the delayed set is scanned. Tests lower
// it so retries surface quickly.
func WithPromoteInterval(d time.Duration) RedisQueueOption {
	return func(q *RedisQueue) {
		if d > 0 {
			q.promoteTick = d
		}
	}
}

func WithQueueLogger(logger Logger) RedisQueueOption {
	return func(q *RedisQueue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

func NewRedisQueue(client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	q := &RedisQueue{
		client:      client,
		prefix:      defaultQueuePrefix,
		maxAttempts: DefaultMaxAttempts,
		promoteTick: time.Second,
		logger:      defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}

	return q
}

func (q *RedisQueue) key(suffix string) string {
	return q.prefix + ":" + suffix
}

func (q *RedisQueue) Enqueue(ctx context.Context, job EmailJob, opts ...EnqueueOption) (string, error) {
	env := &JobEnvelope{
		ID:          uuid.NewString(),
		Job:         job,
		MaxAttempts: q.maxAttempts,
		EnqueuedAt:  time.Now().UTC(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(env)
		}
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "could not encode job")
	}

	if err := q.client.LPush(ctx, q.key(readyQueueSuffix), payload).Err(); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "could not enqueue job")
	}

	return env.ID, nil
}

// Dequeue blocks until a ready job is available. Between pops it promotes any
// delayed jobs whose due time has passed.
func (q *RedisQueue) Dequeue(ctx context.Context) (*JobEnvelope, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := q.promoteDue(ctx); err != nil {
			q.logger.Warn("queue promote error", "error", err)
		}

		res, err := q.client.BRPop(ctx, q.promoteTick, q.key(readyQueueSuffix)).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "queue pop failed")
		}

		// BRPop returns [key, value]
		if len(res) != 2 {
			continue
		}

		env := &JobEnvelope{}
		if err := json.Unmarshal([]byte(res[1]), env); err != nil {
			q.logger.Error("queue dropped undecodable job", "error", err)
			continue
		}

		return env, nil
	}
}

// Retry parks the envelope in the delayed set until now+delay.
func (q *RedisQueue) Retry(ctx context.Context, env *JobEnvelope, delay time.Duration) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not encode job")
	}

	due := float64(time.Now().Add(delay).UnixMilli())
	err = q.client.ZAdd(ctx, q.key(delayedQueueSuffix), redis.Z{
		Score:  due,
		Member: payload,
	}).Err()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not schedule retry")
	}

	return nil
}

// Complete retains the finished envelope for audit.
func (q *RedisQueue) Complete(ctx context.Context, env *JobEnvelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not encode job")
	}

	if err := q.client.LPush(ctx, q.key(completedQueueSuffix), payload).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not record completed job")
	}

	return nil
}

// Fail drops the envelope. Exhausted jobs are logged, not retained.
func (q *RedisQueue) Fail(ctx context.Context, env *JobEnvelope) error {
	q.logger.Error("job failed terminally",
		"job_id", env.ID,
		"attempts", env.Attempts,
		"last_error", env.LastError,
	)
	return nil
}

// promoteDue moves delayed jobs whose due time has passed onto the ready list.
func (q *RedisQueue) promoteDue(ctx context.Context) error {
	now := fmt.Sprintf("%d", time.Now().UnixMilli())

	members, err := q.client.ZRangeByScore(ctx, q.key(delayedQueueSuffix), &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return err
	}

	for _, member := range members {
		removed, err := q.client.ZRem(ctx, q.key(delayedQueueSuffix), member).Result()
		if err != nil {
			return err
		}
		// another worker promoted it first
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.key(readyQueueSuffix), member).Err(); err != nil {
			return err
		}
	}

	return nil
}

var _ Queue = (*RedisQueue)(nil)
