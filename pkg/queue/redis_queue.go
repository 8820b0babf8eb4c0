package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// Job kinds carried on the newsletter stream.
const (
	JobWelcome = "welcome"
	JobDigest  = "digest"
)

// EmailJob is one unit of newsletter work. Jobs are serialized as JSON in
// a single stream field.
type EmailJob struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Email      string    `json:"email"`
	Language   string    `json:"language"`
	Subject    string    `json:"subject,omitempty"`
	Body       string    `json:"body,omitempty"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Handler processes one job. Returning an error leaves the entry pending
// for reclaim.
type Handler func(ctx context.Context, job EmailJob) error

const (
	payloadField  = "payload"
	consumerGroup = "senders"
	blockTimeout  = 5 * time.Second
	claimMinIdle  = time.Minute
)

// RedisQueue is an at-least-once job queue on a Redis stream with one
// consumer group.
type RedisQueue struct {
	client *redis.Client
	stream string
}

// NewRedisQueue ensures the stream and consumer group exist.
func NewRedisQueue(ctx context.Context, client *redis.Client, stream string) (*RedisQueue, error) {
	err := client.XGroupCreateMkStream(ctx, stream, consumerGroup, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}
	return &RedisQueue{client: client, stream: stream}, nil
}

func isBusyGroup(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}

// Enqueue appends a job to the stream. The job ID is assigned here if the
// caller left it empty.
func (q *RedisQueue) Enqueue(ctx context.Context, job EmailJob) (string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{payloadField: payload},
	}).Err(); err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	return job.ID, nil
}

// Start runs the given number of consumers until ctx is canceled. Each
// consumer reads new entries and periodically reclaims entries abandoned
// by dead consumers.
func (q *RedisQueue) Start(ctx context.Context, concurrency int, handler Handler) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		consumer := fmt.Sprintf("worker-%s", uuid.NewString()[:8])
		g.Go(func() error {
			return q.consume(ctx, consumer, handler)
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (q *RedisQueue) consume(ctx context.Context, consumer string, handler Handler) error {
	logger := slog.With("stream", q.stream, "consumer", consumer)
	lastClaim := time.Now()
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(lastClaim) >= claimMinIdle {
			q.reclaim(ctx, consumer, handler, logger)
			lastClaim = time.Now()
		}
		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    consumerGroup,
			Consumer: consumer,
			Streams:  []string{q.stream, ">"},
			Count:    10,
			Block:    blockTimeout,
		}).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("read group failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}
		for _, stream := range streams {
			for _, entry := range stream.Messages {
				q.process(ctx, entry, handler, logger)
			}
		}
	}
}

func (q *RedisQueue) reclaim(ctx context.Context, consumer string, handler Handler, logger *slog.Logger) {
	entries, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    consumerGroup,
		Consumer: consumer,
		MinIdle:  claimMinIdle,
		Start:    "0-0",
		Count:    10,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("autoclaim failed", "error", err)
		}
		return
	}
	for _, entry := range entries {
		q.process(ctx, entry, handler, logger)
	}
}

func (q *RedisQueue) process(ctx context.Context, entry redis.XMessage, handler Handler, logger *slog.Logger) {
	raw, ok := entry.Values[payloadField].(string)
	if !ok {
		// Malformed entries are acked so they never wedge the group.
		logger.Warn("dropping entry without payload", "entryId", entry.ID)
		q.ack(ctx, entry.ID)
		return
	}
	var job EmailJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		logger.Warn("dropping undecodable entry", "entryId", entry.ID, "error", err)
		q.ack(ctx, entry.ID)
		return
	}
	if err := handler(ctx, job); err != nil {
		logger.Warn("job failed, leaving pending", "jobId", job.ID, "kind", job.Kind, "error", err)
		return
	}
	q.ack(ctx, entry.ID)
}

func (q *RedisQueue) ack(ctx context.Context, entryID string) {
	if err := q.client.XAck(ctx, q.stream, consumerGroup, entryID).Err(); err != nil && ctx.Err() == nil {
		slog.Warn("ack failed", "stream", q.stream, "entryId", entryID, "error", err)
	}
}
