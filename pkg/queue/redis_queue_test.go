package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestQueue(t *testing.T) (*RedisQueue, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	q, err := NewRedisQueue(context.Background(), client, "newsletter:test")
	if err != nil {
		t.Fatalf("NewRedisQueue: %v", err)
	}
	return q, client
}

func TestStartReturnsNilOnCancel(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		errc <- q.Start(ctx, 1, func(ctx context.Context, job EmailJob) error {
			return nil
		})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Start returned %v after cancel, want nil", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestEnqueueAndConsume(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []EmailJob
	done := make(chan struct{})

	go func() {
		_ = q.Start(ctx, 2, func(ctx context.Context, job EmailJob) error {
			mu.Lock()
			got = append(got, job)
			if len(got) == 3 {
				close(done)
			}
			mu.Unlock()
			return nil
		})
	}()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		if _, err := q.Enqueue(ctx, EmailJob{Kind: JobWelcome, Email: email, Language: "pt-BR"}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for jobs")
	}
	cancel()

	mu.Lock()
	defer mu.Unlock()
	seen := map[string]bool{}
	for _, job := range got {
		if job.ID == "" {
			t.Error("job delivered without an ID")
		}
		if job.Kind != JobWelcome {
			t.Errorf("kind = %q, want %q", job.Kind, JobWelcome)
		}
		seen[job.Email] = true
	}
	if len(seen) != 3 {
		t.Fatalf("saw %d distinct emails, want 3", len(seen))
	}
}

func TestFailedJobStaysPending(t *testing.T) {
	q, client := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attempted := make(chan struct{}, 1)
	go func() {
		_ = q.Start(ctx, 1, func(ctx context.Context, job EmailJob) error {
			select {
			case attempted <- struct{}{}:
			default:
			}
			return errors.New("smtp down")
		})
	}()

	if _, err := q.Enqueue(ctx, EmailJob{Kind: JobDigest, Email: "x@example.com"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	select {
	case <-attempted:
	case <-time.After(5 * time.Second):
		t.Fatal("handler never ran")
	}
	cancel()

	pending, err := client.XPending(context.Background(), "newsletter:test", consumerGroup).Result()
	if err != nil {
		t.Fatalf("XPending: %v", err)
	}
	if pending.Count == 0 {
		t.Fatal("failed job was acked, want it pending for reclaim")
	}
}

func TestEnqueueAssignsID(t *testing.T) {
	q, _ := newTestQueue(t)
	id, err := q.Enqueue(context.Background(), EmailJob{Kind: JobWelcome, Email: "a@example.com"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated job ID")
	}
}
