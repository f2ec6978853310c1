package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestWorkerQueueProcessesAllJobs(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}

	q := NewWorkerQueue(func(_ context.Context, job Job) error {
		mu.Lock()
		seen[job.Path]++
		mu.Unlock()
		return nil
	}, nil, WithWorkers(3), WithQueueSize(16))

	ctx := context.Background()
	paths := []string{"a.pdf", "b.pdf", "c.png", "d.jpg", "e.docx"}
	for _, p := range paths {
		if err := q.Enqueue(ctx, Job{Path: p, SchemaKey: "card"}); err != nil {
			t.Fatalf("Enqueue(%s): %v", p, err)
		}
	}
	q.Shutdown(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != len(paths) {
		t.Fatalf("processed %d distinct jobs, want %d", len(seen), len(paths))
	}
	for _, p := range paths {
		if seen[p] != 1 {
			t.Errorf("job %s processed %d times", p, seen[p])
		}
	}
}

func TestWorkerQueueContinuesAfterHandlerError(t *testing.T) {
	var mu sync.Mutex
	var processed []string

	q := NewWorkerQueue(func(_ context.Context, job Job) error {
		mu.Lock()
		processed = append(processed, job.Path)
		mu.Unlock()
		if job.Path == "bad.pdf" {
			return errors.New("unreadable")
		}
		return nil
	}, nil, WithWorkers(1))

	ctx := context.Background()
	for _, p := range []string{"bad.pdf", "good.pdf"} {
		if err := q.Enqueue(ctx, Job{Path: p}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	q.Shutdown(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(processed) != 2 {
		t.Errorf("processed = %v, want both jobs despite the error", processed)
	}
}

func TestWorkerQueueEnqueueAfterShutdownIsNoop(t *testing.T) {
	q := NewWorkerQueue(func(context.Context, Job) error { return nil }, nil, WithWorkers(1))
	ctx := context.Background()
	q.Shutdown(ctx)

	// must not panic on the closed channel
	if err := q.Enqueue(ctx, Job{Path: "late.pdf"}); err != nil {
		t.Errorf("Enqueue after shutdown: %v", err)
	}
	q.Shutdown(ctx) // second shutdown is also safe
}

func TestWorkerQueueShutdownNotStalledByBackpressure(t *testing.T) {
	release := make(chan struct{})
	q := NewWorkerQueue(func(ctx context.Context, _ Job) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}, nil, WithWorkers(1), WithQueueSize(1))

	ctx := context.Background()
	// one job occupies the worker, one fills the buffer
	if err := q.Enqueue(ctx, Job{Path: "running.pdf"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, Job{Path: "buffered.pdf"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// a third producer blocks on the full queue
	enqDone := make(chan error, 1)
	go func() {
		enqDone <- q.Enqueue(context.Background(), Job{Path: "overflow.pdf"})
	}()
	time.Sleep(100 * time.Millisecond)

	shutDone := make(chan struct{})
	go func() {
		q.Shutdown(context.Background())
		close(shutDone)
	}()

	// the blocked producer must notice the shutdown and give up, rather
	// than holding the mutex until a worker frees a slot
	select {
	case err := <-enqDone:
		if err != nil {
			t.Errorf("blocked enqueue returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue still blocked after shutdown began")
	}

	close(release)
	select {
	case <-shutDone:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown never completed")
	}
}

func TestWorkerQueueJobTimeout(t *testing.T) {
	done := make(chan error, 1)
	q := NewWorkerQueue(func(ctx context.Context, _ Job) error {
		select {
		case <-ctx.Done():
			done <- ctx.Err()
			return ctx.Err()
		case <-time.After(5 * time.Second):
			done <- nil
			return nil
		}
	}, nil, WithWorkers(1), WithJobTimeout(10*time.Millisecond))

	ctx := context.Background()
	if err := q.Enqueue(ctx, Job{Path: "slow.pdf"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	q.Shutdown(ctx)

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("handler saw %v, want DeadlineExceeded", err)
		}
	default:
		t.Fatal("handler never ran")
	}
}
