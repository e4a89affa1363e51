package pipeline

import (
	"context"
	"testing"
	"time"

	"scribe/internal/jobs"
)

func TestPoolRunsSubmittedJobs(t *testing.T) {
	f := newFixture(t, EngineAuto, false)
	pool := NewPool(f.orch, 2, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	var ids []string
	for i := 0; i < 4; i++ {
		job := f.submit(t)
		ids = append(ids, job.ID)
		if err := pool.Submit(job.ID); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	deadline := time.After(5 * time.Second)
	for _, id := range ids {
		for {
			snap, ok := f.store.Get(id)
			if ok && snap.Terminal() {
				break
			}
			select {
			case <-deadline:
				t.Fatalf("job %s did not finish", id)
			case <-time.After(10 * time.Millisecond):
			}
		}
	}
	pool.Stop()
}

func TestPoolSubmitQueueFull(t *testing.T) {
	f := newFixture(t, EngineAuto, false)
	pool := NewPool(f.orch, 1, nil)
	// Pool never started, so the queue only drains at capacity.
	overflow := false
	for i := 0; i < defaultQueueDepth+1; i++ {
		if err := pool.Submit(jobs.NewID()); err != nil {
			overflow = true
			break
		}
	}
	if !overflow {
		t.Fatal("expected ErrQueueFull once the queue is saturated")
	}
}

func TestPoolStopIdempotent(t *testing.T) {
	f := newFixture(t, EngineAuto, false)
	pool := NewPool(f.orch, 1, nil)
	pool.Start(context.Background())
	pool.Stop()
	pool.Stop()
}
