package jobs

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCreateRejectsDuplicateID(t *testing.T) {
	store := NewStore()
	job := NewJob("https://youtu.be/abc", "auto", true)
	if err := store.Create(job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Create(job); !errors.Is(err, ErrExists) {
		t.Fatalf("duplicate create should fail with ErrExists, got %v", err)
	}
}

func TestGetUnknownReturnsAbsent(t *testing.T) {
	store := NewStore()
	if _, ok := store.Get("nope"); ok {
		t.Fatal("unknown id must report absent")
	}
}

func TestUpdateReturnsSnapshotNotLiveReference(t *testing.T) {
	store := NewStore()
	job := NewJob("https://youtu.be/abc", "auto", true)
	if err := store.Create(job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	snap, err := store.Update(job.ID, Update{Metadata: &Metadata{Title: "Original"}})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	snap.Metadata.Title = "Mutated by caller"

	fresh, _ := store.Get(job.ID)
	if fresh.Metadata.Title != "Original" {
		t.Fatalf("caller mutation leaked into store: %q", fresh.Metadata.Title)
	}
}

func TestProgressMonotonic(t *testing.T) {
	store := NewStore()
	job := NewJob("https://youtu.be/abc", "auto", true)
	store.Create(job)

	if _, err := store.Update(job.ID, Update{Progress: Set(40)}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	snap, err := store.Update(job.ID, Update{Progress: Set(25)})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if snap.Progress != 40 {
		t.Fatalf("progress must never decrease, got %d", snap.Progress)
	}
	snap, _ = store.Update(job.ID, Update{Progress: Set(250)})
	if snap.Progress != 100 {
		t.Fatalf("progress must cap at 100, got %d", snap.Progress)
	}
}

func TestCompletedAtSetExactlyOnceOnTerminal(t *testing.T) {
	store := NewStore()
	fixed := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	job := NewJob("https://youtu.be/abc", "auto", true)
	store.Create(job)

	snap, _ := store.Get(job.ID)
	if snap.CompletedAt != nil {
		t.Fatal("completedAt must be nil while non-terminal")
	}

	store.Update(job.ID, Update{Status: Set(StatusDownloading)})
	store.Update(job.ID, Update{Status: Set(StatusTranscribing)})
	snap, err := store.Update(job.ID, Update{Status: Set(StatusComplete)})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if snap.CompletedAt == nil || !snap.CompletedAt.Equal(fixed) {
		t.Fatalf("completedAt not set on terminal: %v", snap.CompletedAt)
	}

	// Terminal jobs are frozen entirely.
	store.now = func() time.Time { return fixed.Add(time.Hour) }
	snap, err = store.Update(job.ID, Update{Status: Set(StatusError), Message: Set("late write")})
	if err != nil {
		t.Fatalf("Update on terminal job should be a no-op, got %v", err)
	}
	if snap.Status != StatusComplete || !snap.CompletedAt.Equal(fixed) || snap.Message == "late write" {
		t.Fatalf("terminal job mutated: %+v", snap)
	}
}

func TestInvalidTransitionRejected(t *testing.T) {
	store := NewStore()
	job := NewJob("https://youtu.be/abc", "auto", true)
	store.Create(job)

	if _, err := store.Update(job.ID, Update{Status: Set(StatusExtracting)}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending -> extracting must be rejected, got %v", err)
	}
	if _, err := store.Update(job.ID, Update{Status: Set(StatusError)}); err != nil {
		t.Fatalf("error must be reachable from any non-terminal state: %v", err)
	}
}

func TestAutoFallbackTransitionAllowed(t *testing.T) {
	// The auto strategy checks captions while transcribing, then falls
	// back to an audio download.
	if !CanTransition(StatusTranscribing, StatusDownloading) {
		t.Fatal("transcribing -> downloading must be allowed for caption fallback")
	}
	if CanTransition(StatusComplete, StatusPending) {
		t.Fatal("terminal states must have no outgoing transitions")
	}
}

func TestSweepExpired(t *testing.T) {
	store := NewStore()
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	mkJob := func(id string, status Status, completedAgo time.Duration) {
		job := NewJob("https://youtu.be/"+id, "auto", true)
		job.ID = id
		job.Status = status
		if status.Terminal() {
			at := now.Add(-completedAgo)
			job.CompletedAt = &at
		}
		job.CreatedAt = now.Add(-48 * time.Hour)
		if err := store.Create(job); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}

	mkJob("old-done", StatusComplete, 2*time.Hour)
	mkJob("old-failed", StatusError, 3*time.Hour)
	mkJob("fresh-done", StatusComplete, 10*time.Minute)
	mkJob("ancient-running", StatusTranscribing, 0)

	removed := store.SweepExpired(now, time.Hour)
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if _, ok := store.Get("old-done"); ok {
		t.Fatal("expired terminal job not removed")
	}
	if _, ok := store.Get("fresh-done"); !ok {
		t.Fatal("terminal job within ttl must survive")
	}
	if _, ok := store.Get("ancient-running"); !ok {
		t.Fatal("non-terminal jobs must never be swept regardless of age")
	}
}

func TestSweepDisabledForNonPositiveTTL(t *testing.T) {
	store := NewStore()
	job := NewJob("https://youtu.be/abc", "auto", true)
	job.Status = StatusComplete
	at := time.Now().Add(-100 * time.Hour)
	job.CompletedAt = &at
	store.Create(job)

	if removed := store.SweepExpired(time.Now(), 0); removed != 0 {
		t.Fatalf("ttl<=0 must disable sweeping, removed %d", removed)
	}
	if removed := store.SweepExpired(time.Now(), -time.Hour); removed != 0 {
		t.Fatalf("negative ttl must disable sweeping, removed %d", removed)
	}
}

func TestStats(t *testing.T) {
	store := NewStore()
	for i, status := range []Status{StatusPending, StatusDownloading, StatusTranscribing, StatusComplete, StatusError} {
		job := NewJob("https://youtu.be/x", "auto", true)
		job.ID = NewID() + string(rune('a'+i))
		job.Status = status
		store.Create(job)
	}
	stats := store.Stats()
	if stats.Total != 5 || stats.Pending != 1 || stats.Processing != 2 || stats.Complete != 1 || stats.Error != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := NewStore()
	base := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		job := NewJob("https://youtu.be/x", "auto", true)
		job.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		store.Create(job)
	}
	listed := store.List()
	if len(listed) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(listed))
	}
	if !listed[0].CreatedAt.After(listed[1].CreatedAt) {
		t.Fatal("jobs not sorted newest first")
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewStore()
	job := NewJob("https://youtu.be/abc", "auto", true)
	store.Create(job)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for p := 0; p <= 50; p++ {
				store.Update(job.ID, Update{Progress: Set(p), Message: Set("working")})
				store.Get(job.ID)
				store.Stats()
			}
		}(i)
	}
	wg.Wait()

	snap, ok := store.Get(job.ID)
	if !ok || snap.Progress != 50 {
		t.Fatalf("unexpected final state: %+v", snap)
	}
}

func TestNewIDShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if len(id) != 8 {
			t.Fatalf("id length = %d (%q)", len(id), id)
		}
		if seen[id] {
			t.Fatalf("duplicate id generated: %q", id)
		}
		seen[id] = true
	}
}
