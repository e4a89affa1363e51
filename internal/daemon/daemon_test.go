package daemon

import (
	"context"
	"net/http"
	"testing"
	"time"

	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/testsupport"
)

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	first, err := New(cfg, logging.NewNop(), "test")
	if err != nil {
		t.Fatalf("new first: %v", err)
	}
	defer first.Close()
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("start first: %v", err)
	}

	secondCfg := *cfg
	secondCfg.Paths.APIBind = "127.0.0.1:0"
	second, err := New(&secondCfg, logging.NewNop(), "test")
	if err != nil {
		t.Fatalf("new second: %v", err)
	}
	defer second.Close()
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("second instance acquired the lock")
	}

	first.Stop()
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("start after release: %v", err)
	}
	second.Stop()
}

func TestDaemonServesHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := New(cfg, logging.NewNop(), "test")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer d.Close()
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	resp, err := http.Get("http://" + d.Addr() + "/api/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
}

func TestSweepExpiresJobsAndHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := New(cfg, logging.NewNop(), "test")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer d.Close()

	job := jobs.NewJob("https://example.com/v", "", true)
	if err := d.store.Create(job); err != nil {
		t.Fatalf("create: %v", err)
	}
	snap, err := d.store.Update(job.ID, jobs.Update{
		Status: jobs.Set(jobs.StatusError),
		Error:  jobs.Set("gone"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := d.history.Record(context.Background(), snap); err != nil {
		t.Fatalf("record: %v", err)
	}

	// Run the sweep from two hours in the future with a one hour TTL.
	d.sweep(context.Background(), time.Now().Add(2*time.Hour), time.Hour)

	if _, ok := d.store.Get(job.ID); ok {
		t.Fatal("expired job still in registry")
	}
	entries, err := d.history.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("history retained %d entries after prune", len(entries))
	}
}

func TestSweepKeepsRunningJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := New(cfg, logging.NewNop(), "test")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer d.Close()

	job := jobs.NewJob("https://example.com/v", "", true)
	if err := d.store.Create(job); err != nil {
		t.Fatalf("create: %v", err)
	}

	d.sweep(context.Background(), time.Now().Add(100*time.Hour), time.Hour)

	if _, ok := d.store.Get(job.ID); !ok {
		t.Fatal("running job removed by sweep")
	}
}
