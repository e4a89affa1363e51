package api

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scribe/internal/broadcast"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/pipeline"
	"scribe/internal/testsupport"
)

type submitRecorder struct {
	ids []string
	err error
}

func (r *submitRecorder) Submit(jobID string) error {
	if r.err != nil {
		return r.err
	}
	r.ids = append(r.ids, jobID)
	return nil
}

type testEnv struct {
	server    *Server
	store     *jobs.Store
	bcast     *broadcast.Broadcaster
	submitter *submitRecorder
	http      *httptest.Server
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	store := jobs.NewStore()
	bcast := broadcast.New(broadcast.DefaultQueueSize, logging.NewNop())
	submitter := &submitRecorder{}
	opts.Store = store
	opts.Broadcaster = bcast
	if opts.Submitter == nil {
		opts.Submitter = submitter
	}
	server := NewServer(opts)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{server: server, store: store, bcast: bcast, submitter: submitter, http: ts}
}

func decodeJob(t *testing.T, body io.Reader) jobs.Job {
	t.Helper()
	var job jobs.Job
	if err := json.NewDecoder(body).Decode(&job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	return job
}

func TestSubmitCreatesPendingJob(t *testing.T) {
	env := newTestEnv(t, Options{})

	resp, err := http.Post(env.http.URL+"/api/jobs", "application/json",
		strings.NewReader(`{"url":"https://www.youtube.com/watch?v=abc","llm":"gpt-4o-mini"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	job := decodeJob(t, resp.Body)
	if job.Status != jobs.StatusPending {
		t.Fatalf("status = %q, want pending", job.Status)
	}
	if job.LLM != "gpt-4o-mini" {
		t.Fatalf("llm = %q", job.LLM)
	}
	if len(job.ID) != 8 {
		t.Fatalf("id = %q, want 8 chars", job.ID)
	}
	if len(env.submitter.ids) != 1 || env.submitter.ids[0] != job.ID {
		t.Fatalf("submitted ids = %v", env.submitter.ids)
	}
	stored, ok := env.store.Get(job.ID)
	if !ok {
		t.Fatal("job not in store")
	}
	if stored.URL != "https://www.youtube.com/watch?v=abc" {
		t.Fatalf("url = %q", stored.URL)
	}
}

func TestSubmitValidation(t *testing.T) {
	env := newTestEnv(t, Options{})

	cases := []struct {
		name string
		body string
	}{
		{"missing url", `{}`},
		{"blank url", `{"url":"  "}`},
		{"bad scheme", `{"url":"ftp://example.com/x"}`},
		{"not a url", `{"url":"watch?v=abc"}`},
		{"unknown engine", `{"url":"https://example.com/v","engine":"telepathy"}`},
		{"malformed json", `{"url":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(env.http.URL+"/api/jobs", "application/json", strings.NewReader(tc.body))
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
	if len(env.submitter.ids) != 0 {
		t.Fatalf("submitter called for invalid request: %v", env.submitter.ids)
	}
}

func TestSubmitQueueFull(t *testing.T) {
	env := newTestEnv(t, Options{Submitter: &submitRecorder{err: pipeline.ErrQueueFull}})

	resp, err := http.Post(env.http.URL+"/api/jobs", "application/json",
		strings.NewReader(`{"url":"https://example.com/v"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	listed := env.store.List()
	if len(listed) != 1 {
		t.Fatalf("store has %d jobs, want 1", len(listed))
	}
	if listed[0].Status != jobs.StatusError {
		t.Fatalf("rejected job status = %q, want error", listed[0].Status)
	}
}

func TestSubmitExtractDefaultFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithExtraction(false))
	env := newTestEnv(t, Options{Config: cfg})

	resp, err := http.Post(env.http.URL+"/api/jobs", "application/json",
		strings.NewReader(`{"url":"https://example.com/v"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if job := decodeJob(t, resp.Body); job.ExtractEnabled {
		t.Fatal("extract enabled despite config default off")
	}

	resp, err = http.Post(env.http.URL+"/api/jobs", "application/json",
		strings.NewReader(`{"url":"https://example.com/w","extract":true}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if job := decodeJob(t, resp.Body); !job.ExtractEnabled {
		t.Fatal("explicit extract toggle ignored")
	}
}

func TestSnapshotAndList(t *testing.T) {
	env := newTestEnv(t, Options{})
	job := jobs.NewJob("https://example.com/v", "", true)
	if err := env.store.Create(job); err != nil {
		t.Fatalf("create: %v", err)
	}

	resp, err := http.Get(env.http.URL + "/api/jobs/" + job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := decodeJob(t, resp.Body); got.ID != job.ID {
		t.Fatalf("id = %q, want %q", got.ID, job.ID)
	}

	resp, err = http.Get(env.http.URL + "/api/jobs/nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing job status = %d, want 404", resp.StatusCode)
	}

	resp, err = http.Get(env.http.URL + "/api/jobs")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defer resp.Body.Close()
	var list JobListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Jobs) != 1 {
		t.Fatalf("listed %d jobs, want 1", len(list.Jobs))
	}
}

func TestDocumentRetrieval(t *testing.T) {
	env := newTestEnv(t, Options{})
	dir := t.TempDir()
	transcriptPath := filepath.Join(dir, "2025-03-14 talk-transcript.md")
	if err := os.WriteFile(transcriptPath, []byte("# Talk\n\nbody\n"), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}

	job := jobs.NewJob("https://example.com/v", "", true)
	if err := env.store.Create(job); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.store.Update(job.ID, jobs.Update{TranscriptPath: jobs.Set(transcriptPath)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	resp, err := http.Get(env.http.URL + "/api/jobs/" + job.ID + "/transcript")
	if err != nil {
		t.Fatalf("get transcript: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "# Talk") {
		t.Fatalf("body = %q", body)
	}
	if disp := resp.Header.Get("Content-Disposition"); disp != "" {
		t.Fatalf("inline read has Content-Disposition %q", disp)
	}

	resp, err = http.Get(env.http.URL + "/api/jobs/" + job.ID + "/download/transcript")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer resp.Body.Close()
	if disp := resp.Header.Get("Content-Disposition"); !strings.Contains(disp, "attachment") {
		t.Fatalf("Content-Disposition = %q", disp)
	}

	resp, err = http.Get(env.http.URL + "/api/jobs/" + job.ID + "/summary")
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("absent summary status = %d, want 404", resp.StatusCode)
	}
}

func TestHealthAndConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithLLM("sk-secret", "gpt-4o-mini"))
	env := newTestEnv(t, Options{Config: cfg, Version: "1.2.3"})

	job := jobs.NewJob("https://example.com/v", "", true)
	if err := env.store.Create(job); err != nil {
		t.Fatalf("create: %v", err)
	}

	resp, err := http.Get(env.http.URL + "/api/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Service != "scribe" || health.Status != "ok" {
		t.Fatalf("health = %+v", health)
	}
	if health.Jobs.Total != 1 || health.Jobs.Pending != 1 {
		t.Fatalf("job stats = %+v", health.Jobs)
	}

	resp, err = http.Get(env.http.URL + "/api/config")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if strings.Contains(string(raw), "sk-secret") {
		t.Fatal("config response leaks the api key")
	}
	var view ConfigResponse
	if err := json.Unmarshal(raw, &view); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if !view.LLMKeySet {
		t.Fatal("LLMKeySet = false with key configured")
	}
	if view.LLMModel != "gpt-4o-mini" {
		t.Fatalf("llm model = %q", view.LLMModel)
	}
}

// readEvent scans the stream for the next data line and decodes it.
// Keepalive comment lines are collected so callers can assert on them.
func readEvent(t *testing.T, reader *bufio.Reader) (jobs.Job, []string, error) {
	t.Helper()
	var comments []string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return jobs.Job{}, comments, err
		}
		line = strings.TrimRight(line, "\n")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			comments = append(comments, line)
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			t.Fatalf("unexpected stream line %q", line)
		}
		var job jobs.Job
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &job); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		return job, comments, nil
	}
}

func TestStreamInitialSnapshotThenLiveUpdates(t *testing.T) {
	env := newTestEnv(t, Options{})
	job := jobs.NewJob("https://example.com/v", "", true)
	if err := env.store.Create(job); err != nil {
		t.Fatalf("create: %v", err)
	}

	resp, err := http.Get(env.http.URL + "/api/jobs/" + job.ID + "/stream")
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	reader := bufio.NewReader(resp.Body)

	first, _, err := readEvent(t, reader)
	if err != nil {
		t.Fatalf("read first event: %v", err)
	}
	if first.Status != jobs.StatusPending || first.ID != job.ID {
		t.Fatalf("first event = %+v", first)
	}

	snap, err := env.store.Update(job.ID, jobs.Update{
		Status:   jobs.Set(jobs.StatusDownloading),
		Progress: jobs.Set(10),
		Message:  jobs.Set("Fetching video metadata"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	env.bcast.Publish(job.ID, snap)

	second, _, err := readEvent(t, reader)
	if err != nil {
		t.Fatalf("read second event: %v", err)
	}
	if second.Status != jobs.StatusDownloading || second.Progress != 10 {
		t.Fatalf("second event = %+v", second)
	}

	final, err := env.store.Update(job.ID, jobs.Update{
		Status: jobs.Set(jobs.StatusError),
		Error:  jobs.Set("boom"),
	})
	if err != nil {
		t.Fatalf("terminal update: %v", err)
	}
	env.bcast.Publish(job.ID, final)

	third, _, err := readEvent(t, reader)
	if err != nil {
		t.Fatalf("read terminal event: %v", err)
	}
	if third.Status != jobs.StatusError || third.Error != "boom" {
		t.Fatalf("terminal event = %+v", third)
	}

	if _, _, err := readEvent(t, reader); err != io.EOF {
		t.Fatalf("stream not closed after terminal event: %v", err)
	}
}

func TestStreamTerminalJobYieldsSingleEvent(t *testing.T) {
	env := newTestEnv(t, Options{})
	job := jobs.NewJob("https://example.com/v", "", true)
	if err := env.store.Create(job); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.store.Update(job.ID, jobs.Update{
		Status:   jobs.Set(jobs.StatusError),
		Error:    jobs.Set("failed earlier"),
		Progress: jobs.Set(42),
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	resp, err := http.Get(env.http.URL + "/api/jobs/" + job.ID + "/stream")
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer resp.Body.Close()
	reader := bufio.NewReader(resp.Body)

	event, _, err := readEvent(t, reader)
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Status != jobs.StatusError || event.Error != "failed earlier" {
		t.Fatalf("event = %+v", event)
	}
	if _, _, err := readEvent(t, reader); err != io.EOF {
		t.Fatalf("stream not closed: %v", err)
	}
}

func TestStreamUnknownJob(t *testing.T) {
	env := newTestEnv(t, Options{})
	resp, err := http.Get(env.http.URL + "/api/jobs/nope/stream")
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestStreamKeepaliveRechecksStore(t *testing.T) {
	env := newTestEnv(t, Options{Keepalive: 30 * time.Millisecond})
	job := jobs.NewJob("https://example.com/v", "", true)
	if err := env.store.Create(job); err != nil {
		t.Fatalf("create: %v", err)
	}

	resp, err := http.Get(env.http.URL + "/api/jobs/" + job.ID + "/stream")
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer resp.Body.Close()
	reader := bufio.NewReader(resp.Body)

	if _, _, err := readEvent(t, reader); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	// Finish the job behind the broadcaster's back. The idle recheck
	// must surface the terminal snapshot and close the stream.
	if _, err := env.store.Update(job.ID, jobs.Update{
		Status: jobs.Set(jobs.StatusError),
		Error:  jobs.Set("dropped"),
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	event, comments, err := readEvent(t, reader)
	if err != nil {
		t.Fatalf("read after keepalive: %v", err)
	}
	if len(comments) == 0 || !strings.Contains(comments[0], "keepalive") {
		t.Fatalf("comments = %v, want keepalive", comments)
	}
	if event.Status != jobs.StatusError {
		t.Fatalf("recheck event = %+v", event)
	}
	if _, _, err := readEvent(t, reader); err != io.EOF {
		t.Fatalf("stream not closed: %v", err)
	}
}
