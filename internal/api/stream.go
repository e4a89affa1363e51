package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"scribe/internal/jobs"
)

// handleStream serves one job's lifecycle as server-sent events. The
// subscription is registered before the initial snapshot is read, so
// no update can slip between snapshot and live delivery. A keepalive
// comment is written after an idle interval; because publishes are
// best-effort the idle path rechecks the store and closes the stream
// if the job finished while its events were being dropped.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub := s.broadcaster.Subscribe(id)
	defer s.broadcaster.Unsubscribe(sub)

	snapshot, ok := s.store.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, snapshot); err != nil {
		return
	}
	flusher.Flush()
	if snapshot.Terminal() {
		return
	}

	idle := time.NewTimer(s.keepalive)
	defer idle.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case job, open := <-sub.Events():
			if !open {
				return
			}
			if err := writeEvent(w, job); err != nil {
				return
			}
			flusher.Flush()
			if job.Terminal() {
				return
			}
		case <-idle.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
			current, exists := s.store.Get(id)
			if !exists {
				return
			}
			if current.Terminal() {
				// Terminal events can be dropped on a full queue; the
				// store is authoritative, so deliver its snapshot
				// before closing.
				if err := writeEvent(w, current); err != nil {
					return
				}
				flusher.Flush()
				return
			}
		}
		if !idle.Stop() {
			select {
			case <-idle.C:
			default:
			}
		}
		idle.Reset(s.keepalive)
	}
}

func writeEvent(w http.ResponseWriter, job jobs.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", payload)
	return err
}
