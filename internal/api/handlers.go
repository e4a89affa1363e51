package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/pipeline"
)

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleSubmit(w, r)
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, JobListResponse{Jobs: s.store.List()})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		s.writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		s.writeError(w, http.StatusBadRequest, "url must be http or https")
		return
	}
	engine := strings.TrimSpace(req.Engine)
	switch engine {
	case "", pipeline.EngineAuto, pipeline.EngineCaptions, pipeline.EngineWhisper:
	default:
		s.writeError(w, http.StatusBadRequest, "unknown engine: "+engine)
		return
	}

	extractEnabled := s.defaultExtract()
	if req.Extract != nil {
		extractEnabled = *req.Extract
	}

	job := jobs.NewJob(req.URL, engine, extractEnabled)
	job.LLM = strings.TrimSpace(req.LLM)
	if err := s.store.Create(job); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.submitter.Submit(job.ID); err != nil {
		// The record exists but no worker will pick it up; close it
		// out so it does not sit pending forever.
		snap, _ := s.store.Update(job.ID, jobs.Update{
			Status:  jobs.Set(jobs.StatusError),
			Phase:   jobs.Set(jobs.PhaseError),
			Message: jobs.Set("Submission rejected"),
			Error:   jobs.Set(err.Error()),
		})
		s.broadcaster.Publish(job.ID, snap)
		if errors.Is(err, pipeline.ErrQueueFull) {
			s.writeError(w, http.StatusServiceUnavailable, "job queue is full")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("job submitted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("url", job.URL))
	s.writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if rest == "" || rest == r.URL.Path {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]

	switch {
	case len(parts) == 1:
		s.handleSnapshot(w, r, id)
	case len(parts) == 2 && parts[1] == "stream":
		s.handleStream(w, r, id)
	case len(parts) == 2 && (parts[1] == "transcript" || parts[1] == "summary"):
		s.handleDocument(w, r, id, parts[1], false)
	case len(parts) == 3 && parts[1] == "download":
		s.handleDocument(w, r, id, parts[2], true)
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	job, ok := s.store.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request, id, kind string, download bool) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	job, ok := s.store.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	var path string
	switch kind {
	case "transcript":
		path = job.TranscriptPath
	case "summary":
		path = job.SummaryPath
	default:
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	if path == "" {
		s.writeError(w, http.StatusNotFound, kind+" not available")
		return
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.writeError(w, http.StatusNotFound, kind+" not available")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if download {
		w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(contents)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	resp := HealthResponse{
		Service: "scribe",
		Version: s.version,
		Status:  "ok",
		Jobs:    s.store.Stats(),
	}
	if s.cfg != nil {
		resp.TTLHours = s.cfg.Jobs.TTLHours
	}
	if s.history != nil {
		counts, err := s.history.Counts(r.Context())
		if err != nil {
			s.logger.Warn("history counts", logging.Error(err))
		} else {
			resp.History = make(map[string]int, len(counts))
			for status, count := range counts {
				resp.History[string(status)] = count
			}
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.cfg == nil {
		s.writeError(w, http.StatusNotFound, "configuration not available")
		return
	}
	s.writeJSON(w, http.StatusOK, ConfigResponse{
		Engine:          s.cfg.Transcription.Engine,
		WhisperModel:    s.cfg.Transcription.WhisperModel,
		CaptionLanguage: s.cfg.Transcription.CaptionLanguage,
		LLMModel:        s.cfg.LLM.Model,
		LLMBaseURL:      s.cfg.LLM.BaseURL,
		LLMKeySet:       s.cfg.LLM.APIKey != "",
		ExtractEnabled:  s.cfg.Extraction.Enabled,
		Workers:         s.cfg.Jobs.Workers,
		TTLHours:        s.cfg.Jobs.TTLHours,
		OutputDir:       s.cfg.Paths.OutputDir,
	})
}

func (s *Server) defaultExtract() bool {
	if s.cfg == nil {
		return true
	}
	return s.cfg.Extraction.Enabled
}
