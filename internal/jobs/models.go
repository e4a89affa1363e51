package jobs

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusPending      Status = "pending"
	StatusDownloading  Status = "downloading"
	StatusTranscribing Status = "transcribing"
	StatusExtracting   Status = "extracting"
	StatusComplete     Status = "complete"
	StatusError        Status = "error"
)

// Phase is the coarse pipeline stage, empty before the first transition.
type Phase string

const (
	PhaseDownload   Phase = "download"
	PhaseTranscribe Phase = "transcribe"
	PhaseExtract    Phase = "extract"
	PhaseCleanup    Phase = "cleanup"
	PhaseComplete   Phase = "complete"
	PhaseError      Phase = "error"
)

var allStatuses = []Status{
	StatusPending,
	StatusDownloading,
	StatusTranscribing,
	StatusExtracting,
	StatusComplete,
	StatusError,
}

// Terminal reports whether the status ends the job's lifecycle.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	for _, status := range allStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// transitions is the closed set of allowed status changes. Error is
// reachable from every non-terminal state.
var transitions = map[Status][]Status{
	StatusPending:      {StatusDownloading, StatusTranscribing, StatusError},
	StatusDownloading:  {StatusTranscribing, StatusError},
	StatusTranscribing: {StatusDownloading, StatusExtracting, StatusComplete, StatusError},
	StatusExtracting:   {StatusComplete, StatusError},
}

// CanTransition reports whether a job may move from one status to
// another. The downloading/transcribing pair is bidirectional: the
// auto strategy checks captions before any audio download.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Metadata carries video details attached to a job once known.
type Metadata struct {
	VideoID         string  `json:"video_id,omitempty"`
	Title           string  `json:"title"`
	Author          string  `json:"author"`
	UploadDate      string  `json:"upload_date,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Description     string  `json:"description,omitempty"`
	URL             string  `json:"url"`
	// Source records what produced the transcript: "captions" or the
	// fallback engine name.
	Source string `json:"source,omitempty"`
}

// Job is one submitted processing request and its mutable status record.
type Job struct {
	ID             string     `json:"id"`
	URL            string     `json:"url"`
	Engine         string     `json:"engine,omitempty"`
	LLM            string     `json:"llm,omitempty"`
	ExtractEnabled bool       `json:"extract_enabled"`
	Status         Status     `json:"status"`
	Phase          Phase      `json:"phase,omitempty"`
	Progress       int        `json:"progress"`
	Message        string     `json:"message,omitempty"`
	Metadata       *Metadata  `json:"metadata,omitempty"`
	TranscriptPath string     `json:"transcript_path,omitempty"`
	SummaryPath    string     `json:"summary_path,omitempty"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the job has finished, successfully or not.
func (j Job) Terminal() bool { return j.Status.Terminal() }

// clone returns a deep copy safe to hand across goroutines.
func (j Job) clone() Job {
	copied := j
	if j.Metadata != nil {
		meta := *j.Metadata
		copied.Metadata = &meta
	}
	if j.CompletedAt != nil {
		at := *j.CompletedAt
		copied.CompletedAt = &at
	}
	return copied
}

// NewID generates a short opaque job identifier.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// NewJob constructs a pending job for the given URL.
func NewJob(url, engine string, extractEnabled bool) Job {
	return Job{
		ID:             NewID(),
		URL:            url,
		Engine:         engine,
		ExtractEnabled: extractEnabled,
		Status:         StatusPending,
		Progress:       0,
		Message:        "Job queued",
		CreatedAt:      time.Now().UTC(),
	}
}

// Stats aggregates registry counts per lifecycle state.
type Stats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Complete   int `json:"complete"`
	Error      int `json:"error"`
}
