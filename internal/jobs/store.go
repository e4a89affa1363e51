package jobs

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned for operations on unknown job ids.
	ErrNotFound = errors.New("job not found")
	// ErrExists is returned when creating a job whose id is taken.
	ErrExists = errors.New("job already exists")
	// ErrInvalidTransition is returned for status changes outside the
	// transition table.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Set wraps a value for use in an Update field.
func Set[T any](v T) *T { return &v }

// Update describes a partial merge applied to a job record. Nil fields
// are left untouched.
type Update struct {
	Status         *Status
	Phase          *Phase
	Progress       *int
	Message        *string
	Metadata       *Metadata
	TranscriptPath *string
	SummaryPath    *string
	Error          *string
}

// Store is a mutex-guarded in-memory registry of job records.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*Job
	now  func() time.Time
}

// NewStore creates an empty registry.
func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
}

// Create inserts a job, failing if the id is already present.
func (s *Store) Create(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("%w: %s", ErrExists, job.ID)
	}
	stored := job.clone()
	s.jobs[job.ID] = &stored
	return nil
}

// Get returns a snapshot of the job, or false when the id is unknown.
func (s *Store) Get(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return job.clone(), true
}

// Update merges the given fields into the job under one critical
// section and returns the resulting snapshot. Terminal jobs are never
// modified; progress never decreases while the job is running.
func (s *Store) Update(id string, update Update) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if job.Status.Terminal() {
		return job.clone(), nil
	}

	if update.Status != nil && *update.Status != job.Status {
		if !CanTransition(job.Status, *update.Status) {
			return Job{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, *update.Status)
		}
		job.Status = *update.Status
		if job.Status.Terminal() {
			at := s.now().UTC()
			job.CompletedAt = &at
		}
	}
	if update.Phase != nil {
		job.Phase = *update.Phase
	}
	if update.Progress != nil && *update.Progress > job.Progress {
		progress := *update.Progress
		if progress > 100 {
			progress = 100
		}
		job.Progress = progress
	}
	if update.Message != nil {
		job.Message = *update.Message
	}
	if update.Metadata != nil {
		meta := *update.Metadata
		job.Metadata = &meta
	}
	if update.TranscriptPath != nil {
		job.TranscriptPath = *update.TranscriptPath
	}
	if update.SummaryPath != nil {
		job.SummaryPath = *update.SummaryPath
	}
	if update.Error != nil {
		job.Error = *update.Error
	}
	return job.clone(), nil
}

// List returns snapshots of all jobs, newest first.
func (s *Store) List() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Stats returns aggregate counts per lifecycle state.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats Stats
	for _, job := range s.jobs {
		stats.Total++
		switch job.Status {
		case StatusPending:
			stats.Pending++
		case StatusComplete:
			stats.Complete++
		case StatusError:
			stats.Error++
		default:
			stats.Processing++
		}
	}
	return stats
}

// SweepExpired removes terminal jobs whose completion precedes now-ttl
// and returns the count removed. A non-positive ttl disables expiry.
// Non-terminal jobs are never touched regardless of age.
func (s *Store) SweepExpired(now time.Time, ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		if !job.Status.Terminal() || job.CompletedAt == nil {
			continue
		}
		if job.CompletedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}
