// Package broadcast fans job snapshots out from worker goroutines to
// any number of streaming subscribers.
//
// Delivery is best-effort: a subscriber whose queue is full misses that
// update and recovers the authoritative state from the job store. The
// publisher never blocks on a slow consumer.
package broadcast

import (
	"log/slog"
	"sync"

	"scribe/internal/jobs"
	"scribe/internal/logging"
)

// DefaultQueueSize bounds each subscription's event queue.
const DefaultQueueSize = 100

// Subscription is one observer's queue of snapshots for one job.
type Subscription struct {
	jobID  string
	events chan jobs.Job

	closeOnce sync.Once
}

// Events returns the snapshot queue. The channel is closed when the
// subscription is removed from the broadcaster.
func (s *Subscription) Events() <-chan jobs.Job {
	return s.events
}

// JobID returns the job this subscription observes.
func (s *Subscription) JobID() string { return s.jobID }

func (s *Subscription) close() {
	s.closeOnce.Do(func() { close(s.events) })
}

// Broadcaster maintains per-job subscriber sets guarded by one mutex.
type Broadcaster struct {
	mu        sync.Mutex
	jobSubs   map[string]map[*Subscription]struct{}
	queueSize int
	logger    *slog.Logger
}

// New creates a broadcaster whose subscriptions buffer up to queueSize
// snapshots each.
func New(queueSize int, logger *slog.Logger) *Broadcaster {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Broadcaster{
		jobSubs:   make(map[string]map[*Subscription]struct{}),
		queueSize: queueSize,
		logger:    logger,
	}
}

// Subscribe registers a new observer for the given job id.
func (b *Broadcaster) Subscribe(jobID string) *Subscription {
	sub := &Subscription{
		jobID:  jobID,
		events: make(chan jobs.Job, b.queueSize),
	}
	b.mu.Lock()
	set, ok := b.jobSubs[jobID]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.jobSubs[jobID] = set
	}
	set[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Unsubscribe detaches an observer and closes its queue. It is
// idempotent; removing the last subscriber discards the job's set.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.jobSubs[sub.jobID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.jobSubs, sub.jobID)
		}
	}
	// Closed under the registry lock so a concurrent Publish can never
	// send on a closed channel.
	sub.close()
}

// Publish delivers a snapshot to every current subscriber of the job.
// Subscribers with full queues are skipped. Sends are non-blocking and
// happen under the registry lock, so the publisher never waits on a
// consumer and never races an Unsubscribe.
func (b *Broadcaster) Publish(jobID string, snapshot jobs.Job) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.jobSubs[jobID] {
		select {
		case sub.events <- snapshot:
		default:
			b.logger.Debug("subscriber queue full, dropping update",
				logging.String(logging.FieldJobID, jobID))
		}
	}
}

// SubscriberCount returns how many observers a job currently has.
func (b *Broadcaster) SubscriberCount(jobID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.jobSubs[jobID])
}
