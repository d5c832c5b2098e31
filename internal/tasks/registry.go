// Package tasks tracks asynchronous clip-processing runs. The registry is
// process-wide in-memory state: one orchestrator run writes each record,
// any number of status polls read it concurrently.
package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// ErrNotFound reports an unknown task id.
var ErrNotFound = errors.New("task not found")

// Record is the observable state of one task. While processing, Message is a
// human-readable progress note; on error it describes the failing stage.
// Transcript and Insights are set only on completion and are always present
// then, even when empty.
type Record struct {
	ID         string    `json:"-"`
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
	Transcript *string   `json:"transcript,omitempty"`
	Insights   *string   `json:"insights,omitempty"`
	CreatedAt  time.Time `json:"-"`
	DoneAt     time.Time `json:"-"`
}

// Terminal reports whether the record reached a final state.
func (r *Record) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusError
}

// Registry is a bounded in-memory task store. Terminal records are evicted
// after a TTL and the total record count never exceeds the capacity; the
// oldest terminal records go first.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*Record
	order   []string // insertion order, oldest first

	ttl      time.Duration
	capacity int
	logger   *slog.Logger
}

func NewRegistry(ttl time.Duration, capacity int, logger *slog.Logger) *Registry {
	return &Registry{
		records:  make(map[string]*Record),
		ttl:      ttl,
		capacity: capacity,
		logger:   logger,
	}
}

// Create initialises a processing-state record for id. The record is
// observable by Get before Create returns.
func (r *Registry) Create(id, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[id] = &Record{
		ID:        id,
		Status:    StatusProcessing,
		Message:   message,
		CreatedAt: time.Now(),
	}
	r.order = append(r.order, id)
	r.evictLocked()
}

// SetMessage updates the progress note of a processing record.
// Terminal records are never mutated.
func (r *Registry) SetMessage(id, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok || rec.Terminal() {
		return
	}
	rec.Message = message
}

// Complete transitions the record to its completed terminal state.
func (r *Registry) Complete(id, transcript, insights string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok || rec.Terminal() {
		return
	}
	rec.Status = StatusCompleted
	rec.Message = ""
	rec.Transcript = &transcript
	rec.Insights = &insights
	rec.DoneAt = time.Now()
}

// Fail transitions the record to its error terminal state with a message
// describing the failing stage.
func (r *Registry) Fail(id, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok || rec.Terminal() {
		return
	}
	rec.Status = StatusError
	rec.Message = message
	rec.DoneAt = time.Now()
}

// Get returns a snapshot of the record, or ErrNotFound for unknown ids.
func (r *Registry) Get(id string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return *rec, nil
}

// Len returns the number of records currently held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Start runs the TTL janitor until ctx is cancelled.
func (r *Registry) Start(ctx context.Context) {
	interval := r.ttl / 4
	if interval > time.Minute {
		interval = time.Minute
	}
	if interval < time.Second {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(time.Now())
		}
	}
}

// sweep removes terminal records older than the TTL.
func (r *Registry) sweep(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	kept := r.order[:0]
	for _, id := range r.order {
		rec, ok := r.records[id]
		if !ok {
			continue
		}
		if rec.Terminal() && now.Sub(rec.DoneAt) > r.ttl {
			delete(r.records, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept

	if removed > 0 && r.logger != nil {
		r.logger.Info("expired task records removed", "count", removed, "remaining", len(r.records))
	}
}

// evictLocked enforces the capacity bound. Oldest terminal records are
// evicted first; if every record is still processing the oldest one goes
// regardless, so the map cannot grow without bound.
func (r *Registry) evictLocked() {
	for len(r.records) > r.capacity {
		victim := -1
		for i, id := range r.order {
			if rec, ok := r.records[id]; ok && rec.Terminal() {
				victim = i
				break
			}
		}
		if victim == -1 {
			victim = 0
			if r.logger != nil {
				r.logger.Warn("capacity reached, evicting in-flight task record", "task_id", r.order[0])
			}
		}
		delete(r.records, r.order[victim])
		r.order = append(r.order[:victim], r.order[victim+1:]...)
	}
}
