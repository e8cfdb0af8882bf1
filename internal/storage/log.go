package storage

import (
	"errors"
	"sync"
	"time"
)

// ErrIncompleteObservation is returned when an observation has nothing to record.
var ErrIncompleteObservation = errors.New("storage: observation has no premiums")

// ObservationStore is the append-only trend history of completed cycles.
type ObservationStore interface {
	Append(obs Observation) error
	List() []Observation
	ListRecent(limit int) []Observation
	ListBetween(from, to time.Time) []Observation
	Count() int
}

// MemoryLog keeps observations for the lifetime of the process. Entries are
// never modified or removed once appended.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []Observation
}

// NewMemoryLog returns an empty log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append records obs at the end of the log.
func (l *MemoryLog) Append(obs Observation) error {
	if len(obs.Premiums) == 0 {
		return ErrIncompleteObservation
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, obs.clone())
	return nil
}

// List returns a copy of every observation in arrival order.
func (l *MemoryLog) List() []Observation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyObservations(l.entries)
}

// ListRecent returns up to limit of the newest observations, newest first.
func (l *MemoryLog) ListRecent(limit int) []Observation {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]Observation, 0, limit)
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.entries[i].clone())
	}
	return out
}

// ListBetween returns observations with from <= ts < to in arrival order.
func (l *MemoryLog) ListBetween(from, to time.Time) []Observation {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Observation, 0)
	for _, obs := range l.entries {
		if obs.Timestamp.Before(from) || !obs.Timestamp.Before(to) {
			continue
		}
		out = append(out, obs.clone())
	}
	return out
}

// Count reports how many observations have been recorded.
func (l *MemoryLog) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func copyObservations(in []Observation) []Observation {
	out := make([]Observation, len(in))
	for i, obs := range in {
		out[i] = obs.clone()
	}
	return out
}

var _ ObservationStore = (*MemoryLog)(nil)
