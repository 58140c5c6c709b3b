package store

import (
	"errors"
	"sync"
	"time"

	"alertbot/internal/domain"
)

// ErrNotFound indicates an unknown fingerprint.
var ErrNotFound = errors.New("alert not found")

// Record is one tracked alert lifecycle entry.
// Params: fingerprint identity, last delivered payload, and lifecycle stamps.
// Returns: snapshot value owned by callers after listing.
type Record struct {
	Fingerprint string
	Alert       domain.Alert
	Status      domain.AlertStatus
	ReceivedAt  time.Time
	ResolvedAt  *time.Time
	ResolvedBy  string
}

// Stats is a read-only size snapshot for health reporting.
// Params: record and acknowledgement table sizes.
// Returns: counters without store mutation.
type Stats struct {
	Tracked int
	Acked   int
}

// Store is the authoritative in-memory alert registry.
// Params: mutex-guarded record/ack tables and injected clock.
// Returns: serialized lifecycle operations; no I/O happens under the lock.
type Store struct {
	mu      sync.RWMutex
	now     func() time.Time
	records map[string]*Record
	order   []string
	acks    map[string]time.Time
}

// New creates the in-memory alert store.
// Params: now function (defaults to time.Now when nil).
// Returns: initialized empty store.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:     now,
		records: make(map[string]*Record),
		acks:    make(map[string]time.Time),
	}
}

// Upsert records one alert delivery under its fingerprint.
// Params: alert payload and batch status.
// Returns: nothing; first receipt creates the record, repeats overwrite
// payload and status in place (last write wins).
func (s *Store) Upsert(alert domain.Alert, status domain.AlertStatus) {
	fingerprint := domain.Fingerprint(alert)
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.records[fingerprint]
	if !ok {
		s.records[fingerprint] = &Record{
			Fingerprint: fingerprint,
			Alert:       alert,
			Status:      status,
			ReceivedAt:  s.now(),
		}
		s.order = append(s.order, fingerprint)
		return
	}
	entry.Alert = alert
	entry.Status = status
}

// MarkResolved applies an operator-initiated resolve override.
// Params: fingerprint and resolver identity.
// Returns: ErrNotFound for unknown fingerprints; re-resolving an already
// resolved record is a tolerated no-op that re-stamps resolved_at.
func (s *Store) MarkResolved(fingerprint, resolvedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.records[fingerprint]
	if !ok {
		return ErrNotFound
	}
	resolvedAt := s.now()
	entry.Status = domain.StatusResolved
	entry.ResolvedAt = &resolvedAt
	entry.ResolvedBy = resolvedBy
	return nil
}

// Acknowledge records or refreshes one acknowledgement.
// Params: fingerprint, known or not.
// Returns: nothing; acknowledging a not-yet-seen fingerprint is tolerated
// and the mark survives resolution until Clear.
func (s *Store) Acknowledge(fingerprint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acks[fingerprint] = s.now()
}

// Acked reports acknowledgement state for one fingerprint.
// Params: fingerprint key.
// Returns: true when an acknowledgement record exists.
func (s *Store) Acked(fingerprint string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.acks[fingerprint]
	return ok
}

// Get returns one record snapshot.
// Params: fingerprint key.
// Returns: record copy or ErrNotFound.
func (s *Store) Get(fingerprint string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.records[fingerprint]
	if !ok {
		return Record{}, ErrNotFound
	}
	return *entry, nil
}

// ListAll returns record snapshots in first-seen order.
// Params: none.
// Returns: copied records; callers own the slice.
func (s *Store) ListAll() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.order))
	for _, fingerprint := range s.order {
		out = append(out, *s.records[fingerprint])
	}
	return out
}

// ListByStatus returns record snapshots filtered by status in first-seen order.
// Params: lifecycle status to match.
// Returns: copied matching records.
func (s *Store) ListByStatus(status domain.AlertStatus) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.order))
	for _, fingerprint := range s.order {
		if entry := s.records[fingerprint]; entry.Status == status {
			out = append(out, *entry)
		}
	}
	return out
}

// ListAcked returns acknowledged fingerprints with their timestamps.
// Params: none.
// Returns: copied acknowledgement table.
func (s *Store) ListAcked() map[string]time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]time.Time, len(s.acks))
	for fingerprint, ackedAt := range s.acks {
		out[fingerprint] = ackedAt
	}
	return out
}

// Clear empties record and acknowledgement tables together.
// Params: none.
// Returns: nothing; irreversible.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*Record)
	s.order = nil
	s.acks = make(map[string]time.Time)
}

// Size returns table sizes for health reporting.
// Params: none.
// Returns: tracked/acked counters.
func (s *Store) Size() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Tracked: len(s.records), Acked: len(s.acks)}
}
