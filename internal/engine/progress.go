package engine

import (
	"sync"
	"time"

	"github.com/campusgrid/timetable-api/internal/models"
)

// DefaultProgressStatus is applied when an update omits the status.
const DefaultProgressStatus = "pending"

// Ledger tracks per-student activity progress keyed by occurrence. Entries
// survive timetable regeneration: the ledger is seeded from persisted history
// and only ever updated, never cleared, by a new generation cycle.
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]map[string]models.ProgressRecord // studentID -> occurrenceKey -> record
	clock   func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{
		entries: make(map[string]map[string]models.ProgressRecord),
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// Seed loads persisted records for a student, replacing any in-memory state.
func (l *Ledger) Seed(studentID string, records map[string]models.ProgressRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := make(map[string]models.ProgressRecord, len(records))
	for key, rec := range records {
		entries[key] = rec
	}
	l.entries[studentID] = entries
}

// Update upserts one progress record. An empty status defaults to pending and
// the update timestamp is always refreshed.
func (l *Ledger) Update(studentID, occurrenceKey, status, notes string) models.ProgressRecord {
	if status == "" {
		status = DefaultProgressStatus
	}
	rec := models.ProgressRecord{
		Status:      status,
		Notes:       notes,
		LastUpdated: l.clock(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.entries[studentID] == nil {
		l.entries[studentID] = make(map[string]models.ProgressRecord)
	}
	l.entries[studentID][occurrenceKey] = rec
	return rec
}

// Get returns the record for one occurrence.
func (l *Ledger) Get(studentID, occurrenceKey string) (models.ProgressRecord, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.entries[studentID][occurrenceKey]
	return rec, ok
}

// Snapshot copies the student's full history.
func (l *Ledger) Snapshot(studentID string) map[string]models.ProgressRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]models.ProgressRecord, len(l.entries[studentID]))
	for key, rec := range l.entries[studentID] {
		out[key] = rec
	}
	return out
}
