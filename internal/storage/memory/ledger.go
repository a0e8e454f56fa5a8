package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/JakeFAU/annual-report-harvester/internal/harvest"
)

// Ledger provides an in-memory run ledger for development/testing.
type Ledger struct {
	mu   sync.RWMutex
	runs map[string][]harvest.ArchiveEntry
}

// NewLedger constructs a Ledger.
func NewLedger() *Ledger {
	return &Ledger{runs: make(map[string][]harvest.ArchiveEntry)}
}

// Record appends an entry to its run.
func (l *Ledger) Record(_ context.Context, entry harvest.ArchiveEntry) error {
	if entry.RunID == "" {
		return errors.New("run id is required")
	}
	entry.Emails = append([]string(nil), entry.Emails...)
	entry.Phones = append([]string(nil), entry.Phones...)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs[entry.RunID] = append(l.runs[entry.RunID], entry)
	return nil
}

// ListRun returns the entries recorded for runID in insertion order.
func (l *Ledger) ListRun(_ context.Context, runID string) ([]harvest.ArchiveEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entries := l.runs[runID]
	out := make([]harvest.ArchiveEntry, len(entries))
	copy(out, entries)
	return out, nil
}
