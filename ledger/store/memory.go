// Package store provides in-memory implementations of the ledger interfaces.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/accommodation-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements ledger.Store, ledger.ResidenceDirectory and ledger.RunLog.
type Memory struct {
	mu         sync.RWMutex
	entries    []ledger.TransactionEntry
	ids        map[ledger.EntryID]bool
	residences map[ledger.ResidenceID]ledger.Residence
	order      []ledger.ResidenceID
	runs       []ledger.ReconciliationRun
}

func NewMemory() *Memory {
	return &Memory{
		ids:        make(map[ledger.EntryID]bool),
		residences: make(map[ledger.ResidenceID]ledger.Residence),
	}
}

// Append adds a single entry. Append-only.
func (m *Memory) Append(ctx context.Context, entry ledger.TransactionEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.ID != "" && m.ids[entry.ID] {
		return ledger.ErrDuplicateEntry
	}
	m.appendLocked(entry)
	return nil
}

// AppendBatch adds multiple entries atomically.
func (m *Memory) AppendBatch(ctx context.Context, entries []ledger.TransactionEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check all ids first (atomic check)
	seen := make(map[ledger.EntryID]bool, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		if m.ids[e.ID] || seen[e.ID] {
			return ledger.ErrDuplicateEntry
		}
		seen[e.ID] = true
	}

	for _, e := range entries {
		m.appendLocked(e)
	}
	return nil
}

func (m *Memory) appendLocked(entry ledger.TransactionEntry) {
	entry = cloneEntry(entry)

	// Insert after every entry with the same or an earlier date so that
	// ties keep insertion order.
	i := sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].Date.After(entry.Date)
	})
	m.entries = append(m.entries, ledger.TransactionEntry{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = entry

	if entry.ID != "" {
		m.ids[entry.ID] = true
	}
}

func (m *Memory) Query(ctx context.Context, filter ledger.EntryFilter) ([]ledger.TransactionEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.TransactionEntry
	for _, e := range m.entries {
		if filter.Matches(e) {
			result = append(result, cloneEntry(e))
		}
	}
	return result, nil
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func cloneEntry(e ledger.TransactionEntry) ledger.TransactionEntry {
	e.Entries = append([]ledger.EntryLine(nil), e.Entries...)
	if e.Metadata != nil {
		md := make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			md[k] = v
		}
		e.Metadata = md
	}
	return e
}

// =============================================================================
// RESIDENCES
// =============================================================================

func (m *Memory) FindResidence(ctx context.Context, id ledger.ResidenceID) (*ledger.Residence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.residences[id]
	if !ok {
		return nil, ledger.ErrResidenceNotFound
	}
	return &r, nil
}

func (m *Memory) SaveResidence(ctx context.Context, r ledger.Residence) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.residences[r.ID]; !exists {
		m.order = append(m.order, r.ID)
	}
	m.residences[r.ID] = r
	return nil
}

func (m *Memory) ListResidences(ctx context.Context) ([]ledger.Residence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.Residence, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.residences[id])
	}
	return result, nil
}

// =============================================================================
// RECONCILIATION RUNS
// =============================================================================

func (m *Memory) RecordRun(ctx context.Context, run ledger.ReconciliationRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *Memory) ListRuns(ctx context.Context, limit int) ([]ledger.ReconciliationRun, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.runs)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]ledger.ReconciliationRun, 0, n)
	for i := len(m.runs) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, m.runs[i])
	}
	return result, nil
}
