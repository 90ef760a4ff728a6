// Package store provides persistence backends for gamification records.
// Every backend serializes read-modify-write per user.
package store

import (
	"context"
	"sync"

	"github.com/SABARISH0014/MXshare-dev-sub000/internal/domain"
)

// Memory keeps records in process. Mutations for one user are serialized with
// a per-user lock; different users proceed in parallel. Used for tests and for
// STORE_DRIVER=memory.
type Memory struct {
	mu      sync.Mutex
	records map[string]*domain.UserGamificationState
	locks   map[string]*sync.Mutex
	saves   map[string]int
	events  []domain.OutboxDraft
	pending []domain.OutboxRow
	seq     int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]*domain.UserGamificationState),
		locks:   make(map[string]*sync.Mutex),
		saves:   make(map[string]int),
	}
}

func (m *Memory) lockFor(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lk, ok := m.locks[userID]
	if !ok {
		lk = &sync.Mutex{}
		m.locks[userID] = lk
	}
	return lk
}

// Mutate runs fn on a copy of the record and swaps it in only when fn reports
// a change, so failed transitions leave the stored record untouched.
func (m *Memory) Mutate(ctx context.Context, userID string, fn func(*domain.UserGamificationState) (domain.Mutation, error)) error {
	if err := ctx.Err(); err != nil {
		return domain.ErrStoreUnavailable(err)
	}

	lk := m.lockFor(userID)
	lk.Lock()
	defer lk.Unlock()

	m.mu.Lock()
	current, ok := m.records[userID]
	m.mu.Unlock()
	if !ok {
		return domain.ErrNotFound("user", userID)
	}

	working := current.Clone()
	mut, err := fn(working)
	if err != nil {
		return err
	}
	if !mut.Dirty {
		return nil
	}

	working.Version = current.Version + 1
	m.mu.Lock()
	m.records[userID] = working
	m.saves[userID]++
	m.events = append(m.events, mut.Events...)
	for _, evt := range mut.Events {
		m.seq++
		m.pending = append(m.pending, domain.OutboxRow{SeqID: m.seq, OutboxDraft: evt})
	}
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the stored record.
func (m *Memory) Get(_ context.Context, userID string) (*domain.UserGamificationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.records[userID]
	if !ok {
		return nil, domain.ErrNotFound("user", userID)
	}
	return s.Clone(), nil
}

// Create inserts state unless the user already has a record.
func (m *Memory) Create(_ context.Context, state *domain.UserGamificationState) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[state.UserID]; ok {
		return false, nil
	}
	m.records[state.UserID] = state.Clone()
	return true, nil
}

// Put overwrites a record unconditionally. Intended for seeding fixtures.
func (m *Memory) Put(state *domain.UserGamificationState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[state.UserID] = state.Clone()
}

// Saves returns how many persisted writes Mutate performed for userID.
func (m *Memory) Saves(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves[userID]
}

// Events returns every outbox event written so far.
func (m *Memory) Events() []domain.OutboxDraft {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OutboxDraft(nil), m.events...)
}

// FetchOutbox returns up to limit events not yet acknowledged, oldest first.
func (m *Memory) FetchOutbox(_ context.Context, limit int) ([]domain.OutboxRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := min(limit, len(m.pending))
	return append([]domain.OutboxRow(nil), m.pending[:n]...), nil
}

// AckOutbox drops acknowledged events from the pending queue.
func (m *Memory) AckOutbox(_ context.Context, rows []domain.OutboxRow) error {
	acked := make(map[int64]bool, len(rows))
	for _, r := range rows {
		acked[r.SeqID] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.pending[:0]
	for _, r := range m.pending {
		if !acked[r.SeqID] {
			kept = append(kept, r)
		}
	}
	m.pending = kept
	return nil
}
