package store

import (
	"context"
	"sort"
	"sync"

	"vistora/internal/domain"
)

// Memory is an in-process Store used by tests and the "memory" driver.
type Memory struct {
	mu       sync.Mutex
	jobs     map[string]domain.Job
	accounts map[string]domain.Account
	entries  map[string][]domain.LedgerEntry
	profiles map[string]domain.Profile
}

func NewMemory() *Memory {
	return &Memory{
		jobs:     make(map[string]domain.Job),
		accounts: make(map[string]domain.Account),
		entries:  make(map[string][]domain.LedgerEntry),
		profiles: make(map[string]domain.Profile),
	}
}

func (m *Memory) PutJob(_ context.Context, job domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job.Clone()
	return nil
}

func (m *Memory) GetJob(_ context.Context, id string) (domain.Job, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return domain.Job{}, false, nil
	}
	return job.Clone(), true, nil
}

func (m *Memory) ListJobs(_ context.Context) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j.Clone())
	}
	sort.Slice(out, func(i, k int) bool {
		if !out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].CreatedAt.Before(out[k].CreatedAt)
		}
		return out[i].ID < out[k].ID
	})
	return out, nil
}

func (m *Memory) GetAccount(_ context.Context, userID string) (domain.Account, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct, ok := m.accounts[userID]
	return acct, ok, nil
}

func (m *Memory) ApplyEntries(_ context.Context, acct domain.Account, entries []domain.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[acct.UserID] = acct
	m.entries[acct.UserID] = append(m.entries[acct.UserID], entries...)
	return nil
}

func (m *Memory) ListEntries(_ context.Context, userID string) ([]domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.LedgerEntry(nil), m.entries[userID]...), nil
}

func (m *Memory) EntriesByRef(_ context.Context, userID, refID string) ([]domain.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.LedgerEntry
	for _, e := range m.entries[userID] {
		if e.RefID == refID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) GetProfile(_ context.Context, name string) (domain.Profile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[name]
	if !ok {
		return domain.Profile{}, false, nil
	}
	p.Settings = domain.CloneValues(p.Settings)
	return p, true, nil
}

func (m *Memory) PutProfile(_ context.Context, p domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Settings = domain.CloneValues(p.Settings)
	m.profiles[p.Name] = p
	return nil
}

func (m *Memory) ListProfiles(_ context.Context) ([]domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		p.Settings = domain.CloneValues(p.Settings)
		out = append(out, p)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out, nil
}

func (m *Memory) Close() error { return nil }

var _ domain.Store = (*Memory)(nil)
