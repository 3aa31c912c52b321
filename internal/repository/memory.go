package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"jotter/internal/models"
)

// Memory keeps everything in process. The server falls back to it when no
// database is configured; it is also what the service tests run against.
type Memory struct {
	mu       sync.RWMutex
	now      func() time.Time
	accounts map[string]models.Account
	byIndex  map[string]string
	profiles map[string]models.User
	journals map[string]models.Journal
	entries  map[string]models.EntryRecord
}

func NewMemory() *Memory {
	return &Memory{
		now:      time.Now,
		accounts: map[string]models.Account{},
		byIndex:  map[string]string{},
		profiles: map[string]models.User{},
		journals: map[string]models.Journal{},
		entries:  map[string]models.EntryRecord{},
	}
}

func (m *Memory) CreateAccount(_ context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byIndex[a.EmailBlindIndex]; ok {
		return ErrConflict
	}
	a.ID = uuid.NewString()
	a.CreatedAt = m.now()
	m.accounts[a.ID] = *a
	m.byIndex[a.EmailBlindIndex] = a.ID
	return nil
}

func (m *Memory) AccountByEmailIndex(_ context.Context, blindIndex string) (models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byIndex[blindIndex]
	if !ok {
		return models.Account{}, ErrNotFound
	}
	return m.accounts[id], nil
}

func (m *Memory) AccountByID(_ context.Context, id string) (models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return models.Account{}, ErrNotFound
	}
	return a, nil
}

func (m *Memory) Profile(_ context.Context, userID string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.profiles[userID]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) SaveProfile(_ context.Context, u models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[u.ID]; !ok {
		return models.User{}, ErrNotFound
	}
	if prev, ok := m.profiles[u.ID]; ok {
		u.Role = prev.Role
		u.CreatedAt = prev.CreatedAt
	} else {
		if u.Role == "" {
			u.Role = models.RoleUser
		}
		u.CreatedAt = m.now()
	}
	m.profiles[u.ID] = u
	return u, nil
}

func (m *Memory) ListJournals(_ context.Context, userID string) ([]models.Journal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Journal{}
	for _, j := range m.journals {
		if j.UserID == userID {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	return out, nil
}

func (m *Memory) Journal(_ context.Context, userID, id string) (models.Journal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.journals[id]
	if !ok || j.UserID != userID {
		return models.Journal{}, ErrNotFound
	}
	return j, nil
}

func (m *Memory) CreateJournal(_ context.Context, j models.Journal) (models.Journal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j.ID = uuid.NewString()
	j.CreatedAt = m.now()
	m.journals[j.ID] = j
	return j, nil
}

func (m *Memory) UpdateJournal(_ context.Context, j models.Journal) (models.Journal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.journals[j.ID]
	if !ok || cur.UserID != j.UserID {
		return models.Journal{}, ErrNotFound
	}
	cur.Name, cur.Color, cur.Icon = j.Name, j.Color, j.Icon
	m.journals[j.ID] = cur
	return cur, nil
}

func (m *Memory) DeleteJournal(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.journals[id]
	if !ok || j.UserID != userID {
		return ErrNotFound
	}
	delete(m.journals, id)
	for eid, e := range m.entries {
		if e.JournalID == id {
			delete(m.entries, eid)
		}
	}
	return nil
}

func (m *Memory) ListEntries(_ context.Context, userID string) ([]models.EntryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.EntryRecord{}
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].EntryDate != out[k].EntryDate {
			return out[i].EntryDate > out[k].EntryDate
		}
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	return out, nil
}

func (m *Memory) Entry(_ context.Context, userID, id string) (models.EntryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok || e.UserID != userID {
		return models.EntryRecord{}, ErrNotFound
	}
	return e, nil
}

func (m *Memory) CreateEntry(_ context.Context, r models.EntryRecord) (models.EntryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.journals[r.JournalID]; !ok || j.UserID != r.UserID {
		return models.EntryRecord{}, ErrNotFound
	}
	r.ID = uuid.NewString()
	r.CreatedAt = m.now()
	r.UpdatedAt = r.CreatedAt
	m.entries[r.ID] = r
	return r, nil
}

func (m *Memory) UpdateEntry(_ context.Context, r models.EntryRecord) (models.EntryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.entries[r.ID]
	if !ok || cur.UserID != r.UserID {
		return models.EntryRecord{}, ErrNotFound
	}
	if j, ok := m.journals[r.JournalID]; !ok || j.UserID != r.UserID {
		return models.EntryRecord{}, ErrNotFound
	}
	r.CreatedAt = cur.CreatedAt
	r.UpdatedAt = m.now()
	m.entries[r.ID] = r
	return r, nil
}

func (m *Memory) DeleteEntry(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.UserID != userID {
		return ErrNotFound
	}
	delete(m.entries, id)
	return nil
}
