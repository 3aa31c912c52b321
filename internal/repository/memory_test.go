package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jotter/internal/models"
)

func newAccount(t *testing.T, m *Memory, index string) models.Account {
	t.Helper()
	a := models.Account{Email: "sealed", EmailBlindIndex: index, PasswordHash: "hash"}
	require.NoError(t, m.CreateAccount(context.Background(), &a))
	return a
}

func TestMemory_Accounts(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	a := newAccount(t, m, "idx")
	assert.NotEmpty(t, a.ID)

	dup := models.Account{EmailBlindIndex: "idx"}
	assert.ErrorIs(t, m.CreateAccount(ctx, &dup), ErrConflict)

	got, err := m.AccountByEmailIndex(ctx, "idx")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = m.AccountByEmailIndex(ctx, "other")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_Profiles(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	a := newAccount(t, m, "idx")

	_, err := m.Profile(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	u, err := m.SaveProfile(ctx, models.User{ID: a.ID, DisplayName: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)

	u, err = m.SaveProfile(ctx, models.User{ID: a.ID, DisplayName: "Annie", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "Annie", u.DisplayName)
	assert.Equal(t, models.RoleUser, u.Role)

	_, err = m.SaveProfile(ctx, models.User{ID: "ghost", DisplayName: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_JournalCascadeAndOwnership(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	owner := newAccount(t, m, "a")
	other := newAccount(t, m, "b")

	j, err := m.CreateJournal(ctx, models.Journal{UserID: owner.ID, Name: "Daily"})
	require.NoError(t, err)
	deleted := time.Now()
	_, err = m.CreateEntry(ctx, models.EntryRecord{JournalID: j.ID, UserID: owner.ID, Content: "x", EntryDate: "2024-06-01"})
	require.NoError(t, err)
	_, err = m.CreateEntry(ctx, models.EntryRecord{JournalID: j.ID, UserID: owner.ID, Content: "y", EntryDate: "2024-06-02", DeletedAt: &deleted})
	require.NoError(t, err)

	_, err = m.Journal(ctx, other.ID, j.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.DeleteJournal(ctx, other.ID, j.ID), ErrNotFound)
	_, err = m.CreateEntry(ctx, models.EntryRecord{JournalID: j.ID, UserID: other.ID, Content: "z", EntryDate: "2024-06-01"})
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := m.ListEntries(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2024-06-02", entries[0].EntryDate)

	require.NoError(t, m.DeleteJournal(ctx, owner.ID, j.ID))
	entries, err = m.ListEntries(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMemory_UpdateEntryKeepsCreatedAt(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	a := newAccount(t, m, "a")
	j, err := m.CreateJournal(ctx, models.Journal{UserID: a.ID, Name: "Daily"})
	require.NoError(t, err)
	e, err := m.CreateEntry(ctx, models.EntryRecord{JournalID: j.ID, UserID: a.ID, Content: "x", EntryDate: "2024-06-01"})
	require.NoError(t, err)

	e.Content = "edited"
	e.CreatedAt = time.Time{}
	got, err := m.UpdateEntry(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Content)
	assert.False(t, got.CreatedAt.IsZero())

	require.NoError(t, m.DeleteEntry(ctx, a.ID, e.ID))
	assert.ErrorIs(t, m.DeleteEntry(ctx, a.ID, e.ID), ErrNotFound)
}
