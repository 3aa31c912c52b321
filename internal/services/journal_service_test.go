package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"jotter/internal/gateway"
	"jotter/internal/models"
	"jotter/internal/repository"
)

type journalFixture struct {
	svc     *JournalService
	repo    *repository.Memory
	userID  string
	journal models.Journal
}

func newJournalFixture(t *testing.T) journalFixture {
	t.Helper()
	repo := repository.NewMemory()
	svc := NewJournalService(repo, newEncryption(t), nil)
	svc.now = func() time.Time { return time.Date(2024, 6, 12, 23, 0, 0, 0, time.UTC) }

	acct := models.Account{EmailBlindIndex: "idx"}
	require.NoError(t, repo.CreateAccount(context.Background(), &acct))
	j, err := svc.CreateJournal(context.Background(), acct.ID, gateway.NewJournal{Name: " Daily "})
	require.NoError(t, err)
	return journalFixture{svc: svc, repo: repo, userID: acct.ID, journal: j}
}

func (f journalFixture) create(t *testing.T, day, content string) models.Entry {
	t.Helper()
	e, err := f.svc.CreateEntry(context.Background(), f.userID, gateway.NewEntry{JournalID: f.journal.ID, EntryDate: day, Content: content})
	require.NoError(t, err)
	return e
}

func TestJournalService_CreateJournal(t *testing.T) {
	f := newJournalFixture(t)
	assert.Equal(t, "Daily", f.journal.Name)
	assert.Equal(t, models.DefaultColor, f.journal.Color)

	_, err := f.svc.CreateJournal(context.Background(), f.userID, gateway.NewJournal{Name: ""})
	assert.ErrorIs(t, err, models.ErrJournalNameEmpty)

	name := "Work"
	color := "#abcdef"
	j, err := f.svc.UpdateJournal(context.Background(), f.userID, f.journal.ID, gateway.JournalPatch{Name: &name, Color: &color})
	require.NoError(t, err)
	assert.Equal(t, "Work", j.Name)
	assert.Equal(t, "#ABCDEF", j.Color)

	_, err = f.svc.UpdateJournal(context.Background(), "someone-else", f.journal.ID, gateway.JournalPatch{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJournalService_EntryContentSealed(t *testing.T) {
	f := newJournalFixture(t)
	e := f.create(t, "2024-06-12", "secret thoughts")
	assert.Equal(t, "secret thoughts", e.Content)

	raw, err := f.repo.Entry(context.Background(), f.userID, e.ID)
	require.NoError(t, err)
	assert.NotContains(t, raw.Content, "secret")

	list, err := f.svc.ListEntries(context.Background(), f.userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "secret thoughts", list[0].Content)
}

func TestJournalService_ListEntriesLogsUndecryptable(t *testing.T) {
	f := newJournalFixture(t)
	good := f.create(t, "2024-06-11", "readable")

	otherKey, err := NewEncryptionService(bytes.Repeat([]byte{9}, 32), bytes.Repeat([]byte{2}, 32))
	require.NoError(t, err)
	foreign := NewJournalService(f.repo, otherKey, nil)
	foreign.now = f.svc.now
	bad, err := foreign.CreateEntry(context.Background(), f.userID, gateway.NewEntry{JournalID: f.journal.ID, EntryDate: "2024-06-12", Content: "sealed elsewhere"})
	require.NoError(t, err)

	core, logs := observer.New(zapcore.WarnLevel)
	f.svc.log = zap.New(core)

	list, err := f.svc.ListEntries(context.Background(), f.userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, good.ID, list[0].ID)

	warned := logs.FilterMessage("skipping undecryptable entry").All()
	require.Len(t, warned, 1)
	assert.Equal(t, bad.ID, warned[0].ContextMap()["entry_id"])
}

func TestJournalService_CreateEntryValidation(t *testing.T) {
	f := newJournalFixture(t)
	ctx := context.Background()

	// One day past UTC today is accepted for writers east of UTC.
	f.create(t, "2024-06-13", "already tomorrow in Auckland")

	_, err := f.svc.CreateEntry(ctx, f.userID, gateway.NewEntry{JournalID: f.journal.ID, EntryDate: "2024-06-14", Content: "x"})
	assert.ErrorIs(t, err, models.ErrFutureDate)
	_, err = f.svc.CreateEntry(ctx, f.userID, gateway.NewEntry{JournalID: f.journal.ID, EntryDate: "2024-06-01", Content: "<p></p>"})
	assert.ErrorIs(t, err, models.ErrEmptyContent)
	_, err = f.svc.CreateEntry(ctx, f.userID, gateway.NewEntry{JournalID: "nope", EntryDate: "2024-06-01", Content: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	e, err := f.svc.CreateEntry(ctx, f.userID, gateway.NewEntry{JournalID: f.journal.ID, Content: "defaults to today"})
	require.NoError(t, err)
	assert.Equal(t, "2024-06-12", e.EntryDate)
}

func TestJournalService_Lifecycle(t *testing.T) {
	f := newJournalFixture(t)
	ctx := context.Background()
	e := f.create(t, "2024-06-10", "hello")

	archived := true
	got, err := f.svc.UpdateEntry(ctx, f.userID, e.ID, gateway.EntryPatch{Archived: &archived})
	require.NoError(t, err)
	assert.True(t, got.IsArchived())

	assert.ErrorIs(t, f.svc.PurgeEntry(ctx, f.userID, e.ID), ErrEntryNotTrashed)

	at := time.Date(2024, 6, 11, 8, 0, 0, 0, time.UTC)
	got, err = f.svc.TrashEntry(ctx, f.userID, e.ID, at)
	require.NoError(t, err)
	require.True(t, got.IsTrashed())

	again, err := f.svc.TrashEntry(ctx, f.userID, e.ID, at.Add(time.Hour))
	require.NoError(t, err)
	first, _ := again.Lifecycle.TrashedAt()
	assert.True(t, first.Equal(at))

	content := "edit"
	_, err = f.svc.UpdateEntry(ctx, f.userID, e.ID, gateway.EntryPatch{Content: &content})
	assert.ErrorIs(t, err, ErrEntryTrashed)

	got, err = f.svc.RecoverEntry(ctx, f.userID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateActive, got.Lifecycle.State())
	assert.Equal(t, "hello", got.Content)

	_, err = f.svc.TrashEntry(ctx, f.userID, e.ID, at)
	require.NoError(t, err)
	require.NoError(t, f.svc.PurgeEntry(ctx, f.userID, e.ID))
	_, err = f.svc.RecoverEntry(ctx, f.userID, e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJournalService_DeleteJournalCascades(t *testing.T) {
	f := newJournalFixture(t)
	ctx := context.Background()
	f.create(t, "2024-06-10", "one")
	e := f.create(t, "2024-06-11", "two")
	_, err := f.svc.TrashEntry(ctx, f.userID, e.ID, time.Time{})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteJournal(ctx, f.userID, f.journal.ID))
	list, err := f.svc.ListEntries(ctx, f.userID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestJournalService_Stats(t *testing.T) {
	f := newJournalFixture(t)
	f.create(t, "2024-06-12", "a")
	f.create(t, "2024-06-11", "b")

	stats, err := f.svc.Stats(context.Background(), f.userID, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 2, stats.CurrentStreak)

	tokyo := time.FixedZone("JST", 9*3600)
	stats, err = f.svc.Stats(context.Background(), f.userID, tokyo)
	require.NoError(t, err)
	// 23:00 UTC is already 2024-06-13 in Tokyo; yesterday's entry keeps the streak.
	assert.Equal(t, 2, stats.CurrentStreak)
	assert.False(t, stats.HasTodayEntry)
}
