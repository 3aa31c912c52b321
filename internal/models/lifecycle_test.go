package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycle_ZeroValueIsActive(t *testing.T) {
	var l Lifecycle
	assert.Equal(t, StateActive, l.State())
	_, ok := l.TrashedAt()
	assert.False(t, ok)
}

func TestLifecycle_Transitions(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	archived, err := Active().Archive()
	require.NoError(t, err)
	assert.Equal(t, StateArchived, archived.State())

	trashed, err := archived.Trash(at)
	require.NoError(t, err)
	assert.Equal(t, StateTrashed, trashed.State())
	got, ok := trashed.TrashedAt()
	require.True(t, ok)
	assert.Equal(t, at, got)

	// trashing again keeps the first timestamp
	again, err := trashed.Trash(at.Add(time.Hour))
	require.NoError(t, err)
	got, _ = again.TrashedAt()
	assert.Equal(t, at, got)

	recovered, err := trashed.Recover()
	require.NoError(t, err)
	assert.Equal(t, StateActive, recovered.State())

	_, err = trashed.Archive()
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = Active().Purge()
	assert.ErrorIs(t, err, ErrIllegalTransition)

	purged, err := trashed.Purge()
	require.NoError(t, err)
	assert.Equal(t, StatePurged, purged.State())

	for name, op := range map[string]func() (Lifecycle, error){
		"archive":   purged.Archive,
		"unarchive": purged.Unarchive,
		"recover":   purged.Recover,
		"purge":     purged.Purge,
		"trash":     func() (Lifecycle, error) { return purged.Trash(at) },
	} {
		_, err := op()
		assert.ErrorIs(t, err, ErrIllegalTransition, name)
	}
}

func TestLifecycle_Columns(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	archived, deletedAt := Archived().Columns()
	assert.True(t, archived)
	assert.Nil(t, deletedAt)

	archived, deletedAt = Trashed(at).Columns()
	assert.False(t, archived)
	require.NotNil(t, deletedAt)
	assert.Equal(t, at, *deletedAt)

	// deleted_at wins over archived
	l := LifecycleFromColumns(true, &at)
	assert.Equal(t, StateTrashed, l.State())
	assert.Equal(t, StateArchived, LifecycleFromColumns(true, nil).State())
	assert.Equal(t, StateActive, LifecycleFromColumns(false, nil).State())
}

func TestLifecycle_Retention(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	l := Trashed(at)

	assert.False(t, l.Expired(at.Add(29*24*time.Hour)))
	assert.False(t, l.Expired(at.Add(TrashRetention)))
	assert.True(t, l.Expired(at.Add(TrashRetention+time.Second)))
	assert.False(t, Active().Expired(at.Add(100*24*time.Hour)))

	assert.Equal(t, 30, l.DaysRemaining(at))
	assert.Equal(t, 1, l.DaysRemaining(at.Add(29*24*time.Hour+time.Hour)))
	assert.Equal(t, 0, l.DaysRemaining(at.Add(31*24*time.Hour)))
}

func TestEntryRecord_RoundTrip(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rec := EntryRecord{ID: "e1", JournalID: "j1", UserID: "u1", Content: "hi", EntryDate: "2024-05-01", DeletedAt: &at}

	e := rec.Entry()
	assert.True(t, e.IsTrashed())
	assert.Equal(t, rec, e.Record())
}
