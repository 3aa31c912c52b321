package journal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jotter/internal/models"
)

func days(list ...string) []models.Entry {
	out := make([]models.Entry, 0, len(list))
	for i, d := range list {
		out = append(out, models.Entry{ID: d + "#" + string(rune('a'+i)), JournalID: "j-a", EntryDate: d})
	}
	return out
}

func TestWritingStreak(t *testing.T) {
	tests := []struct {
		name    string
		entries []models.Entry
		want    int
	}{
		{"empty", nil, 0},
		{"today only", days("2024-06-12"), 1},
		{"yesterday keeps it alive", days("2024-06-11", "2024-06-10"), 2},
		{"three in a row", days("2024-06-12", "2024-06-11", "2024-06-10"), 3},
		{"gap breaks it", days("2024-06-12", "2024-06-10"), 1},
		{"two days ago is over", days("2024-06-10", "2024-06-09"), 0},
		{"same day counted once", days("2024-06-12", "2024-06-12", "2024-06-11"), 2},
		{"across month boundary", days("2024-06-02", "2024-06-01", "2024-05-31"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WritingStreak(tt.entries, "2024-06-12"))
		})
	}

	assert.Equal(t, 3, WritingStreak(days("2024-06-01", "2024-05-31", "2024-05-30"), "2024-06-01"))
}

func TestWritingStreak_IgnoresTrashed(t *testing.T) {
	entries := days("2024-06-12", "2024-06-11")
	entries[0].Lifecycle = models.Trashed(time.Now())
	assert.Equal(t, 1, WritingStreak(entries, "2024-06-12"))

	entries[1].Lifecycle = models.Archived()
	assert.Equal(t, 1, WritingStreak(entries, "2024-06-12"))
}

func TestLongestStreak(t *testing.T) {
	assert.Zero(t, LongestStreak(nil))
	assert.Equal(t, 3, LongestStreak(days("2024-02-28", "2024-02-29", "2024-03-01", "2024-03-05", "2024-03-06")))
	assert.Equal(t, 1, LongestStreak(days("2024-01-01", "2024-01-03")))
}

func TestDashboard(t *testing.T) {
	entries := days("2024-06-12", "2024-06-11", "2024-06-10", "2024-06-03", "2024-05-30")
	entries[1].Lifecycle = models.Archived()
	entries[3].JournalID = "j-b"
	entries[4].Lifecycle = models.Trashed(time.Now())

	stats := Dashboard(entries, "2024-06-12", 2)

	assert.Equal(t, 4, stats.TotalEntries)
	assert.Equal(t, 1, stats.ArchivedCount)
	assert.Equal(t, 1, stats.TrashedCount)
	assert.Equal(t, 3, stats.CurrentStreak)
	assert.Equal(t, 3, stats.LongestStreak)
	assert.Equal(t, 4, stats.DaysWritten)
	assert.True(t, stats.HasTodayEntry)
	assert.Equal(t, "2024-06-12", stats.MostRecentEntryDate)
	// 2024-06-12 is a Wednesday; the week starts Monday 2024-06-10.
	assert.Equal(t, 3, stats.EntriesThisWeek)
	assert.Equal(t, 4, stats.EntriesThisMonth)
	assert.Equal(t, map[string]int{"j-a": 3, "j-b": 1}, stats.EntriesPerJournal)
	assert.Equal(t, 1, stats.WeekdayDistribution[time.Wednesday])
	assert.Equal(t, 2, stats.WeekdayDistribution[time.Monday])

	require.Len(t, stats.RecentEntries, 2)
	assert.Equal(t, "2024-06-12", stats.RecentEntries[0].EntryDate)
	assert.Equal(t, "2024-06-11", stats.RecentEntries[1].EntryDate)
}

func TestDashboard_Empty(t *testing.T) {
	stats := Dashboard(nil, "2024-06-12", 5)
	assert.Zero(t, stats.TotalEntries)
	assert.Zero(t, stats.CurrentStreak)
	assert.False(t, stats.HasTodayEntry)
	assert.Empty(t, stats.MostRecentEntryDate)
	assert.Empty(t, stats.RecentEntries)
}
