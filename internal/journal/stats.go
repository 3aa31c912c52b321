package journal

import (
	"sort"
	"strings"

	"jotter/internal/dates"
	"jotter/internal/models"
)

// Everything in this file is a pure function of the entries passed in.
// Trashed entries never count.

func writtenDays(entries []models.Entry) map[string]bool {
	days := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IsTrashed() {
			continue
		}
		days[e.EntryDate] = true
	}
	return days
}

// WritingStreak counts consecutive days with at least one entry, walking back
// from today. A streak that has not been extended today is still alive if
// yesterday has an entry.
func WritingStreak(entries []models.Entry, today string) int {
	days := writtenDays(entries)
	start := today
	if !days[start] {
		start = dates.AddDays(today, -1)
		if !days[start] {
			return 0
		}
	}
	n := 0
	for d := start; days[d]; d = dates.AddDays(d, -1) {
		n++
	}
	return n
}

func LongestStreak(entries []models.Entry) int {
	days := writtenDays(entries)
	sorted := make([]string, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)

	best, run := 0, 0
	for i, d := range sorted {
		if i > 0 && dates.AddDays(sorted[i-1], 1) == d {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return best
}

// newestFirst orders by entry date, then creation time, both descending.
func newestFirst(entries []models.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].EntryDate != entries[j].EntryDate {
			return entries[i].EntryDate > entries[j].EntryDate
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
}

// Dashboard derives the dashboard numbers. recent bounds RecentEntries.
func Dashboard(entries []models.Entry, today string, recent int) models.DashboardStats {
	stats := models.DashboardStats{
		EntriesPerJournal: make(map[string]int),
	}
	weekStart := dates.WeekStart(today)
	month := today[:7]

	live := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsTrashed() {
			stats.TrashedCount++
			continue
		}
		live = append(live, e)

		stats.TotalEntries++
		if e.IsArchived() {
			stats.ArchivedCount++
		}
		if e.EntryDate > stats.MostRecentEntryDate {
			stats.MostRecentEntryDate = e.EntryDate
		}
		if e.EntryDate == today {
			stats.HasTodayEntry = true
		}
		if e.EntryDate >= weekStart && e.EntryDate <= today {
			stats.EntriesThisWeek++
		}
		if strings.HasPrefix(e.EntryDate, month) {
			stats.EntriesThisMonth++
		}
		stats.EntriesPerJournal[e.JournalID]++
		if wd, err := dates.Weekday(e.EntryDate); err == nil {
			stats.WeekdayDistribution[wd]++
		}
	}

	stats.CurrentStreak = WritingStreak(live, today)
	stats.LongestStreak = LongestStreak(live)
	stats.DaysWritten = len(writtenDays(live))

	newestFirst(live)
	if recent >= 0 && len(live) > recent {
		live = live[:recent]
	}
	stats.RecentEntries = live
	return stats
}
