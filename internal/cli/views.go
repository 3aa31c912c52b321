package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"jotter/internal/journal"
)

func trashCmd(h *appHolder) *cobra.Command {
	return &cobra.Command{
		Use:   "trash",
		Short: "List trashed entries and how long they can still be recovered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			u, s, err := a.data(cmd.Context())
			if err != nil {
				return err
			}
			trashed := s.TrashedEntries(u.ID)
			if len(trashed) == 0 {
				fmt.Fprintln(a.Out, "Trash is empty.")
				return nil
			}
			tw := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tTRASHED\tDAYS LEFT\tTEXT")
			for _, e := range trashed {
				at, _ := e.Lifecycle.TrashedAt()
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
					short(e.ID), e.EntryDate, at.In(a.Location).Format("2006-01-02 15:04"), s.DaysUntilPurge(e), preview(e.Content))
			}
			return tw.Flush()
		},
	}
}

func searchCmd(h *appHolder) *cobra.Command {
	var journalRef string
	var archived bool
	cmd := &cobra.Command{
		Use:   "search <text...>",
		Short: "Find entries containing text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			_, s, err := a.data(cmd.Context())
			if err != nil {
				return err
			}
			opts := journal.SearchOptions{IncludeArchived: archived}
			if journalRef != "" {
				j, err := findJournal(s, journalRef)
				if err != nil {
					return err
				}
				opts.JournalID = j.ID
			}
			hits := s.SearchEntries(strings.Join(args, " "), opts)
			if len(hits) == 0 {
				fmt.Fprintln(a.Out, "No matches.")
				return nil
			}
			return printEntries(a.Out, s, hits)
		},
	}
	cmd.Flags().StringVarP(&journalRef, "journal", "j", "", "only this journal")
	cmd.Flags().BoolVarP(&archived, "archived", "a", false, "include archived entries")
	return cmd
}

func onCmd(h *appHolder) *cobra.Command {
	return &cobra.Command{
		Use:   "on [YYYY-MM-DD]",
		Short: "Show what you wrote on a day (today by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			_, s, err := a.data(cmd.Context())
			if err != nil {
				return err
			}
			day := s.Today()
			if len(args) == 1 {
				day = args[0]
			}
			entries := s.EntriesOn(day)
			if len(entries) == 0 {
				fmt.Fprintf(a.Out, "Nothing written on %s.\n", day)
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(a.Out, "── %s  %s\n%s\n\n", short(e.ID), e.Lifecycle.State(), strings.TrimSpace(e.Content))
			}
			return nil
		},
	}
}

func calendarCmd(h *appHolder) *cobra.Command {
	return &cobra.Command{
		Use:     "calendar [YYYY-MM]",
		Aliases: []string{"cal"},
		Short:   "Show a month with the days you wrote marked",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			_, s, err := a.data(cmd.Context())
			if err != nil {
				return err
			}
			month, err := time.ParseInLocation("2006-01", s.Today()[:7], a.Location)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if month, err = time.ParseInLocation("2006-01", args[0], a.Location); err != nil {
					return fmt.Errorf("month must be YYYY-MM: %w", err)
				}
			}
			renderMonth(a, month, s.CalendarMonth(month.Year(), month.Month()))
			return nil
		},
	}
}

func renderMonth(a *App, month time.Time, counts map[string]int) {
	fmt.Fprintf(a.Out, "%s\n Mo  Tu  We  Th  Fr  Sa  Su\n", month.Format("January 2006"))
	offset := (int(month.Weekday()) + 6) % 7
	fmt.Fprint(a.Out, strings.Repeat("    ", offset))
	days := month.AddDate(0, 1, -1).Day()
	for d := 1; d <= days; d++ {
		mark := " "
		if counts[month.AddDate(0, 0, d-1).Format("2006-01-02")] > 0 {
			mark = "*"
		}
		fmt.Fprintf(a.Out, "%3d%s", d, mark)
		if (offset+d)%7 == 0 {
			fmt.Fprintln(a.Out)
		}
	}
	if (offset+days)%7 != 0 {
		fmt.Fprintln(a.Out)
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	fmt.Fprintf(a.Out, "%d entries on %d days\n", total, len(counts))
}

func statsCmd(h *appHolder) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Streaks and counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			_, s, err := a.data(cmd.Context())
			if err != nil {
				return err
			}
			st := s.DashboardStats()
			tw := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "Current streak\t%d days\n", st.CurrentStreak)
			fmt.Fprintf(tw, "Longest streak\t%d days\n", st.LongestStreak)
			fmt.Fprintf(tw, "Written today\t%s\n", yesNo(st.HasTodayEntry))
			fmt.Fprintf(tw, "Entries\t%d (%d archived, %d in trash)\n", st.TotalEntries, st.ArchivedCount, st.TrashedCount)
			fmt.Fprintf(tw, "This week\t%d\n", st.EntriesThisWeek)
			fmt.Fprintf(tw, "This month\t%d\n", st.EntriesThisMonth)
			fmt.Fprintf(tw, "Days written\t%d\n", st.DaysWritten)
			if st.MostRecentEntryDate != "" {
				fmt.Fprintf(tw, "Last entry\t%s\n", st.MostRecentEntryDate)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if len(st.RecentEntries) > 0 {
				fmt.Fprintln(a.Out, "\nRecent:")
				return printEntries(a.Out, s, st.RecentEntries)
			}
			return nil
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func cleanupCmd(h *appHolder) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Purge trashed entries older than 30 days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			_, s, err := a.data(cmd.Context())
			if err != nil {
				return err
			}
			n, err := s.CleanupOldTrashedEntries(cmd.Context())
			fmt.Fprintf(a.Out, "Purged %d old entries.\n", n)
			return a.check(err)
		},
	}
}
