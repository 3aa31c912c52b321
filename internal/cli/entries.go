package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"jotter/internal/gateway"
	"jotter/internal/journal"
	"jotter/internal/models"
)

const previewLen = 60

func preview(content string) string {
	text := strings.Join(strings.Fields(models.PlainText(content)), " ")
	if utf8.RuneCountInString(text) <= previewLen {
		return text
	}
	return string([]rune(text)[:previewLen-1]) + "…"
}

// findEntry accepts a full id or a unique prefix, trashed entries included.
func findEntry(s *journal.Store, ref string) (models.Entry, error) {
	if e, ok := s.Entry(ref); ok {
		return e, nil
	}
	all := append(s.Entries(journal.EntryQuery{IncludeArchived: true}), s.TrashedEntries("")...)
	var hits []models.Entry
	for _, e := range all {
		if strings.HasPrefix(e.ID, ref) {
			hits = append(hits, e)
		}
	}
	switch len(hits) {
	case 0:
		return models.Entry{}, fmt.Errorf("%w: %s", journal.ErrEntryNotFound, ref)
	case 1:
		return hits[0], nil
	}
	return models.Entry{}, fmt.Errorf("%q matches %d entries", ref, len(hits))
}

func printEntries(w io.Writer, s *journal.Store, entries []models.Entry) error {
	names := map[string]string{}
	for _, j := range s.Journals() {
		names[j.ID] = j.Name
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tJOURNAL\tSTATE\tTEXT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", short(e.ID), e.EntryDate, names[e.JournalID], e.Lifecycle.State(), preview(e.Content))
	}
	return tw.Flush()
}

func entriesCmd(h *appHolder) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entries",
		Aliases: []string{"entry", "e"},
		Short:   "Write and manage entries",
	}
	cmd.AddCommand(
		entriesListCmd(h), entriesAddCmd(h), entriesEditCmd(h),
		entriesArchiveCmd(h, true), entriesArchiveCmd(h, false),
		entriesDeleteCmd(h), entriesRecoverCmd(h), entriesPurgeCmd(h),
	)
	return cmd
}

func entriesListCmd(h *appHolder) *cobra.Command {
	var journalRef, from, to string
	var archived bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List entries, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			_, s, err := a.data(cmd.Context())
			if err != nil {
				return err
			}
			q := journal.EntryQuery{From: from, To: to, IncludeArchived: archived}
			if journalRef != "" {
				j, err := findJournal(s, journalRef)
				if err != nil {
					return err
				}
				q.JournalID = j.ID
			}
			return printEntries(a.Out, s, s.Entries(q))
		},
	}
	cmd.Flags().StringVarP(&journalRef, "journal", "j", "", "only this journal")
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().BoolVarP(&archived, "archived", "a", false, "include archived entries")
	return cmd
}

// readContent joins args, or reads stdin when the only arg is "-".
func readContent(a *App, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		a.init()
		b, err := io.ReadAll(a.reader)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	return strings.Join(args, " "), nil
}

func entriesAddCmd(h *appHolder) *cobra.Command {
	var journalRef, date string
	cmd := &cobra.Command{
		Use:   "add <text...|->",
		Short: "Write an entry (today unless --date is given)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			u, s, err := a.data(cmd.Context())
			if err != nil {
				return err
			}
			j, err := pickJournal(s, journalRef)
			if err != nil {
				return err
			}
			content, err := readContent(a, args)
			if err != nil {
				return err
			}
			e, err := s.CreateJournalEntry(cmd.Context(), gateway.NewEntry{
				UserID: u.ID, JournalID: j.ID, EntryDate: date, Content: content,
			})
			if err != nil {
				return a.check(err)
			}
			fmt.Fprintf(a.Out, "Saved %s to %s for %s\n", short(e.ID), j.Name, e.EntryDate)
			return nil
		},
	}
	cmd.Flags().StringVarP(&journalRef, "journal", "j", "", "journal id or name")
	cmd.Flags().StringVarP(&date, "date", "d", "", "entry day, YYYY-MM-DD")
	return cmd
}

func entriesEditCmd(h *appHolder) *cobra.Command {
	var journalRef, date, content string
	cmd := &cobra.Command{
		Use:   "edit <entry>",
		Short: "Change an entry's text, day or journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			_, s, err := a.data(cmd.Context())
			if err != nil {
				return err
			}
			e, err := findEntry(s, args[0])
			if err != nil {
				return err
			}
			var patch gateway.EntryPatch
			if cmd.Flags().Changed("content") {
				patch.Content = &content
			}
			if cmd.Flags().Changed("date") {
				patch.EntryDate = &date
			}
			if journalRef != "" {
				j, err := findJournal(s, journalRef)
				if err != nil {
					return err
				}
				patch.JournalID = &j.ID
			}
			if _, err := s.UpdateEntry(cmd.Context(), e.ID, patch); err != nil {
				return a.check(err)
			}
			fmt.Fprintf(a.Out, "Updated %s\n", short(e.ID))
			return nil
		},
	}
	cmd.Flags().StringVarP(&journalRef, "journal", "j", "", "move to this journal")
	cmd.Flags().StringVarP(&date, "date", "d", "", "new day, YYYY-MM-DD")
	cmd.Flags().StringVarP(&content, "content", "c", "", "new text")
	return cmd
}

func entriesArchiveCmd(h *appHolder, archive bool) *cobra.Command {
	use, desc, verb := "archive <entry>", "Hide an entry from the default views", "Archived"
	if !archive {
		use, desc, verb = "unarchive <entry>", "Bring an archived entry back", "Unarchived"
	}
	return &cobra.Command{
		Use:   use,
		Short: desc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			_, s, err := a.data(cmd.Context())
			if err != nil {
				return err
			}
			e, err := findEntry(s, args[0])
			if err != nil {
				return err
			}
			if archive {
				_, err = s.ArchiveEntry(cmd.Context(), e.ID)
			} else {
				_, err = s.UnarchiveEntry(cmd.Context(), e.ID)
			}
			if err != nil {
				return a.check(err)
			}
			fmt.Fprintf(a.Out, "%s %s\n", verb, short(e.ID))
			return nil
		},
	}
}

// resolveAll maps refs to entry ids, failing on the first unknown one.
func resolveAll(s *journal.Store, refs []string) ([]string, error) {
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		e, err := findEntry(s, r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, e.ID)
	}
	return ids, nil
}

func reportBulk(a *App, verb string, res journal.BulkResult) error {
	for _, id := range res.Succeeded {
		fmt.Fprintf(a.Out, "%s %s\n", verb, short(id))
	}
	if res.OK() {
		return nil
	}
	failed := make([]string, 0, len(res.Failed))
	var first error
	for id, err := range res.Failed {
		failed = append(failed, short(id))
		if first == nil {
			first = err
		}
	}
	sort.Strings(failed)
	return a.check(fmt.Errorf("%d of %d failed (%s): %w",
		len(res.Failed), len(res.Failed)+len(res.Succeeded), strings.Join(failed, ", "), first))
}

func entriesDeleteCmd(h *appHolder) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <entry>...",
		Aliases: []string{"rm"},
		Short:   "Move entries to the trash (recoverable for 30 days)",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			_, s, err := a.data(cmd.Context())
			if err != nil {
				return err
			}
			ids, err := resolveAll(s, args)
			if err != nil {
				return err
			}
			return reportBulk(a, "Trashed", s.BulkDeleteEntries(cmd.Context(), ids))
		},
	}
}

func entriesRecoverCmd(h *appHolder) *cobra.Command {
	return &cobra.Command{
		Use:     "recover <entry>...",
		Aliases: []string{"restore"},
		Short:   "Restore entries from the trash",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			_, s, err := a.data(cmd.Context())
			if err != nil {
				return err
			}
			ids, err := resolveAll(s, args)
			if err != nil {
				return err
			}
			return reportBulk(a, "Recovered", s.BulkRecoverEntries(cmd.Context(), ids))
		},
	}
}

func entriesPurgeCmd(h *appHolder) *cobra.Command {
	return &cobra.Command{
		Use:   "purge <entry>",
		Short: "Delete a trashed entry for good",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			_, s, err := a.data(cmd.Context())
			if err != nil {
				return err
			}
			e, err := findEntry(s, args[0])
			if err != nil {
				return err
			}
			if err := s.PermanentDeleteEntry(cmd.Context(), e.ID); err != nil {
				return a.check(err)
			}
			fmt.Fprintf(a.Out, "Purged %s\n", short(e.ID))
			return nil
		},
	}
}
