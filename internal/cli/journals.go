package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"jotter/internal/gateway"
	"jotter/internal/journal"
	"jotter/internal/models"
)

const shortID = 8

func short(id string) string {
	if len(id) > shortID {
		return id[:shortID]
	}
	return id
}

// findJournal accepts a full id, a unique id prefix or a name.
func findJournal(s *journal.Store, ref string) (models.Journal, error) {
	if j, ok := s.Journal(ref); ok {
		return j, nil
	}
	var hits []models.Journal
	for _, j := range s.Journals() {
		if strings.EqualFold(j.Name, ref) {
			return j, nil
		}
		if strings.HasPrefix(j.ID, ref) {
			hits = append(hits, j)
		}
	}
	switch len(hits) {
	case 0:
		return models.Journal{}, fmt.Errorf("%w: %s", journal.ErrJournalNotFound, ref)
	case 1:
		return hits[0], nil
	}
	return models.Journal{}, fmt.Errorf("%q matches %d journals", ref, len(hits))
}

// pickJournal resolves the --journal flag, falling back to the current
// journal and then to the only journal there is.
func pickJournal(s *journal.Store, ref string) (models.Journal, error) {
	if ref != "" {
		return findJournal(s, ref)
	}
	if cur := s.CurrentJournal(); cur != nil {
		return *cur, nil
	}
	if js := s.Journals(); len(js) == 1 {
		return js[0], nil
	}
	return models.Journal{}, journal.ErrJournalRequired
}

func journalsCmd(h *appHolder) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "journals",
		Aliases: []string{"journal", "j"},
		Short:   "Manage journals",
	}
	cmd.AddCommand(journalsListCmd(h), journalsCreateCmd(h), journalsUpdateCmd(h), journalsDeleteCmd(h), journalsUseCmd(h))
	return cmd
}

func journalsListCmd(h *appHolder) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List journals with entry counts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			_, s, err := a.data(cmd.Context())
			if err != nil {
				return err
			}
			counts := s.JournalEntryCounts()
			cur := s.CurrentJournal()
			tw := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "\tID\tNAME\tCOLOR\tENTRIES")
			for _, j := range s.Journals() {
				mark := ""
				if cur != nil && cur.ID == j.ID {
					mark = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\t%d\n", mark, short(j.ID), j.Icon, j.Name, j.Color, counts[j.ID])
			}
			return tw.Flush()
		},
	}
}

func journalsCreateCmd(h *appHolder) *cobra.Command {
	var color, icon string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a journal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			u, s, err := a.data(cmd.Context())
			if err != nil {
				return err
			}
			j, err := s.CreateJournal(cmd.Context(), u.ID, strings.Join(args, " "), color, icon)
			if err != nil {
				return a.check(err)
			}
			fmt.Fprintf(a.Out, "Created journal %s (%s)\n", j.Name, short(j.ID))
			return nil
		},
	}
	cmd.Flags().StringVar(&color, "color", "", "#RRGGBB color")
	cmd.Flags().StringVar(&icon, "icon", "", "short icon, e.g. an emoji")
	return cmd
}

func journalsUpdateCmd(h *appHolder) *cobra.Command {
	var name, color, icon string
	cmd := &cobra.Command{
		Use:     "update <journal>",
		Aliases: []string{"rename"},
		Short:   "Change a journal's name, color or icon",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			_, s, err := a.data(cmd.Context())
			if err != nil {
				return err
			}
			j, err := findJournal(s, args[0])
			if err != nil {
				return err
			}
			var patch gateway.JournalPatch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("color") {
				patch.Color = &color
			}
			if cmd.Flags().Changed("icon") {
				patch.Icon = &icon
			}
			updated, err := s.UpdateJournal(cmd.Context(), j.ID, patch)
			if err != nil {
				return a.check(err)
			}
			fmt.Fprintf(a.Out, "Updated journal %s\n", updated.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&color, "color", "", "new #RRGGBB color")
	cmd.Flags().StringVar(&icon, "icon", "", "new icon")
	return cmd
}

func journalsDeleteCmd(h *appHolder) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <journal>",
		Short: "Delete a journal and all of its entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			_, s, err := a.data(cmd.Context())
			if err != nil {
				return err
			}
			j, err := findJournal(s, args[0])
			if err != nil {
				return err
			}
			if !yes {
				n := s.JournalEntryCounts()[j.ID]
				answer, err := a.prompt(fmt.Sprintf("Delete %q and its %d entries for good? [y/N]", j.Name, n))
				if err != nil {
					return err
				}
				if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
					fmt.Fprintln(a.Out, "Cancelled.")
					return nil
				}
			}
			if err := s.DeleteJournal(cmd.Context(), j.ID); err != nil {
				return a.check(err)
			}
			fmt.Fprintf(a.Out, "Deleted journal %s\n", j.Name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func journalsUseCmd(h *appHolder) *cobra.Command {
	return &cobra.Command{
		Use:   "use <journal>",
		Short: "Select the journal new entries go to (shell sessions)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			_, s, err := a.data(cmd.Context())
			if err != nil {
				return err
			}
			j, err := findJournal(s, args[0])
			if err != nil {
				return err
			}
			if err := s.SetCurrentJournal(j.ID); err != nil {
				return err
			}
			fmt.Fprintf(a.Out, "Using journal %s\n", j.Name)
			return nil
		},
	}
}
