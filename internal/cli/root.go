package cli

import (
	"context"

	"github.com/spf13/cobra"

	"jotter/internal/config"
)

type appHolder struct{ app *App }

// NewRootCmd builds the command tree around an already wired app.
func NewRootCmd(app *App) *cobra.Command {
	return newRoot(&appHolder{app: app})
}

// Execute runs the CLI with args. The app is created from the client config
// before the first command runs.
func Execute(ctx context.Context, args []string) error {
	h := &appHolder{}
	root := newRoot(h)
	root.SetArgs(args)
	defer func() {
		if h.app != nil {
			h.app.Close()
		}
	}()
	return root.ExecuteContext(ctx)
}

func newRoot(h *appHolder) *cobra.Command {
	var configFile string
	root := &cobra.Command{
		Use:           "jotter",
		Short:         "Write and browse your journals from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if h.app != nil {
				return nil
			}
			cfg, err := config.LoadClient(configFile)
			if err != nil {
				return err
			}
			h.app, err = NewApp(cfg)
			return err
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default <user config dir>/jotter/config.yaml)")
	addCommands(root, h)
	return root
}

// addCommands registers every subcommand. The shell builds a fresh tree per
// line with it so flag values never leak between lines.
func addCommands(root *cobra.Command, h *appHolder) {
	root.AddCommand(
		registerCmd(h), loginCmd(h), logoutCmd(h), whoamiCmd(h), profileCmd(h),
		journalsCmd(h), entriesCmd(h),
		trashCmd(h), searchCmd(h), onCmd(h), calendarCmd(h), statsCmd(h), cleanupCmd(h),
		shellCmd(h),
	)
}
