package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"jotter/internal/gateway"
	"jotter/internal/session"
)

func registerCmd(h *appHolder) *cobra.Command {
	var email, name string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			a.init()
			var err error
			if email == "" {
				if email, err = a.prompt("Email"); err != nil {
					return err
				}
			}
			if name == "" {
				if name, err = a.prompt("Display name"); err != nil {
					return err
				}
			}
			pw, err := a.password("Password")
			if err != nil {
				return err
			}
			u, err := a.session.Register(cmd.Context(), gateway.Registration{Email: email, Password: pw, DisplayName: name})
			if err != nil {
				return err
			}
			a.loaded = false
			fmt.Fprintf(a.Out, "Welcome, %s!\n", u.DisplayName)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func loginCmd(h *appHolder) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			a.init()
			var err error
			if email == "" {
				if email, err = a.prompt("Email"); err != nil {
					return err
				}
			}
			pw, err := a.password("Password")
			if err != nil {
				return err
			}
			u, err := a.session.Login(cmd.Context(), gateway.Credentials{Email: email, Password: pw})
			if err != nil {
				return err
			}
			a.loaded = false
			fmt.Fprintf(a.Out, "Signed in as %s.\n", u.DisplayName)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func logoutCmd(h *appHolder) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			a.init()
			a.session.Logout(cmd.Context())
			a.store.Reset()
			a.loaded = false
			fmt.Fprintln(a.Out, "Signed out.")
			return nil
		},
	}
}

func whoamiCmd(h *appHolder) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			u, err := a.user(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.Out, "%s <%s>\n", u.DisplayName, u.Email)
			return nil
		},
	}
}

// profileCmd also repairs accounts that signed in without a profile, so it
// talks to the backend directly instead of going through the session.
func profileCmd(h *appHolder) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <display name>",
		Short: "Create or rename your profile",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := h.app
			a.init()
			u, err := a.Backend.SaveProfile(cmd.Context(), strings.Join(args, " "))
			if errors.Is(err, gateway.ErrSessionExpired) {
				return ErrNotSignedIn
			}
			if err != nil {
				return err
			}
			a.session = session.NewManager(a.Backend, a.Storage, a.Log, session.Options{})
			fmt.Fprintf(a.Out, "Profile saved: %s\n", u.DisplayName)
			return nil
		},
	}
}
