package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/lu-zhengda/gmailwrapper/internal/auth"
	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the stored OAuth token",
	}
	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authorize access through the browser consent flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWrapper()
			if err != nil {
				return err
			}
			defer w.Close()

			if _, err := w.Auth.Login(cmd.Context()); err != nil {
				return err
			}
			mailbox, err := w.Mailbox(cmd.Context())
			if err != nil {
				return err
			}
			return printAction(cmd.OutOrStdout(), jsonAction{Action: "login", ID: mailbox},
				fmt.Sprintf("Logged in as %s.", mailbox))
		},
	}
}

func newAuthStatusCmd() *cobra.Command {
	var checkFlag bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWrapper()
			if err != nil {
				return err
			}
			defer w.Close()

			status := jsonAuthStatus{}
			st, err := w.Auth.Stored()
			switch {
			case errors.Is(err, auth.ErrNoToken):
			case err != nil:
				return err
			default:
				status.LoggedIn = true
				status.HasRefreshToken = st.Token.RefreshToken != ""
				status.Scopes = st.Scopes
				if !st.Token.Expiry.IsZero() {
					status.Expiry = st.Token.Expiry.Format(time.RFC3339)
				}
			}
			if status.LoggedIn && checkFlag {
				if status.Mailbox, err = w.Mailbox(cmd.Context()); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if jsonFlag {
				return fprintJSON(out, status)
			}
			if !status.LoggedIn {
				fmt.Fprintf(out, "Not logged in. Run 'gmailwrapper auth login'. (token: %s)\n", w.Config().TokenPath())
				return nil
			}
			fmt.Fprintf(out, "Token: %s\n", w.Config().TokenPath())
			if status.Mailbox != "" {
				fmt.Fprintf(out, "Mailbox: %s\n", status.Mailbox)
			}
			if status.Expiry != "" {
				fmt.Fprintf(out, "Expiry: %s\n", status.Expiry)
			}
			fmt.Fprintf(out, "Refresh token: %t\n", status.HasRefreshToken)
			return nil
		},
	}
	cmd.Flags().BoolVar(&checkFlag, "check", false, "verify the token against the Gmail profile endpoint")
	return cmd
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWrapper()
			if err != nil {
				return err
			}
			defer w.Close()

			if err := w.Auth.Logout(); err != nil && !errors.Is(err, auth.ErrNoToken) {
				return err
			}
			return printAction(cmd.OutOrStdout(), jsonAction{Action: "logout"}, "Logged out.")
		},
	}
}
