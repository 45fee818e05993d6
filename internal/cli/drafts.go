package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/lu-zhengda/gmailwrapper/internal/gmail"
	"github.com/spf13/cobra"
	gmailapi "google.golang.org/api/gmail/v1"
)

func newDraftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Manage drafts",
	}
	cmd.AddCommand(newDraftsListCmd())
	cmd.AddCommand(newDraftsGetCmd())
	cmd.AddCommand(newDraftsCreateCmd())
	cmd.AddCommand(newDraftsUpdateCmd())
	cmd.AddCommand(newDraftsDeleteCmd())
	cmd.AddCommand(newDraftsSendCmd())
	return cmd
}

func newDraftsListCmd() *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List drafts",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWrapper()
			if err != nil {
				return err
			}
			defer w.Close()

			drafts, err := w.GetDrafts(cmd.Context(), true)
			if err != nil {
				return err
			}
			if limitFlag > 0 && len(drafts) > limitFlag {
				drafts = drafts[:limitFlag]
			}
			if jsonFlag {
				return fprintJSON(cmd.OutOrStdout(), toJSONDrafts(drafts))
			}
			return printDraftTable(cmd.OutOrStdout(), drafts)
		},
	}
	cmd.Flags().IntVar(&limitFlag, "limit", 0, "max drafts to show (0 for all)")
	return cmd
}

func printDraftTable(out io.Writer, drafts []*gmailapi.Draft) error {
	if len(drafts) == 0 {
		_, err := fmt.Fprintln(out, "No drafts.")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DRAFT_ID\tTO\tSUBJECT")
	for _, d := range drafts {
		var to, subject string
		if d.Message != nil {
			e := gmail.MapMessage(d.Message)
			to, subject = joinAddresses(e.To), e.Subject
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Id, truncate(to, 40), truncate(subject, 50))
	}
	return tw.Flush()
}

func newDraftsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <draft-id>",
		Short: "Show a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWrapper()
			if err != nil {
				return err
			}
			defer w.Close()

			d, err := w.GetDraft(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonFlag {
				return fprintJSON(out, toJSONDraft(d))
			}
			fmt.Fprintf(out, "Draft ID: %s\n", d.Id)
			if d.Message != nil {
				printMessage(out, gmail.MapMessage(d.Message))
			}
			return nil
		},
	}
}

func newDraftsCreateCmd() *cobra.Command {
	var flags composeFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Save a new draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWrapper()
			if err != nil {
				return err
			}
			defer w.Close()

			msg, err := flags.build(cmd, w)
			if err != nil {
				return err
			}
			d, err := w.CreateDraft(cmd.Context(), msg)
			if err != nil {
				return err
			}
			return printAction(cmd.OutOrStdout(), jsonAction{Action: "create_draft", ID: d.Id},
				fmt.Sprintf("Draft saved (%s).", d.Id))
		},
	}
	flags.register(cmd)
	return cmd
}

func newDraftsUpdateCmd() *cobra.Command {
	var flags composeFlags

	cmd := &cobra.Command{
		Use:   "update <draft-id>",
		Short: "Replace the content of a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWrapper()
			if err != nil {
				return err
			}
			defer w.Close()

			msg, err := flags.build(cmd, w)
			if err != nil {
				return err
			}
			d, err := w.UpdateDraft(cmd.Context(), args[0], msg)
			if err != nil {
				return err
			}
			return printAction(cmd.OutOrStdout(), jsonAction{Action: "update_draft", ID: d.Id},
				fmt.Sprintf("Draft updated (%s).", d.Id))
		},
	}
	flags.register(cmd)
	return cmd
}

func newDraftsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <draft-id>...",
		Short: "Delete drafts permanently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWrapper()
			if err != nil {
				return err
			}
			defer w.Close()

			for _, id := range args {
				if err := w.DeleteDraft(cmd.Context(), id); err != nil {
					return err
				}
				if err := printAction(cmd.OutOrStdout(), jsonAction{Action: "delete_draft", ID: id},
					fmt.Sprintf("Draft %s deleted.", id)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newDraftsSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <draft-id>",
		Short: "Send a saved draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWrapper()
			if err != nil {
				return err
			}
			defer w.Close()

			sent, err := w.Drafts.Send(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printAction(cmd.OutOrStdout(), jsonAction{Action: "send_draft", ID: sent.Id, ThreadID: sent.ThreadId},
				fmt.Sprintf("Draft sent as message %s.", sent.Id))
		},
	}
}
