package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/lu-zhengda/gmailwrapper/internal/domain"
	"github.com/lu-zhengda/gmailwrapper/internal/gmail"
	"github.com/spf13/cobra"
	gmailapi "google.golang.org/api/gmail/v1"
)

func newLabelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Manage labels",
	}
	cmd.AddCommand(newLabelsListCmd())
	cmd.AddCommand(newLabelsCreateCmd())
	cmd.AddCommand(newLabelsDeleteCmd())
	return cmd
}

func newLabelsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List labels with message counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWrapper()
			if err != nil {
				return err
			}
			defer w.Close()

			// The list endpoint omits counts; each label is fetched for them.
			refs, err := w.Labels.List(cmd.Context())
			if err != nil {
				return err
			}
			labels := make([]domain.Label, 0, len(refs))
			for _, ref := range refs {
				full, err := w.Labels.Get(cmd.Context(), ref.Id)
				if err != nil {
					return err
				}
				labels = append(labels, gmail.MapLabel(full, ""))
			}

			out := cmd.OutOrStdout()
			if jsonFlag {
				return fprintJSON(out, toJSONLabels(labels))
			}
			if len(labels) == 0 {
				fmt.Fprintln(out, "No labels found.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTYPE\tTOTAL\tUNREAD")
			for _, l := range labels {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", l.ID, l.Name, l.Type, l.Total, l.Unread)
			}
			return tw.Flush()
		},
	}
}

func newLabelsCreateCmd() *cobra.Command {
	var hideFlag bool

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a user label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWrapper()
			if err != nil {
				return err
			}
			defer w.Close()

			label := &gmailapi.Label{
				Name:                  args[0],
				LabelListVisibility:   "labelShow",
				MessageListVisibility: "show",
			}
			if hideFlag {
				label.LabelListVisibility = "labelHide"
			}
			created, err := w.Labels.Create(cmd.Context(), label)
			if err != nil {
				return err
			}
			return printAction(cmd.OutOrStdout(), jsonAction{Action: "create_label", ID: created.Id},
				fmt.Sprintf("Label %q created (%s).", created.Name, created.Id))
		},
	}
	cmd.Flags().BoolVar(&hideFlag, "hide", false, "hide the label from the label list")
	return cmd
}

func newLabelsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <label-id>",
		Short: "Delete a user label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWrapper()
			if err != nil {
				return err
			}
			defer w.Close()

			if err := w.Labels.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return printAction(cmd.OutOrStdout(), jsonAction{Action: "delete_label", ID: args[0]},
				fmt.Sprintf("Label %s deleted.", args[0]))
		},
	}
}
