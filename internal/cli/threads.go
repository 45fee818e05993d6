package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/lu-zhengda/gmailwrapper/internal/domain"
	"github.com/lu-zhengda/gmailwrapper/internal/gmail"
	"github.com/spf13/cobra"
)

func newThreadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threads",
		Short: "List, read and trash conversations",
	}
	cmd.AddCommand(newThreadsListCmd())
	cmd.AddCommand(newThreadsGetCmd())
	cmd.AddCommand(newThreadsTrashCmd(true))
	cmd.AddCommand(newThreadsTrashCmd(false))
	return cmd
}

func newThreadsListCmd() *cobra.Command {
	var queryFlag, labelFlag string
	var limitFlag int
	var cachedFlag bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List threads",
		Long: "List threads in a label (defaults to INBOX). With --cached the local " +
			"cache filled by 'gmailwrapper sync' is read instead of the API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWrapper()
			if err != nil {
				return err
			}
			defer w.Close()

			var threads []domain.Thread
			if cachedFlag {
				threads, err = cachedThreads(cmd, w, labelFlag, limitFlag)
			} else {
				page, lerr := w.Threads.List(cmd.Context(), gmail.ListOptions{
					Query:      queryFlag,
					LabelIDs:   splitList(labelFlag),
					MaxResults: limitFlag,
				})
				err = lerr
				if err == nil {
					for _, ref := range page.Threads {
						full, gerr := w.Threads.Get(cmd.Context(), ref.Id)
						if gerr != nil {
							return gerr
						}
						threads = append(threads, *gmail.MapThread(full))
					}
				}
			}
			if err != nil {
				return err
			}

			if jsonFlag {
				return fprintJSON(cmd.OutOrStdout(), toJSONThreads(threads))
			}
			return printThreadTable(cmd.OutOrStdout(), threads)
		},
	}

	cmd.Flags().StringVarP(&queryFlag, "query", "q", "", "Gmail search query (ignored with --cached)")
	cmd.Flags().StringVar(&labelFlag, "label", "INBOX", "label to list (INBOX, SENT, STARRED, TRASH, SPAM, DRAFT, or custom)")
	cmd.Flags().IntVar(&limitFlag, "limit", 25, "max threads to show")
	cmd.Flags().BoolVar(&cachedFlag, "cached", false, "read from the local cache")
	return cmd
}

func printThreadTable(out io.Writer, threads []domain.Thread) error {
	if len(threads) == 0 {
		_, err := fmt.Fprintln(out, "No threads found.")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UNREAD\tFROM\tSUBJECT\tDATE\tMSGS\tTHREAD_ID")
	for _, t := range threads {
		unread := " "
		if t.IsUnread() {
			unread = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			unread,
			truncate(sender(t.FromAddress), 30),
			truncate(t.Subject, 50),
			t.LastDate.Format("Jan 2, 2006"),
			t.MessageCount(), t.ID,
		)
	}
	return tw.Flush()
}

func newThreadsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <thread-id>",
		Short: "Show every message in a thread",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWrapper()
			if err != nil {
				return err
			}
			defer w.Close()

			full, err := w.GetThread(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			thread := gmail.MapThread(full)
			out := cmd.OutOrStdout()
			if jsonFlag {
				return fprintJSON(out, toJSONThreadDetail(thread))
			}

			fmt.Fprintf(out, "Subject: %s\n", thread.Subject)
			fmt.Fprintf(out, "Thread ID: %s\n", thread.ID)
			fmt.Fprintf(out, "Messages: %d\n", len(thread.Messages))
			for i := range thread.Messages {
				fmt.Fprintln(out, strings.Repeat("─", 60))
				printMessage(out, &thread.Messages[i])
			}
			return nil
		},
	}
}

func newThreadsTrashCmd(trash bool) *cobra.Command {
	use, short, action := "trash", "Move threads to the trash", "trash"
	if !trash {
		use, short, action = "untrash", "Restore threads from the trash", "untrash"
	}
	return &cobra.Command{
		Use:   use + " <thread-id>...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWrapper()
			if err != nil {
				return err
			}
			defer w.Close()

			for _, id := range args {
				if trash {
					err = w.DeleteThread(cmd.Context(), id)
				} else {
					err = w.UndeleteThread(cmd.Context(), id)
				}
				if err != nil {
					return err
				}
				if err := printAction(cmd.OutOrStdout(), jsonAction{Action: action, ThreadID: id},
					fmt.Sprintf("%s: %s", id, action)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
