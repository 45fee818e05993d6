package cli

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/lu-zhengda/gmailwrapper"
	"github.com/lu-zhengda/gmailwrapper/internal/domain"
	"github.com/lu-zhengda/gmailwrapper/internal/gmail"
	"github.com/spf13/cobra"
	gmailapi "google.golang.org/api/gmail/v1"
)

func newMessagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "messages",
		Aliases: []string{"msg"},
		Short:   "List, read, send and organize messages",
	}
	cmd.AddCommand(newMessagesListCmd())
	cmd.AddCommand(newMessagesGetCmd())
	cmd.AddCommand(newMessagesSendCmd())
	cmd.AddCommand(newMessagesTrashCmd(true))
	cmd.AddCommand(newMessagesTrashCmd(false))
	cmd.AddCommand(newMessagesModifyCmd())
	return cmd
}

func newMessagesListCmd() *cobra.Command {
	var queryFlag, labelFlag string
	var limitFlag int
	var allFlag bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List messages",
		Long:  "List messages matching a Gmail search query and labels, newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWrapper()
			if err != nil {
				return err
			}
			defer w.Close()

			opts := gmail.ListOptions{Query: queryFlag, LabelIDs: splitList(labelFlag), MaxResults: limitFlag}
			var refs []*gmailapi.Message
			if allFlag {
				opts.MaxResults = 0
				refs, err = w.Messages.ListAll(cmd.Context(), opts)
			} else {
				var page *gmailapi.ListMessagesResponse
				page, err = w.Messages.List(cmd.Context(), opts)
				if page != nil {
					refs = page.Messages
				}
			}
			if err != nil {
				return err
			}

			emails, err := fetchMetadata(cmd.Context(), w, refs)
			if err != nil {
				return err
			}
			if jsonFlag {
				return fprintJSON(cmd.OutOrStdout(), toJSONEmails(emails))
			}
			return printEmailTable(cmd.OutOrStdout(), emails, "No messages found.")
		},
	}

	cmd.Flags().StringVarP(&queryFlag, "query", "q", "", "Gmail search query (e.g. 'is:unread from:alice')")
	cmd.Flags().StringVar(&labelFlag, "label", "INBOX", "label ids, comma-separated (empty for all mail)")
	cmd.Flags().IntVar(&limitFlag, "limit", 25, "max messages to show")
	cmd.Flags().BoolVar(&allFlag, "all", false, "follow every page instead of stopping at --limit")
	return cmd
}

// fetchMetadata loads headers for each listed message, one request at a time.
func fetchMetadata(ctx context.Context, w *gmailwrapper.Wrapper, refs []*gmailapi.Message) ([]domain.Email, error) {
	emails := make([]domain.Email, 0, len(refs))
	for _, ref := range refs {
		msg, err := w.Messages.GetFormat(ctx, ref.Id, gmail.FormatMetadata)
		if err != nil {
			return nil, err
		}
		emails = append(emails, *gmail.MapMessage(msg))
	}
	return emails, nil
}

func printEmailTable(out io.Writer, emails []domain.Email, empty string) error {
	if len(emails) == 0 {
		_, err := fmt.Fprintln(out, empty)
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UNREAD\tFROM\tSUBJECT\tDATE\tID")
	for _, e := range emails {
		unread := " "
		if !e.IsRead {
			unread = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			unread,
			truncate(sender(e.From), 30),
			truncate(e.Subject, 50),
			e.Date.Format("Jan 2, 2006"),
			e.ID,
		)
	}
	return tw.Flush()
}

func newMessagesGetCmd() *cobra.Command {
	var rawFlag bool

	cmd := &cobra.Command{
		Use:   "get <message-id>",
		Short: "Show a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWrapper()
			if err != nil {
				return err
			}
			defer w.Close()

			if rawFlag {
				return printRawMessage(cmd, w, args[0])
			}
			msg, err := w.GetMessage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			email := gmail.MapMessage(msg)
			if jsonFlag {
				return fprintJSON(cmd.OutOrStdout(), toJSONMessage(email))
			}
			printMessage(cmd.OutOrStdout(), email)
			return nil
		},
	}

	cmd.Flags().BoolVar(&rawFlag, "raw", false, "show the message source: every header and the undecoded body")
	return cmd
}

func printRawMessage(cmd *cobra.Command, w *gmailwrapper.Wrapper, id string) error {
	msg, err := w.Messages.GetParsed(cmd.Context(), id)
	if err != nil {
		return err
	}
	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return fmt.Errorf("failed to read message body: %w", err)
	}
	if jsonFlag {
		return fprintJSON(cmd.OutOrStdout(), jsonRawMessage{ID: id, Headers: msg.Header, Body: string(body)})
	}

	out := cmd.OutOrStdout()
	keys := slices.Sorted(maps.Keys(msg.Header))
	for _, k := range keys {
		for _, v := range msg.Header[k] {
			fmt.Fprintf(out, "%s: %s\n", k, v)
		}
	}
	fmt.Fprintln(out)
	_, err = out.Write(body)
	return err
}

func printMessage(out io.Writer, msg *domain.Email) {
	fmt.Fprintf(out, "From: %s\n", msg.From)
	if len(msg.To) > 0 {
		fmt.Fprintf(out, "To: %s\n", joinAddresses(msg.To))
	}
	if len(msg.CC) > 0 {
		fmt.Fprintf(out, "CC: %s\n", joinAddresses(msg.CC))
	}
	fmt.Fprintf(out, "Subject: %s\n", msg.Subject)
	fmt.Fprintf(out, "Date: %s\n", msg.Date.Format("Mon, Jan 2 2006 3:04 PM"))
	if len(msg.Labels) > 0 {
		fmt.Fprintf(out, "Labels: %s\n", strings.Join(msg.Labels, ", "))
	}
	fmt.Fprintf(out, "Message ID: %s\n", msg.ID)
	for _, a := range msg.Attachments {
		fmt.Fprintf(out, "Attachment: %s (%s, %d bytes)\n", a.Filename, a.MIMEType, a.Size)
	}
	fmt.Fprintln(out)
	body := msg.Body
	if body == "" {
		body = msg.Snippet
	}
	fmt.Fprintln(out, body)
}

// composeFlags are shared by messages send and drafts create/update.
type composeFlags struct {
	to, cc, bcc, subject, body, html string
	threadID, inReplyTo              string
}

func (f *composeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.to, "to", "", "recipient addresses (comma-separated)")
	cmd.Flags().StringVar(&f.cc, "cc", "", "CC addresses (comma-separated)")
	cmd.Flags().StringVar(&f.bcc, "bcc", "", "BCC addresses (comma-separated)")
	cmd.Flags().StringVar(&f.subject, "subject", "", "subject")
	cmd.Flags().StringVar(&f.body, "body", "", "plain text body (use '-' to read from stdin)")
	cmd.Flags().StringVar(&f.html, "html", "", "HTML body")
	cmd.Flags().StringVar(&f.threadID, "thread", "", "thread id to add the message to")
	cmd.Flags().StringVar(&f.inReplyTo, "in-reply-to", "", "Message-ID header of the message being answered")
}

// build renders the flags into a message, appending the configured signature.
func (f *composeFlags) build(cmd *cobra.Command, w *gmailwrapper.Wrapper) (*gmailapi.Message, error) {
	body, err := readBody(cmd.InOrStdin(), f.body)
	if err != nil {
		return nil, err
	}
	return w.CreateMessage(gmailwrapper.Compose{
		To:         splitList(f.to),
		Cc:         splitList(f.cc),
		Bcc:        splitList(f.bcc),
		Subject:    f.subject,
		Text:       body,
		HTML:       f.html,
		ThreadID:   f.threadID,
		InReplyTo:  f.inReplyTo,
		References: f.inReplyTo,
	})
}

func newMessagesSendCmd() *cobra.Command {
	var flags composeFlags

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Compose and send a message",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.to == "" {
				return fmt.Errorf("--to is required")
			}
			w, err := newWrapper()
			if err != nil {
				return err
			}
			defer w.Close()

			msg, err := flags.build(cmd, w)
			if err != nil {
				return err
			}
			sent, err := w.SendMessage(cmd.Context(), msg)
			if err != nil {
				return err
			}
			return printAction(cmd.OutOrStdout(), jsonAction{Action: "send", ID: sent.Id, ThreadID: sent.ThreadId},
				fmt.Sprintf("Message sent (%s).", sent.Id))
		},
	}
	flags.register(cmd)
	return cmd
}

func newMessagesTrashCmd(trash bool) *cobra.Command {
	use, short, action := "trash", "Move messages to the trash", "trash"
	if !trash {
		use, short, action = "untrash", "Restore messages from the trash", "untrash"
	}
	return &cobra.Command{
		Use:   use + " <message-id>...",
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
					_, err = w.Messages.Delete(cmd.Context(), id)
				} else {
					_, err = w.Messages.Undelete(cmd.Context(), id)
				}
				if err != nil {
					return err
				}
				if err := printAction(cmd.OutOrStdout(), jsonAction{Action: action, ID: id},
					fmt.Sprintf("%s: %s", id, action)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newMessagesModifyCmd() *cobra.Command {
	var addFlag, removeFlag string

	cmd := &cobra.Command{
		Use:   "modify <message-id>",
		Short: "Add or remove labels on a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &gmailapi.ModifyMessageRequest{
				AddLabelIds:    splitList(addFlag),
				RemoveLabelIds: splitList(removeFlag),
			}
			if len(req.AddLabelIds) == 0 && len(req.RemoveLabelIds) == 0 {
				return fmt.Errorf("nothing to do: pass --add or --remove")
			}
			w, err := newWrapper()
			if err != nil {
				return err
			}
			defer w.Close()

			msg, err := w.UpdateMessage(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			return printAction(cmd.OutOrStdout(), jsonAction{Action: "modify", ID: msg.Id, ThreadID: msg.ThreadId},
				fmt.Sprintf("%s labels: %s", msg.Id, strings.Join(msg.LabelIds, ", ")))
		},
	}
	cmd.Flags().StringVar(&addFlag, "add", "", "label ids to add (comma-separated, e.g. STARRED)")
	cmd.Flags().StringVar(&removeFlag, "remove", "", "label ids to remove (comma-separated, e.g. UNREAD)")
	return cmd
}
