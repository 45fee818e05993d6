package cli

import (
	"fmt"
	"strings"

	"github.com/lu-zhengda/gmailwrapper"
	"github.com/lu-zhengda/gmailwrapper/internal/app"
	"github.com/lu-zhengda/gmailwrapper/internal/domain"
	"github.com/lu-zhengda/gmailwrapper/internal/logging"
	"github.com/lu-zhengda/gmailwrapper/internal/store"
	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	var fullFlag bool
	var countFlag int

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror the mailbox into the local cache",
		Long: "Fetch changes since the last sync into the local cache used by " +
			"'search' and 'threads list --cached'. The first run, or --full, " +
			"fetches the most recent messages instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWrapper()
			if err != nil {
				return err
			}
			defer w.Close()

			db, err := openCache(w)
			if err != nil {
				return err
			}
			defer db.Close()

			mailbox, err := w.Mailbox(cmd.Context())
			if err != nil {
				return err
			}
			count := w.Config().Cache.InitialCount
			if countFlag > 0 {
				count = countFlag
			}
			svc := app.NewSyncService(w.Service(), db, mailbox, count,
				logging.New(cmd.ErrOrStderr(), verboseFlag))

			var res *app.SyncResult
			if fullFlag {
				if err := db.PurgeMailbox(cmd.Context(), mailbox); err != nil {
					return err
				}
				res, err = svc.InitialSync(cmd.Context(), count)
			} else {
				res, err = svc.IncrementalSync(cmd.Context())
			}
			if err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonFlag {
				return fprintJSON(out, jsonSyncResult{
					Mailbox: mailbox, Full: res.Full, Labels: res.Labels,
					Added: res.Added, Deleted: res.Deleted, Modified: res.Modified,
				})
			}
			kind := "Incremental"
			if res.Full {
				kind = "Full"
			}
			fmt.Fprintf(out, "%s sync of %s: %d added, %d deleted, %d modified, %d labels.\n",
				kind, mailbox, res.Added, res.Deleted, res.Modified, res.Labels)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fullFlag, "full", false, "discard the cache and fetch again")
	cmd.Flags().IntVar(&countFlag, "count", 0, "messages to fetch on a full sync (defaults to cache.initial_count)")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the local cache",
		Long: "Full-text search across cached subjects, bodies, senders and snippets. " +
			"Run 'gmailwrapper sync' first.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWrapper()
			if err != nil {
				return err
			}
			defer w.Close()

			db, err := openCache(w)
			if err != nil {
				return err
			}
			defer db.Close()

			mailbox, err := w.Mailbox(cmd.Context())
			if err != nil {
				return err
			}
			emails, err := db.SearchEmails(cmd.Context(), mailbox, strings.Join(args, " "), limitFlag)
			if err != nil {
				return fmt.Errorf("failed to search: %w", err)
			}
			if jsonFlag {
				return fprintJSON(cmd.OutOrStdout(), toJSONEmails(emails))
			}
			return printEmailTable(cmd.OutOrStdout(), emails, "No results found.")
		},
	}
	cmd.Flags().IntVar(&limitFlag, "limit", 25, "max results to show")
	return cmd
}

// cachedThreads lists threads from the cache for the authenticated mailbox.
func cachedThreads(cmd *cobra.Command, w *gmailwrapper.Wrapper, label string, limit int) ([]domain.Thread, error) {
	db, err := openCache(w)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	mailbox, err := w.Mailbox(cmd.Context())
	if err != nil {
		return nil, err
	}
	threads, err := db.ListThreads(cmd.Context(), store.ListEmailOptions{
		Mailbox: mailbox,
		LabelID: label,
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list cached threads: %w", err)
	}
	return threads, nil
}
