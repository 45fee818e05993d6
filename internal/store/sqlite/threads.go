package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lu-zhengda/gmailwrapper/internal/domain"
	"github.com/lu-zhengda/gmailwrapper/internal/store"
)

// GetThread assembles a cached thread with its messages oldest first.
func (s *DB) GetThread(ctx context.Context, mailbox, threadID string) (*domain.Thread, error) {
	messages, err := s.queryEmails(ctx,
		`SELECT `+emailColumns+` FROM emails e
		WHERE e.mailbox = ? AND e.thread_id = ?
		ORDER BY e.date ASC`, mailbox, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query thread %s: %w", threadID, err)
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("thread %s: %w", threadID, store.ErrNotFound)
	}
	if err := s.attachLabels(ctx, mailbox, messages); err != nil {
		return nil, err
	}

	return domain.NewThread(threadID, messages), nil
}

// ListThreads summarizes cached threads newest first. Messages is left empty;
// the summary fields carry what a listing needs.
func (s *DB) ListThreads(ctx context.Context, opts store.ListEmailOptions) ([]domain.Thread, error) {
	query := `
		SELECT e.thread_id,
			(SELECT e2.subject FROM emails e2 WHERE e2.mailbox = e.mailbox AND e2.thread_id = e.thread_id ORDER BY e2.date ASC LIMIT 1),
			(SELECT e2.from_name FROM emails e2 WHERE e2.mailbox = e.mailbox AND e2.thread_id = e.thread_id ORDER BY e2.date ASC LIMIT 1),
			(SELECT e2.from_addr FROM emails e2 WHERE e2.mailbox = e.mailbox AND e2.thread_id = e.thread_id ORDER BY e2.date ASC LIMIT 1),
			(SELECT e3.snippet FROM emails e3 WHERE e3.mailbox = e.mailbox AND e3.thread_id = e.thread_id ORDER BY e3.date DESC LIMIT 1),
			MAX(e.date) AS last_date,
			COUNT(*),
			MIN(e.is_read)
		FROM emails e`
	args := []any{}
	if opts.LabelID != "" {
		query += ` JOIN email_labels el ON el.mailbox = e.mailbox AND el.email_id = e.id AND el.label_id = ?`
		args = append(args, opts.LabelID)
	}
	query += ` WHERE e.mailbox = ? GROUP BY e.thread_id ORDER BY last_date DESC`
	args = append(args, opts.Mailbox)
	query, args = paginate(query, args, opts)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	var threads []domain.Thread
	for rows.Next() {
		var (
			t                                    domain.Thread
			subject, fromName, fromAddr, snippet sql.NullString
			lastDate                             int64
			allRead                              bool
		)
		if err := rows.Scan(&t.ID, &subject, &fromName, &fromAddr, &snippet, &lastDate, &t.TotalCount, &allRead); err != nil {
			return nil, fmt.Errorf("failed to scan thread row: %w", err)
		}
		t.Subject = subject.String
		t.Snippet = snippet.String
		t.FromAddress = domain.Address{Name: fromName.String, Email: fromAddr.String}
		t.LastDate = time.UnixMilli(lastDate).UTC()
		t.HasUnread = !allRead
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate threads: %w", err)
	}
	return threads, nil
}
