package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lu-zhengda/gmailwrapper/internal/domain"
	"github.com/lu-zhengda/gmailwrapper/internal/store"
)

const emailColumns = `e.id, e.thread_id, e.from_addr, e.from_name, e.to_addrs, e.cc_addrs,
	e.subject, e.snippet, e.body_text, e.body_html, e.date, e.is_read, e.is_starred,
	e.in_reply_to, e.history_id, e.size_estimate, e.attachments`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanEmail reads one row selected with emailColumns.
func scanEmail(row rowScanner) (domain.Email, error) {
	var (
		e                       domain.Email
		toJSON, ccJSON, attJSON string
		dateMillis              int64
	)
	if err := row.Scan(
		&e.ID, &e.ThreadID, &e.From.Email, &e.From.Name, &toJSON, &ccJSON,
		&e.Subject, &e.Snippet, &e.Body, &e.BodyHTML, &dateMillis, &e.IsRead, &e.IsStarred,
		&e.InReplyTo, &e.HistoryID, &e.SizeEstimate, &attJSON,
	); err != nil {
		return e, err
	}
	e.Date = time.UnixMilli(dateMillis).UTC()
	for _, f := range []struct {
		raw  string
		dest any
	}{{toJSON, &e.To}, {ccJSON, &e.CC}, {attJSON, &e.Attachments}} {
		if err := json.Unmarshal([]byte(f.raw), f.dest); err != nil {
			return e, fmt.Errorf("failed to decode email %s: %w", e.ID, err)
		}
	}
	return e, nil
}

func marshalList(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return "[]", nil
	}
	return string(data), nil
}

// UpsertEmail inserts or updates an email and replaces its label set.
func (s *DB) UpsertEmail(ctx context.Context, mailbox string, email *domain.Email) error {
	toJSON, err := marshalList(email.To)
	if err != nil {
		return fmt.Errorf("failed to marshal To addresses: %w", err)
	}
	ccJSON, err := marshalList(email.CC)
	if err != nil {
		return fmt.Errorf("failed to marshal CC addresses: %w", err)
	}
	attJSON, err := marshalList(email.Attachments)
	if err != nil {
		return fmt.Errorf("failed to marshal attachments: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO emails (mailbox, id, thread_id, from_addr, from_name, to_addrs, cc_addrs,
			subject, snippet, body_text, body_html, date, is_read, is_starred, in_reply_to,
			history_id, size_estimate, attachments)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(mailbox, id) DO UPDATE SET
			thread_id     = excluded.thread_id,
			from_addr     = excluded.from_addr,
			from_name     = excluded.from_name,
			to_addrs      = excluded.to_addrs,
			cc_addrs      = excluded.cc_addrs,
			subject       = excluded.subject,
			snippet       = excluded.snippet,
			body_text     = excluded.body_text,
			body_html     = excluded.body_html,
			date          = excluded.date,
			is_read       = excluded.is_read,
			is_starred    = excluded.is_starred,
			in_reply_to   = excluded.in_reply_to,
			history_id    = excluded.history_id,
			size_estimate = excluded.size_estimate,
			attachments   = excluded.attachments`,
		mailbox, email.ID, email.ThreadID,
		email.From.Email, email.From.Name, toJSON, ccJSON,
		email.Subject, email.Snippet, email.Body, email.BodyHTML,
		email.Date.UnixMilli(), email.IsRead, email.IsStarred, email.InReplyTo,
		email.HistoryID, email.SizeEstimate, attJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert email %s: %w", email.ID, err)
	}
	if err := replaceLabels(ctx, tx, mailbox, email.ID, email.Labels); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit email upsert: %w", err)
	}
	return nil
}

func replaceLabels(ctx context.Context, tx *sql.Tx, mailbox, emailID string, labelIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM email_labels WHERE mailbox = ? AND email_id = ?`,
		mailbox, emailID); err != nil {
		return fmt.Errorf("failed to delete email labels: %w", err)
	}
	for _, labelID := range labelIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO email_labels (mailbox, email_id, label_id) VALUES (?, ?, ?)`,
			mailbox, emailID, labelID); err != nil {
			return fmt.Errorf("failed to insert email label: %w", err)
		}
	}
	return nil
}

// GetEmail retrieves a single cached email, including its labels.
func (s *DB) GetEmail(ctx context.Context, mailbox, id string) (*domain.Email, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+emailColumns+` FROM emails e WHERE e.mailbox = ? AND e.id = ?`, mailbox, id)
	e, err := scanEmail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("email %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get email %s: %w", id, err)
	}
	emails := []domain.Email{e}
	if err := s.attachLabels(ctx, mailbox, emails); err != nil {
		return nil, err
	}
	return &emails[0], nil
}

// ListEmails returns cached emails newest first, optionally filtered by label.
func (s *DB) ListEmails(ctx context.Context, opts store.ListEmailOptions) ([]domain.Email, error) {
	query := `SELECT ` + emailColumns + ` FROM emails e`
	args := []any{}
	if opts.LabelID != "" {
		query += ` JOIN email_labels el ON el.mailbox = e.mailbox AND el.email_id = e.id AND el.label_id = ?`
		args = append(args, opts.LabelID)
	}
	query += ` WHERE e.mailbox = ? ORDER BY e.date DESC`
	args = append(args, opts.Mailbox)
	query, args = paginate(query, args, opts)

	emails, err := s.queryEmails(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}
	if err := s.attachLabels(ctx, opts.Mailbox, emails); err != nil {
		return nil, err
	}
	return emails, nil
}

func paginate(query string, args []any, opts store.ListEmailOptions) (string, []any) {
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}
	return query, args
}

// queryEmails runs query and scans every row. The rows are closed before it
// returns so callers may issue follow-up queries.
func (s *DB) queryEmails(ctx context.Context, query string, args ...any) ([]domain.Email, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []domain.Email
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

// attachLabels fills Labels for each email with a single query.
func (s *DB) attachLabels(ctx context.Context, mailbox string, emails []domain.Email) error {
	if len(emails) == 0 {
		return nil
	}
	index := make(map[string]int, len(emails))
	args := []any{mailbox}
	for i, e := range emails {
		index[e.ID] = i
		args = append(args, e.ID)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(emails)), ",")

	rows, err := s.db.QueryContext(ctx,
		`SELECT email_id, label_id FROM email_labels
		WHERE mailbox = ? AND email_id IN (`+placeholders+`)
		ORDER BY email_id, label_id`, args...)
	if err != nil {
		return fmt.Errorf("failed to query email labels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var emailID, labelID string
		if err := rows.Scan(&emailID, &labelID); err != nil {
			return fmt.Errorf("failed to scan email label: %w", err)
		}
		if i, ok := index[emailID]; ok {
			emails[i].Labels = append(emails[i].Labels, labelID)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate email labels: %w", err)
	}
	return nil
}

// DeleteEmail removes an email and its labels.
func (s *DB) DeleteEmail(ctx context.Context, mailbox, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM emails WHERE mailbox = ? AND id = ?`, mailbox, id); err != nil {
		return fmt.Errorf("failed to delete email %s: %w", id, err)
	}
	return nil
}

// SetEmailLabels replaces the label set of an email and keeps the read and
// starred flags in step with UNREAD and STARRED.
func (s *DB) SetEmailLabels(ctx context.Context, mailbox, emailID string, labelIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	read, starred := domain.LabelFlags(labelIDs)
	res, err := tx.ExecContext(ctx, `UPDATE emails SET is_read = ?, is_starred = ? WHERE mailbox = ? AND id = ?`,
		read, starred, mailbox, emailID)
	if err != nil {
		return fmt.Errorf("failed to update email %s flags: %w", emailID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("email %s: %w", emailID, store.ErrNotFound)
	}
	if err := replaceLabels(ctx, tx, mailbox, emailID, labelIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit label update: %w", err)
	}
	return nil
}

// PurgeMailbox deletes every cached row belonging to mailbox.
func (s *DB) PurgeMailbox(ctx context.Context, mailbox string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"email_labels", "emails", "labels", "sync_state"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE mailbox = ?`, mailbox); err != nil {
			return fmt.Errorf("failed to purge %s for %s: %w", table, mailbox, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit purge: %w", err)
	}
	return nil
}
