package sqlite

import (
	"context"
	"fmt"

	"github.com/lu-zhengda/gmailwrapper/internal/domain"
)

const upsertLabelSQL = `
	INSERT INTO labels (mailbox, id, name, type, color, total, unread)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(mailbox, id) DO UPDATE SET
		name   = excluded.name,
		type   = excluded.type,
		color  = excluded.color,
		total  = excluded.total,
		unread = excluded.unread`

// UpsertLabel inserts or updates a label.
func (s *DB) UpsertLabel(ctx context.Context, label *domain.Label) error {
	_, err := s.db.ExecContext(ctx, upsertLabelSQL,
		label.Mailbox, label.ID, label.Name, label.Type, label.Color, label.Total, label.Unread)
	if err != nil {
		return fmt.Errorf("failed to upsert label %s: %w", label.ID, err)
	}
	return nil
}

// ReplaceLabels swaps the cached label set of mailbox for labels.
func (s *DB) ReplaceLabels(ctx context.Context, mailbox string, labels []domain.Label) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM labels WHERE mailbox = ?`, mailbox); err != nil {
		return fmt.Errorf("failed to clear labels: %w", err)
	}
	for _, l := range labels {
		if _, err := tx.ExecContext(ctx, upsertLabelSQL,
			mailbox, l.ID, l.Name, l.Type, l.Color, l.Total, l.Unread); err != nil {
			return fmt.Errorf("failed to insert label %s: %w", l.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit labels: %w", err)
	}
	return nil
}

// ListLabels returns the labels of mailbox, system labels first, then by name.
func (s *DB) ListLabels(ctx context.Context, mailbox string) ([]domain.Label, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mailbox, id, name, type, color, total, unread
		FROM labels WHERE mailbox = ?
		ORDER BY CASE type WHEN 'system' THEN 0 ELSE 1 END, name`, mailbox)
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	defer rows.Close()

	var labels []domain.Label
	for rows.Next() {
		var l domain.Label
		if err := rows.Scan(&l.Mailbox, &l.ID, &l.Name, &l.Type, &l.Color, &l.Total, &l.Unread); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		labels = append(labels, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate labels: %w", err)
	}
	return labels, nil
}
