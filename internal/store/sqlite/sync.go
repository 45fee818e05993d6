package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lu-zhengda/gmailwrapper/internal/store"
)

// GetSyncState returns the sync state of mailbox. A mailbox that was never
// synced yields a zero state with Mailbox set.
func (s *DB) GetSyncState(ctx context.Context, mailbox string) (*store.SyncState, error) {
	state := store.SyncState{Mailbox: mailbox}
	var lastSync int64
	err := s.db.QueryRowContext(ctx,
		`SELECT history_id, last_sync FROM sync_state WHERE mailbox = ?`, mailbox,
	).Scan(&state.HistoryID, &lastSync)
	if errors.Is(err, sql.ErrNoRows) {
		return &state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state for %s: %w", mailbox, err)
	}
	if lastSync > 0 {
		state.LastSync = time.Unix(lastSync, 0).UTC()
	}
	return &state, nil
}

// SetSyncState inserts or updates the sync state of a mailbox.
func (s *DB) SetSyncState(ctx context.Context, state *store.SyncState) error {
	var lastSync int64
	if !state.LastSync.IsZero() {
		lastSync = state.LastSync.Unix()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (mailbox, history_id, last_sync)
		VALUES (?, ?, ?)
		ON CONFLICT(mailbox) DO UPDATE SET
			history_id = excluded.history_id,
			last_sync  = excluded.last_sync`,
		state.Mailbox, state.HistoryID, lastSync,
	)
	if err != nil {
		return fmt.Errorf("failed to set sync state for %s: %w", state.Mailbox, err)
	}
	return nil
}
