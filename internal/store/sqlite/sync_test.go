package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/lu-zhengda/gmailwrapper/internal/store"
)

func TestSyncState(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	state, err := db.GetSyncState(ctx, mailbox)
	if err != nil {
		t.Fatalf("GetSyncState() error: %v", err)
	}
	if state.Mailbox != mailbox || state.HistoryID != 0 || !state.LastSync.IsZero() {
		t.Errorf("fresh state = %+v, want zero with mailbox set", state)
	}

	synced := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	for _, hid := range []uint64{12345, 12400} {
		if err := db.SetSyncState(ctx, &store.SyncState{Mailbox: mailbox, HistoryID: hid, LastSync: synced}); err != nil {
			t.Fatalf("SetSyncState(%d) error: %v", hid, err)
		}
	}

	state, err = db.GetSyncState(ctx, mailbox)
	if err != nil {
		t.Fatalf("GetSyncState() error: %v", err)
	}
	if state.HistoryID != 12400 {
		t.Errorf("HistoryID = %d, want 12400", state.HistoryID)
	}
	if !state.LastSync.Equal(synced) {
		t.Errorf("LastSync = %v, want %v", state.LastSync, synced)
	}
}
