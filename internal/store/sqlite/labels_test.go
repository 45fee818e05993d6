package sqlite

import (
	"context"
	"testing"

	"github.com/lu-zhengda/gmailwrapper/internal/domain"
)

func TestUpsertLabel(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	label := domain.Label{ID: "Label_1", Mailbox: mailbox, Name: "Work", Type: domain.LabelTypeUser, Color: "#16a765", Total: 10, Unread: 3}
	if err := db.UpsertLabel(ctx, &label); err != nil {
		t.Fatalf("UpsertLabel() error: %v", err)
	}
	label.Name = "Work stuff"
	label.Unread = 0
	if err := db.UpsertLabel(ctx, &label); err != nil {
		t.Fatalf("UpsertLabel() update error: %v", err)
	}

	labels, err := db.ListLabels(ctx, mailbox)
	if err != nil {
		t.Fatalf("ListLabels() error: %v", err)
	}
	if len(labels) != 1 {
		t.Fatalf("got %d labels, want 1", len(labels))
	}
	if labels[0] != label {
		t.Errorf("label = %+v, want %+v", labels[0], label)
	}
}

func TestReplaceLabels(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	stale := domain.Label{ID: "Label_old", Mailbox: mailbox, Name: "Old", Type: domain.LabelTypeUser}
	if err := db.UpsertLabel(ctx, &stale); err != nil {
		t.Fatal(err)
	}
	other := domain.Label{ID: "Label_x", Mailbox: "other@example.com", Name: "Theirs", Type: domain.LabelTypeUser}
	if err := db.UpsertLabel(ctx, &other); err != nil {
		t.Fatal(err)
	}

	err := db.ReplaceLabels(ctx, mailbox, []domain.Label{
		{ID: "Label_2", Name: "receipts", Type: domain.LabelTypeUser},
		{ID: "INBOX", Name: "INBOX", Type: domain.LabelTypeSystem, Total: 5},
		{ID: "Label_1", Name: "Archive", Type: domain.LabelTypeUser},
		{ID: "SENT", Name: "SENT", Type: domain.LabelTypeSystem},
	})
	if err != nil {
		t.Fatalf("ReplaceLabels() error: %v", err)
	}

	labels, err := db.ListLabels(ctx, mailbox)
	if err != nil {
		t.Fatalf("ListLabels() error: %v", err)
	}
	wantIDs := []string{"INBOX", "SENT", "Label_1", "Label_2"}
	if len(labels) != len(wantIDs) {
		t.Fatalf("got %d labels, want %d: %+v", len(labels), len(wantIDs), labels)
	}
	for i, id := range wantIDs {
		if labels[i].ID != id {
			t.Errorf("labels[%d].ID = %q, want %q", i, labels[i].ID, id)
		}
		if labels[i].Mailbox != mailbox {
			t.Errorf("labels[%d].Mailbox = %q, want %q", i, labels[i].Mailbox, mailbox)
		}
	}

	theirs, err := db.ListLabels(ctx, "other@example.com")
	if err != nil {
		t.Fatalf("ListLabels(other) error: %v", err)
	}
	if len(theirs) != 1 {
		t.Errorf("other mailbox labels = %d, want 1", len(theirs))
	}
}

func TestListLabels_Empty(t *testing.T) {
	db := newTestDB(t)
	labels, err := db.ListLabels(context.Background(), mailbox)
	if err != nil {
		t.Fatalf("ListLabels() error: %v", err)
	}
	if len(labels) != 0 {
		t.Errorf("got %d labels, want 0", len(labels))
	}
}
