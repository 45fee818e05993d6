package store

import (
	"context"
	"errors"
	"time"

	"github.com/lu-zhengda/gmailwrapper/internal/domain"
)

// ErrNotFound is returned when a cached email or thread does not exist.
var ErrNotFound = errors.New("not found in cache")

// Store is a local mirror of one or more mailboxes. Every record is scoped by
// the mailbox address it was fetched from.
type Store interface {
	// Emails
	UpsertEmail(ctx context.Context, mailbox string, email *domain.Email) error
	GetEmail(ctx context.Context, mailbox, id string) (*domain.Email, error)
	ListEmails(ctx context.Context, opts ListEmailOptions) ([]domain.Email, error)
	DeleteEmail(ctx context.Context, mailbox, id string) error
	SetEmailLabels(ctx context.Context, mailbox, emailID string, labelIDs []string) error

	// Labels
	UpsertLabel(ctx context.Context, label *domain.Label) error
	ReplaceLabels(ctx context.Context, mailbox string, labels []domain.Label) error
	ListLabels(ctx context.Context, mailbox string) ([]domain.Label, error)

	// Threads
	GetThread(ctx context.Context, mailbox, threadID string) (*domain.Thread, error)
	ListThreads(ctx context.Context, opts ListEmailOptions) ([]domain.Thread, error)

	// Search
	SearchEmails(ctx context.Context, mailbox, query string, limit int) ([]domain.Email, error)

	// Sync state
	GetSyncState(ctx context.Context, mailbox string) (*SyncState, error)
	SetSyncState(ctx context.Context, state *SyncState) error

	// PurgeMailbox drops everything cached for mailbox.
	PurgeMailbox(ctx context.Context, mailbox string) error

	Close() error
}

// ListEmailOptions configures email and thread listing queries.
type ListEmailOptions struct {
	Mailbox string
	LabelID string
	Limit   int
	Offset  int
}

// SyncState records how far a mailbox has been mirrored. A zero HistoryID
// means no sync has completed.
type SyncState struct {
	Mailbox   string
	HistoryID uint64
	LastSync  time.Time
}
