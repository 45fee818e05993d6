// Package app holds the services that combine the Gmail API with the local
// cache.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lu-zhengda/gmailwrapper/internal/domain"
	"github.com/lu-zhengda/gmailwrapper/internal/gmail"
	"github.com/lu-zhengda/gmailwrapper/internal/logging"
	"github.com/lu-zhengda/gmailwrapper/internal/store"
	gmailapi "google.golang.org/api/gmail/v1"
)

const pageSize = 100

// SyncResult counts what a sync run changed in the cache.
type SyncResult struct {
	Full     bool
	Labels   int
	Added    int
	Deleted  int
	Modified int
}

// SyncService mirrors one mailbox into a store.Store.
type SyncService struct {
	api          *gmail.Service
	store        store.Store
	mailbox      string
	initialCount int
	log          *slog.Logger
	now          func() time.Time
}

// NewSyncService returns a SyncService for mailbox. initialCount bounds how
// many messages a full sync fetches.
func NewSyncService(api *gmail.Service, s store.Store, mailbox string, initialCount int, logger *slog.Logger) *SyncService {
	return &SyncService{
		api:          api,
		store:        s,
		mailbox:      mailbox,
		initialCount: initialCount,
		log:          logging.WithOperation(logging.OrDefault(logger), "sync").With(logging.Mailbox(mailbox)),
		now:          time.Now,
	}
}

// InitialSync replaces the cached labels and fetches up to count of the most
// recent messages. The history id is taken before fetching so changes made
// while it runs are picked up by the next IncrementalSync.
func (s *SyncService) InitialSync(ctx context.Context, count int) (*SyncResult, error) {
	profile, err := s.api.Users.Profile(ctx)
	if err != nil {
		return nil, err
	}

	res := &SyncResult{Full: true}
	if res.Labels, err = s.syncLabels(ctx); err != nil {
		return nil, err
	}

	var pageToken string
	for res.Added < count {
		page, err := s.api.Messages.List(ctx, gmail.ListOptions{
			PageToken:  pageToken,
			MaxResults: min(pageSize, count-res.Added),
		})
		if err != nil {
			return nil, fmt.Errorf("fetched %d messages so far: %w", res.Added, err)
		}
		for _, m := range page.Messages {
			if err := s.fetch(ctx, m.Id); err != nil {
				return nil, err
			}
			res.Added++
		}
		s.log.Debug("fetched page", "messages", res.Added, "limit", count)

		if page.NextPageToken == "" || len(page.Messages) == 0 {
			break
		}
		pageToken = page.NextPageToken
	}

	if err := s.saveState(ctx, profile.HistoryId); err != nil {
		return nil, err
	}
	s.log.Info("initial sync complete", "labels", res.Labels, "messages", res.Added)
	return res, nil
}

// IncrementalSync applies the changes recorded since the last sync. Without
// a stored history id, or when Gmail no longer has history that old, it
// clears the cache and runs InitialSync instead.
func (s *SyncService) IncrementalSync(ctx context.Context) (*SyncResult, error) {
	state, err := s.store.GetSyncState(ctx, s.mailbox)
	if err != nil {
		return nil, err
	}
	if state.HistoryID == 0 {
		s.log.Info("no history id stored, running initial sync")
		return s.InitialSync(ctx, s.initialCount)
	}

	records, latest, err := s.api.Users.History(ctx, state.HistoryID)
	if gmail.IsNotFound(err) {
		s.log.Warn("history expired, running initial sync", "history_id", state.HistoryID)
		if err := s.store.PurgeMailbox(ctx, s.mailbox); err != nil {
			return nil, err
		}
		return s.InitialSync(ctx, s.initialCount)
	}
	if err != nil {
		return nil, err
	}

	res := &SyncResult{}
	for _, h := range records {
		if err := s.apply(ctx, h, res); err != nil {
			return nil, err
		}
	}
	if res.Labels, err = s.syncLabels(ctx); err != nil {
		return nil, err
	}
	if latest == 0 {
		latest = state.HistoryID
	}
	if err := s.saveState(ctx, latest); err != nil {
		return nil, err
	}
	s.log.Info("incremental sync complete",
		"added", res.Added, "deleted", res.Deleted, "modified", res.Modified, "history_id", latest)
	return res, nil
}

func (s *SyncService) apply(ctx context.Context, h *gmailapi.History, res *SyncResult) error {
	for _, a := range h.MessagesAdded {
		if err := s.fetch(ctx, a.Message.Id); err != nil {
			return err
		}
		res.Added++
	}
	for _, d := range h.MessagesDeleted {
		if err := s.store.DeleteEmail(ctx, s.mailbox, d.Message.Id); err != nil {
			return err
		}
		res.Deleted++
	}
	// The message in a label change carries its full current label set.
	var relabeled []*gmailapi.Message
	for _, l := range h.LabelsAdded {
		relabeled = append(relabeled, l.Message)
	}
	for _, l := range h.LabelsRemoved {
		relabeled = append(relabeled, l.Message)
	}
	for _, m := range relabeled {
		err := s.store.SetEmailLabels(ctx, s.mailbox, m.Id, m.LabelIds)
		if errors.Is(err, store.ErrNotFound) {
			err = s.fetch(ctx, m.Id)
		}
		if err != nil {
			return err
		}
		res.Modified++
	}
	return nil
}

// fetch downloads one message and stores it. A message deleted before it
// could be fetched is dropped from the cache.
func (s *SyncService) fetch(ctx context.Context, id string) error {
	msg, err := s.api.Messages.Get(ctx, id)
	if gmail.IsNotFound(err) {
		s.log.Debug("message vanished before fetch", "id", id)
		return s.store.DeleteEmail(ctx, s.mailbox, id)
	}
	if err != nil {
		return err
	}
	return s.store.UpsertEmail(ctx, s.mailbox, gmail.MapMessage(msg))
}

func (s *SyncService) syncLabels(ctx context.Context) (int, error) {
	labels, err := s.api.Labels.List(ctx)
	if err != nil {
		return 0, err
	}
	mapped := make([]domain.Label, 0, len(labels))
	for _, l := range labels {
		mapped = append(mapped, gmail.MapLabel(l, s.mailbox))
	}
	if err := s.store.ReplaceLabels(ctx, s.mailbox, mapped); err != nil {
		return 0, err
	}
	return len(mapped), nil
}

func (s *SyncService) saveState(ctx context.Context, historyID uint64) error {
	return s.store.SetSyncState(ctx, &store.SyncState{
		Mailbox:   s.mailbox,
		HistoryID: historyID,
		LastSync:  s.now().UTC(),
	})
}
