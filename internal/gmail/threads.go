package gmail

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	gmailapi "google.golang.org/api/gmail/v1"
)

// ThreadsService operates on users.threads.
type ThreadsService struct {
	c *Client
}

func (s *ThreadsService) List(ctx context.Context, opts ListOptions) (*gmailapi.ListThreadsResponse, error) {
	var resp gmailapi.ListThreadsResponse
	if err := s.c.Do(ctx, http.MethodGet, "threads", opts.values(), nil, &resp); err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	return &resp, nil
}

func (s *ThreadsService) ListAll(ctx context.Context, opts ListOptions) ([]*gmailapi.Thread, error) {
	return collect(ctx, opts, func(ctx context.Context, o ListOptions) ([]*gmailapi.Thread, string, error) {
		resp, err := s.List(ctx, o)
		if err != nil {
			return nil, "", err
		}
		return resp.Threads, resp.NextPageToken, nil
	})
}

func (s *ThreadsService) ListDetailed(ctx context.Context, opts ListOptions) ([]*gmailapi.Thread, error) {
	stubs, err := s.ListAll(ctx, opts)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(stubs))
	for _, t := range stubs {
		ids = append(ids, t.Id)
	}
	return details(ctx, ids, s.Get)
}

// Get returns a thread with all of its messages in full format.
func (s *ThreadsService) Get(ctx context.Context, id string) (*gmailapi.Thread, error) {
	var t gmailapi.Thread
	q := url.Values{"format": {FormatFull}}
	if err := s.c.Do(ctx, http.MethodGet, "threads/"+escape(id), q, nil, &t); err != nil {
		return nil, fmt.Errorf("get thread %s: %w", id, err)
	}
	return &t, nil
}

// Update changes the labels on every message in a thread.
func (s *ThreadsService) Update(ctx context.Context, id string, req *gmailapi.ModifyThreadRequest) (*gmailapi.Thread, error) {
	var t gmailapi.Thread
	if err := s.c.Do(ctx, http.MethodPost, "threads/"+escape(id)+"/modify", nil, req, &t); err != nil {
		return nil, fmt.Errorf("update thread %s: %w", id, err)
	}
	return &t, nil
}

// Delete moves a thread to the trash.
func (s *ThreadsService) Delete(ctx context.Context, id string) (*gmailapi.Thread, error) {
	var t gmailapi.Thread
	if err := s.c.Do(ctx, http.MethodPost, "threads/"+escape(id)+"/trash", nil, nil, &t); err != nil {
		return nil, fmt.Errorf("trash thread %s: %w", id, err)
	}
	return &t, nil
}

// Undelete restores a thread from the trash.
func (s *ThreadsService) Undelete(ctx context.Context, id string) (*gmailapi.Thread, error) {
	var t gmailapi.Thread
	if err := s.c.Do(ctx, http.MethodPost, "threads/"+escape(id)+"/untrash", nil, nil, &t); err != nil {
		return nil, fmt.Errorf("untrash thread %s: %w", id, err)
	}
	return &t, nil
}

// Purge permanently deletes a thread.
func (s *ThreadsService) Purge(ctx context.Context, id string) error {
	if err := s.c.Do(ctx, http.MethodDelete, "threads/"+escape(id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete thread %s: %w", id, err)
	}
	return nil
}
