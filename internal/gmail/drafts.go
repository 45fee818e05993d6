package gmail

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	gmailapi "google.golang.org/api/gmail/v1"
)

// DraftsService operates on users.drafts.
type DraftsService struct {
	c *Client
}

func (s *DraftsService) List(ctx context.Context, opts ListOptions) (*gmailapi.ListDraftsResponse, error) {
	var resp gmailapi.ListDraftsResponse
	if err := s.c.Do(ctx, http.MethodGet, "drafts", opts.values(), nil, &resp); err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	return &resp, nil
}

func (s *DraftsService) ListAll(ctx context.Context, opts ListOptions) ([]*gmailapi.Draft, error) {
	return collect(ctx, opts, func(ctx context.Context, o ListOptions) ([]*gmailapi.Draft, string, error) {
		resp, err := s.List(ctx, o)
		if err != nil {
			return nil, "", err
		}
		return resp.Drafts, resp.NextPageToken, nil
	})
}

func (s *DraftsService) ListDetailed(ctx context.Context, opts ListOptions) ([]*gmailapi.Draft, error) {
	stubs, err := s.ListAll(ctx, opts)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(stubs))
	for _, d := range stubs {
		ids = append(ids, d.Id)
	}
	return details(ctx, ids, s.Get)
}

func (s *DraftsService) Get(ctx context.Context, id string) (*gmailapi.Draft, error) {
	var d gmailapi.Draft
	q := url.Values{"format": {FormatFull}}
	if err := s.c.Do(ctx, http.MethodGet, "drafts/"+escape(id), q, nil, &d); err != nil {
		return nil, fmt.Errorf("get draft %s: %w", id, err)
	}
	return &d, nil
}

// Create saves msg as a new draft.
func (s *DraftsService) Create(ctx context.Context, msg *gmailapi.Message) (*gmailapi.Draft, error) {
	var d gmailapi.Draft
	if err := s.c.Do(ctx, http.MethodPost, "drafts", nil, &gmailapi.Draft{Message: msg}, &d); err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}
	return &d, nil
}

// Update replaces the content of a draft.
func (s *DraftsService) Update(ctx context.Context, id string, msg *gmailapi.Message) (*gmailapi.Draft, error) {
	var d gmailapi.Draft
	body := &gmailapi.Draft{Id: id, Message: msg}
	if err := s.c.Do(ctx, http.MethodPut, "drafts/"+escape(id), nil, body, &d); err != nil {
		return nil, fmt.Errorf("update draft %s: %w", id, err)
	}
	return &d, nil
}

// Delete removes a draft permanently. Drafts have no trash.
func (s *DraftsService) Delete(ctx context.Context, id string) error {
	if err := s.c.Do(ctx, http.MethodDelete, "drafts/"+escape(id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete draft %s: %w", id, err)
	}
	return nil
}

// Send sends an existing draft to its recipients.
func (s *DraftsService) Send(ctx context.Context, id string) (*gmailapi.Message, error) {
	var msg gmailapi.Message
	if err := s.c.Do(ctx, http.MethodPost, "drafts/send", nil, &gmailapi.Draft{Id: id}, &msg); err != nil {
		return nil, fmt.Errorf("send draft %s: %w", id, err)
	}
	return &msg, nil
}
