package gmail

import (
	"context"
	"fmt"
	"net/http"

	gmailapi "google.golang.org/api/gmail/v1"
)

// LabelsService operates on users.labels. Label listing is not paginated.
type LabelsService struct {
	c *Client
}

func (s *LabelsService) List(ctx context.Context) ([]*gmailapi.Label, error) {
	var resp gmailapi.ListLabelsResponse
	if err := s.c.Do(ctx, http.MethodGet, "labels", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	return resp.Labels, nil
}

func (s *LabelsService) Get(ctx context.Context, id string) (*gmailapi.Label, error) {
	var l gmailapi.Label
	if err := s.c.Do(ctx, http.MethodGet, "labels/"+escape(id), nil, nil, &l); err != nil {
		return nil, fmt.Errorf("get label %s: %w", id, err)
	}
	return &l, nil
}

func (s *LabelsService) Create(ctx context.Context, label *gmailapi.Label) (*gmailapi.Label, error) {
	var l gmailapi.Label
	if err := s.c.Do(ctx, http.MethodPost, "labels", nil, label, &l); err != nil {
		return nil, fmt.Errorf("create label %q: %w", label.Name, err)
	}
	return &l, nil
}

func (s *LabelsService) Update(ctx context.Context, id string, label *gmailapi.Label) (*gmailapi.Label, error) {
	var l gmailapi.Label
	if err := s.c.Do(ctx, http.MethodPut, "labels/"+escape(id), nil, label, &l); err != nil {
		return nil, fmt.Errorf("update label %s: %w", id, err)
	}
	return &l, nil
}

func (s *LabelsService) Delete(ctx context.Context, id string) error {
	if err := s.c.Do(ctx, http.MethodDelete, "labels/"+escape(id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete label %s: %w", id, err)
	}
	return nil
}
