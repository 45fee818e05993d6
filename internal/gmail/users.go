package gmail

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	gmailapi "google.golang.org/api/gmail/v1"
)

// UsersService covers the mailbox-level endpoints: profile and history.
type UsersService struct {
	c *Client
}

// Profile returns the mailbox address and its current history id.
func (s *UsersService) Profile(ctx context.Context) (*gmailapi.Profile, error) {
	var p gmailapi.Profile
	if err := s.c.Do(ctx, http.MethodGet, "profile", nil, nil, &p); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// HistoryPage returns one page of changes recorded after startHistoryID.
func (s *UsersService) HistoryPage(ctx context.Context, startHistoryID uint64, pageToken string) (*gmailapi.ListHistoryResponse, error) {
	q := url.Values{"startHistoryId": {strconv.FormatUint(startHistoryID, 10)}}
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}
	var resp gmailapi.ListHistoryResponse
	if err := s.c.Do(ctx, http.MethodGet, "history", q, nil, &resp); err != nil {
		return nil, fmt.Errorf("list history since %d: %w", startHistoryID, err)
	}
	return &resp, nil
}

// History follows every page of changes after startHistoryID. It returns the
// records in server order and the mailbox's latest history id.
func (s *UsersService) History(ctx context.Context, startHistoryID uint64) ([]*gmailapi.History, uint64, error) {
	var latest uint64
	records, err := collect(ctx, ListOptions{}, func(ctx context.Context, o ListOptions) ([]*gmailapi.History, string, error) {
		resp, err := s.HistoryPage(ctx, startHistoryID, o.PageToken)
		if err != nil {
			return nil, "", err
		}
		latest = resp.HistoryId
		return resp.History, resp.NextPageToken, nil
	})
	if err != nil {
		return nil, 0, err
	}
	return records, latest, nil
}
