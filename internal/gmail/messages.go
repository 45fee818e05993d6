package gmail

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"

	gmailapi "google.golang.org/api/gmail/v1"
)

const (
	FormatFull     = "full"
	FormatMetadata = "metadata"
	FormatMinimal  = "minimal"
	FormatRaw      = "raw"
)

// MessagesService operates on users.messages.
type MessagesService struct {
	c *Client
}

// List returns one page of message stubs (id and threadId only).
func (s *MessagesService) List(ctx context.Context, opts ListOptions) (*gmailapi.ListMessagesResponse, error) {
	var resp gmailapi.ListMessagesResponse
	if err := s.c.Do(ctx, http.MethodGet, "messages", opts.values(), nil, &resp); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return &resp, nil
}

// ListAll follows every page and returns all message stubs.
func (s *MessagesService) ListAll(ctx context.Context, opts ListOptions) ([]*gmailapi.Message, error) {
	return collect(ctx, opts, func(ctx context.Context, o ListOptions) ([]*gmailapi.Message, string, error) {
		resp, err := s.List(ctx, o)
		if err != nil {
			return nil, "", err
		}
		return resp.Messages, resp.NextPageToken, nil
	})
}

// ListDetailed lists every message and then fetches each in full.
func (s *MessagesService) ListDetailed(ctx context.Context, opts ListOptions) ([]*gmailapi.Message, error) {
	stubs, err := s.ListAll(ctx, opts)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(stubs))
	for _, m := range stubs {
		ids = append(ids, m.Id)
	}
	return details(ctx, ids, s.Get)
}

// Get returns a message in full format.
func (s *MessagesService) Get(ctx context.Context, id string) (*gmailapi.Message, error) {
	return s.GetFormat(ctx, id, FormatFull)
}

// GetFormat returns a message in the given format (full, metadata, minimal or raw).
func (s *MessagesService) GetFormat(ctx context.Context, id, format string) (*gmailapi.Message, error) {
	var msg gmailapi.Message
	q := url.Values{"format": {format}}
	if err := s.c.Do(ctx, http.MethodGet, "messages/"+escape(id), q, nil, &msg); err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	return &msg, nil
}

// GetParsed fetches the raw RFC 2822 form of a message and parses it.
func (s *MessagesService) GetParsed(ctx context.Context, id string) (*mail.Message, error) {
	msg, err := s.GetFormat(ctx, id, FormatRaw)
	if err != nil {
		return nil, err
	}
	return ParseRaw(msg.Raw)
}

// Send sends a message whose Raw field holds the encoded RFC 2822 text.
func (s *MessagesService) Send(ctx context.Context, msg *gmailapi.Message) (*gmailapi.Message, error) {
	var sent gmailapi.Message
	if err := s.c.Do(ctx, http.MethodPost, "messages/send", nil, msg, &sent); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return &sent, nil
}

// Create inserts a message into the mailbox without sending it.
func (s *MessagesService) Create(ctx context.Context, msg *gmailapi.Message) (*gmailapi.Message, error) {
	var created gmailapi.Message
	if err := s.c.Do(ctx, http.MethodPost, "messages", nil, msg, &created); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return &created, nil
}

// Update changes the labels on a message.
func (s *MessagesService) Update(ctx context.Context, id string, req *gmailapi.ModifyMessageRequest) (*gmailapi.Message, error) {
	var msg gmailapi.Message
	if err := s.c.Do(ctx, http.MethodPost, "messages/"+escape(id)+"/modify", nil, req, &msg); err != nil {
		return nil, fmt.Errorf("update message %s: %w", id, err)
	}
	return &msg, nil
}

// Delete moves a message to the trash.
func (s *MessagesService) Delete(ctx context.Context, id string) (*gmailapi.Message, error) {
	var msg gmailapi.Message
	if err := s.c.Do(ctx, http.MethodPost, "messages/"+escape(id)+"/trash", nil, nil, &msg); err != nil {
		return nil, fmt.Errorf("trash message %s: %w", id, err)
	}
	return &msg, nil
}

// Undelete restores a message from the trash.
func (s *MessagesService) Undelete(ctx context.Context, id string) (*gmailapi.Message, error) {
	var msg gmailapi.Message
	if err := s.c.Do(ctx, http.MethodPost, "messages/"+escape(id)+"/untrash", nil, nil, &msg); err != nil {
		return nil, fmt.Errorf("untrash message %s: %w", id, err)
	}
	return &msg, nil
}

// Purge permanently deletes a message, bypassing the trash.
func (s *MessagesService) Purge(ctx context.Context, id string) error {
	if err := s.c.Do(ctx, http.MethodDelete, "messages/"+escape(id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete message %s: %w", id, err)
	}
	return nil
}
