package cli

import (
	"time"

	"github.com/lu-zhengda/gmailwrapper/internal/domain"
	"github.com/lu-zhengda/gmailwrapper/internal/gmail"
	gmailapi "google.golang.org/api/gmail/v1"
)

// ---------------------------------------------------------------------------
// Thread JSON types (threads list)
// ---------------------------------------------------------------------------

type jsonThread struct {
	ID           string      `json:"id"`
	Subject      string      `json:"subject"`
	From         jsonAddress `json:"from"`
	LastDate     string      `json:"last_date"`
	MessageCount int         `json:"message_count"`
	HasUnread    bool        `json:"has_unread"`
	Snippet      string      `json:"snippet,omitempty"`
	Labels       []string    `json:"labels,omitempty"`
}

func toJSONThreads(threads []domain.Thread) []jsonThread {
	out := make([]jsonThread, 0, len(threads))
	for _, t := range threads {
		out = append(out, jsonThread{
			ID:           t.ID,
			Subject:      t.Subject,
			From:         toJSONAddress(t.FromAddress),
			LastDate:     formatDate(t.LastDate),
			MessageCount: t.MessageCount(),
			HasUnread:    t.IsUnread(),
			Snippet:      t.Snippet,
			Labels:       t.Labels,
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// Thread detail JSON type (threads get)
// ---------------------------------------------------------------------------

type jsonThreadDetail struct {
	ID       string        `json:"id"`
	Subject  string        `json:"subject"`
	Messages []jsonMessage `json:"messages"`
}

type jsonMessage struct {
	ID          string           `json:"id"`
	ThreadID    string           `json:"thread_id"`
	From        jsonAddress      `json:"from"`
	To          []jsonAddress    `json:"to,omitempty"`
	CC          []jsonAddress    `json:"cc,omitempty"`
	Subject     string           `json:"subject"`
	Snippet     string           `json:"snippet,omitempty"`
	Body        string           `json:"body"`
	Date        string           `json:"date"`
	IsRead      bool             `json:"is_read"`
	IsStarred   bool             `json:"is_starred"`
	Labels      []string         `json:"labels,omitempty"`
	Attachments []jsonAttachment `json:"attachments,omitempty"`
}

// jsonRawMessage is the message source as returned by messages get --raw.
type jsonRawMessage struct {
	ID      string              `json:"id"`
	Headers map[string][]string `json:"headers"`
	Body    string              `json:"body"`
}

type jsonAttachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

func toJSONThreadDetail(t *domain.Thread) jsonThreadDetail {
	msgs := make([]jsonMessage, 0, len(t.Messages))
	for _, m := range t.Messages {
		msgs = append(msgs, toJSONMessage(&m))
	}
	return jsonThreadDetail{
		ID:       t.ID,
		Subject:  t.Subject,
		Messages: msgs,
	}
}

func toJSONMessage(e *domain.Email) jsonMessage {
	m := jsonMessage{
		ID:        e.ID,
		ThreadID:  e.ThreadID,
		From:      toJSONAddress(e.From),
		To:        toJSONAddresses(e.To),
		CC:        toJSONAddresses(e.CC),
		Subject:   e.Subject,
		Snippet:   e.Snippet,
		Body:      e.Body,
		Date:      formatDate(e.Date),
		IsRead:    e.IsRead,
		IsStarred: e.IsStarred,
		Labels:    e.Labels,
	}
	for _, a := range e.Attachments {
		m.Attachments = append(m.Attachments, jsonAttachment(a))
	}
	return m
}

// ---------------------------------------------------------------------------
// Email JSON type (messages list, search results)
// ---------------------------------------------------------------------------

type jsonEmail struct {
	ID       string      `json:"id"`
	ThreadID string      `json:"thread_id,omitempty"`
	From     jsonAddress `json:"from"`
	Subject  string      `json:"subject"`
	Date     string      `json:"date"`
	IsRead   bool        `json:"is_read"`
}

func toJSONEmails(emails []domain.Email) []jsonEmail {
	out := make([]jsonEmail, 0, len(emails))
	for _, e := range emails {
		out = append(out, jsonEmail{
			ID:       e.ID,
			ThreadID: e.ThreadID,
			From:     toJSONAddress(e.From),
			Subject:  e.Subject,
			Date:     formatDate(e.Date),
			IsRead:   e.IsRead,
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// Draft JSON type (drafts)
// ---------------------------------------------------------------------------

type jsonDraft struct {
	ID      string      `json:"id"`
	Message jsonMessage `json:"message"`
}

func toJSONDrafts(drafts []*gmailapi.Draft) []jsonDraft {
	out := make([]jsonDraft, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, toJSONDraft(d))
	}
	return out
}

func toJSONDraft(d *gmailapi.Draft) jsonDraft {
	out := jsonDraft{ID: d.Id}
	if d.Message != nil {
		out.Message = toJSONMessage(gmail.MapMessage(d.Message))
	}
	return out
}

// ---------------------------------------------------------------------------
// Label JSON type (labels)
// ---------------------------------------------------------------------------

type jsonLabel struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Total  int64  `json:"total,omitempty"`
	Unread int64  `json:"unread,omitempty"`
}

func toJSONLabels(labels []domain.Label) []jsonLabel {
	out := make([]jsonLabel, 0, len(labels))
	for _, l := range labels {
		out = append(out, jsonLabel{
			ID:     l.ID,
			Name:   l.Name,
			Type:   string(l.Type),
			Total:  l.Total,
			Unread: l.Unread,
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// Address JSON type (shared)
// ---------------------------------------------------------------------------

type jsonAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

func toJSONAddress(a domain.Address) jsonAddress {
	return jsonAddress{Name: a.Name, Email: a.Email}
}

func toJSONAddresses(addrs []domain.Address) []jsonAddress {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]jsonAddress, len(addrs))
	for i, a := range addrs {
		out[i] = toJSONAddress(a)
	}
	return out
}

// ---------------------------------------------------------------------------
// Auth status JSON type (auth status)
// ---------------------------------------------------------------------------

type jsonAuthStatus struct {
	LoggedIn        bool     `json:"logged_in"`
	Mailbox         string   `json:"mailbox,omitempty"`
	Expiry          string   `json:"expiry,omitempty"`
	HasRefreshToken bool     `json:"has_refresh_token"`
	Scopes          []string `json:"scopes,omitempty"`
}

// ---------------------------------------------------------------------------
// Sync JSON type (sync)
// ---------------------------------------------------------------------------

type jsonSyncResult struct {
	Mailbox  string `json:"mailbox"`
	Full     bool   `json:"full"`
	Labels   int    `json:"labels"`
	Added    int    `json:"added"`
	Deleted  int    `json:"deleted"`
	Modified int    `json:"modified"`
}

// ---------------------------------------------------------------------------
// Action JSON type (send, trash, untrash, modify, delete, etc.)
// ---------------------------------------------------------------------------

type jsonAction struct {
	OK       bool   `json:"ok"`
	Action   string `json:"action"`
	ID       string `json:"id,omitempty"`
	ThreadID string `json:"thread_id,omitempty"`
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
