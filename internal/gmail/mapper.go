package gmail

import (
	"encoding/base64"
	"net/mail"
	"strings"
	"time"

	"github.com/lu-zhengda/gmailwrapper/internal/domain"
	gmailapi "google.golang.org/api/gmail/v1"
)

// MapMessage flattens a Gmail message into a domain Email. Messages fetched
// in minimal format map to an Email with only ids, labels and snippet set.
func MapMessage(msg *gmailapi.Message) *domain.Email {
	var h headerIndex
	if msg.Payload != nil {
		h = indexHeaders(msg.Payload.Headers)
	}
	text, htmlBody := extractBody(msg.Payload)

	e := &domain.Email{
		ID:           msg.Id,
		ThreadID:     msg.ThreadId,
		From:         parseAddress(h.get("From")),
		To:           parseAddressList(h.get("To")),
		CC:           parseAddressList(h.get("Cc")),
		BCC:          parseAddressList(h.get("Bcc")),
		Subject:      h.get("Subject"),
		Snippet:      msg.Snippet,
		Body:         text,
		BodyHTML:     htmlBody,
		Date:         parseDate(h.get("Date")),
		Attachments:  extractAttachments(msg.Payload),
		InReplyTo:    h.get("In-Reply-To"),
		HistoryID:    msg.HistoryId,
		SizeEstimate: msg.SizeEstimate,
	}
	e.SetLabels(msg.LabelIds)
	// Gmail's internalDate is authoritative when the Date header is missing or garbled.
	if e.Date.IsZero() && msg.InternalDate > 0 {
		e.Date = time.UnixMilli(msg.InternalDate).UTC()
	}
	return e
}

// MapThread maps a thread fetched in full format. The API's snippet and
// history id take precedence over the ones derived from the messages.
func MapThread(t *gmailapi.Thread) *domain.Thread {
	messages := make([]domain.Email, 0, len(t.Messages))
	for _, m := range t.Messages {
		messages = append(messages, *MapMessage(m))
	}
	thread := domain.NewThread(t.Id, messages)
	if t.Snippet != "" {
		thread.Snippet = t.Snippet
	}
	thread.HistoryID = max(thread.HistoryID, t.HistoryId)
	return thread
}

// MapLabel converts a Gmail label for the given mailbox.
func MapLabel(l *gmailapi.Label, mailbox string) domain.Label {
	labelType := domain.LabelTypeUser
	if l.Type == "system" {
		labelType = domain.LabelTypeSystem
	}
	color := ""
	if l.Color != nil {
		color = l.Color.BackgroundColor
	}
	return domain.Label{
		ID:      l.Id,
		Mailbox: mailbox,
		Name:    l.Name,
		Type:    labelType,
		Color:   color,
		Total:   l.MessagesTotal,
		Unread:  l.MessagesUnread,
	}
}

// headerIndex maps lower-cased header names to their first value.
type headerIndex map[string]string

func indexHeaders(headers []*gmailapi.MessagePartHeader) headerIndex {
	idx := make(headerIndex, len(headers))
	for _, h := range headers {
		key := strings.ToLower(h.Name)
		if _, ok := idx[key]; !ok {
			idx[key] = h.Value
		}
	}
	return idx
}

func (h headerIndex) get(name string) string {
	return h[strings.ToLower(name)]
}

// parseAddress parses an RFC 5322 address, falling back to a bare email.
func parseAddress(s string) domain.Address {
	s = strings.TrimSpace(s)
	if s == "" {
		return domain.Address{}
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return domain.Address{Email: s}
	}
	return domain.Address{Name: addr.Name, Email: addr.Address}
}

// parseAddressList parses a comma-separated address list. When the list as a
// whole is malformed each comma-separated piece is parsed on its own.
func parseAddressList(s string) []domain.Address {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parsed, err := mail.ParseAddressList(s)
	if err != nil {
		var addrs []domain.Address
		for _, p := range strings.Split(s, ",") {
			if a := parseAddress(p); a.Email != "" {
				addrs = append(addrs, a)
			}
		}
		return addrs
	}
	addrs := make([]domain.Address, 0, len(parsed))
	for _, a := range parsed {
		addrs = append(addrs, domain.Address{Name: a.Name, Email: a.Address})
	}
	return addrs
}

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC3339,
	"Mon, 02 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
}

// parseDate accepts the date layouts seen in real mail headers. Unparseable
// input yields the zero time.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := mail.ParseDate(s); err == nil {
		return t
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// extractBody walks the MIME tree and returns the first text/plain and
// text/html leaves.
func extractBody(part *gmailapi.MessagePart) (text, htmlBody string) {
	if part == nil {
		return "", ""
	}
	if len(part.Parts) > 0 {
		for _, p := range part.Parts {
			t, h := extractBody(p)
			if text == "" {
				text = t
			}
			if htmlBody == "" {
				htmlBody = h
			}
		}
		return text, htmlBody
	}
	if part.Filename != "" || part.Body == nil {
		return "", ""
	}
	switch part.MimeType {
	case "text/plain":
		return decodeBase64URL(part.Body.Data), ""
	case "text/html":
		return "", decodeBase64URL(part.Body.Data)
	}
	return "", ""
}

func extractAttachments(part *gmailapi.MessagePart) []domain.Attachment {
	if part == nil {
		return nil
	}
	var out []domain.Attachment
	var walk func(p *gmailapi.MessagePart)
	walk = func(p *gmailapi.MessagePart) {
		if p.Filename != "" && p.Body != nil {
			out = append(out, domain.Attachment{
				ID:       p.Body.AttachmentId,
				Filename: p.Filename,
				MIMEType: p.MimeType,
				Size:     p.Body.Size,
			})
		}
		for _, child := range p.Parts {
			walk(child)
		}
	}
	walk(part)
	return out
}

// decodeBase64URL decodes Gmail body data, which may or may not be padded.
func decodeBase64URL(s string) string {
	if s == "" {
		return ""
	}
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return ""
	}
	return string(data)
}
