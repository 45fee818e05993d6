package domain

import (
	"slices"
	"time"
)

// Thread is a conversation. Built from messages it carries them oldest
// first; a list summary leaves Messages empty and fills the summary fields.
type Thread struct {
	ID        string
	Subject   string
	Messages  []Email
	Labels    []string
	Snippet   string
	LastDate  time.Time
	HistoryID uint64

	FromAddress Address
	TotalCount  int
	HasUnread   bool
}

// NewThread derives a thread from its messages, which must be sorted oldest
// first. Subject and sender come from the first message, snippet and date
// from the last. Labels are the union in first-seen order.
func NewThread(id string, messages []Email) *Thread {
	t := &Thread{ID: id, Messages: messages, TotalCount: len(messages)}
	if len(messages) == 0 {
		return t
	}
	first, last := messages[0], messages[len(messages)-1]
	t.Subject = first.Subject
	t.FromAddress = first.From
	t.Snippet = last.Snippet
	t.LastDate = last.Date
	for _, m := range messages {
		t.HistoryID = max(t.HistoryID, m.HistoryID)
		for _, l := range m.Labels {
			if !slices.Contains(t.Labels, l) {
				t.Labels = append(t.Labels, l)
			}
		}
	}
	return t
}

func (t *Thread) MessageCount() int {
	if len(t.Messages) > 0 {
		return len(t.Messages)
	}
	return t.TotalCount
}

func (t *Thread) IsUnread() bool {
	if len(t.Messages) == 0 {
		return t.HasUnread
	}
	for i := range t.Messages {
		if !t.Messages[i].IsRead {
			return true
		}
	}
	return false
}

// HasLabel reports whether any message in the thread carries label.
func (t *Thread) HasLabel(label string) bool {
	return slices.Contains(t.Labels, label)
}
