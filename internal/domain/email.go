package domain

import (
	"slices"
	"time"
)

type Address struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return a.Name + " <" + a.Email + ">"
}

type Attachment struct {
	ID       string
	Filename string
	MIMEType string
	Size     int64
}

// Email is the flattened view of a Gmail message used for display and the
// local cache.
type Email struct {
	ID           string
	ThreadID     string
	From         Address
	To           []Address
	CC           []Address
	BCC          []Address
	Subject      string
	Snippet      string
	Body         string
	BodyHTML     string
	Date         time.Time
	Labels       []string
	IsRead       bool
	IsStarred    bool
	Attachments  []Attachment
	InReplyTo    string
	HistoryID    uint64
	SizeEstimate int64
}

func (e *Email) HasLabel(label string) bool {
	return slices.Contains(e.Labels, label)
}

// SetLabels replaces the label set and derives IsRead and IsStarred from it.
func (e *Email) SetLabels(labels []string) {
	e.Labels = labels
	e.IsRead, e.IsStarred = LabelFlags(labels)
}

// LabelFlags reports the read and starred state a Gmail label set encodes:
// read unless UNREAD is present, starred when STARRED is.
func LabelFlags(labels []string) (read, starred bool) {
	return !slices.Contains(labels, LabelUnread), slices.Contains(labels, LabelStarred)
}
