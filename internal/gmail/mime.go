package gmail

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"

	gmailapi "google.golang.org/api/gmail/v1"
)

// Compose describes an outgoing message.
type Compose struct {
	From       string
	To         []string
	Cc         []string
	Bcc        []string
	Subject    string
	Text       string
	HTML       string
	InReplyTo  string
	References string
	// ThreadID places the message in an existing thread.
	ThreadID string
}

// Builder turns Compose values into Gmail messages ready to send or save.
type Builder struct {
	// Signature is appended to both the text and HTML bodies.
	Signature string
}

// Build renders c as a multipart/alternative RFC 2822 message and returns it
// base64url-encoded in the Raw field.
func (b Builder) Build(c Compose) (*gmailapi.Message, error) {
	if len(c.To) == 0 {
		return nil, errors.New("message has no recipients")
	}
	text, htmlBody := c.Text, c.HTML
	if b.Signature != "" {
		text = text + "\n\n" + b.Signature
		if htmlBody != "" {
			htmlBody = htmlBody + "<br><br>" + strings.ReplaceAll(html.EscapeString(b.Signature), "\n", "<br>")
		}
	}

	var buf bytes.Buffer
	headers := [][2]string{
		{"From", c.From},
		{"To", strings.Join(c.To, ", ")},
		{"Cc", strings.Join(c.Cc, ", ")},
		{"Bcc", strings.Join(c.Bcc, ", ")},
		{"Subject", c.Subject},
		{"In-Reply-To", c.InReplyTo},
		{"References", c.References},
	}
	for _, h := range headers {
		if h[1] == "" {
			continue
		}
		if strings.ContainsAny(h[1], "\r\n") {
			return nil, fmt.Errorf("header %s contains a line break", h[0])
		}
		value := h[1]
		if h[0] == "Subject" {
			value = mime.QEncoding.Encode("utf-8", value)
		}
		fmt.Fprintf(&buf, "%s: %s\r\n", h[0], value)
	}

	mw := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\nContent-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())

	if err := writeTextPart(mw, "text/plain", text); err != nil {
		return nil, err
	}
	if htmlBody != "" {
		if err := writeTextPart(mw, "text/html", htmlBody); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	return &gmailapi.Message{
		Raw:      base64.URLEncoding.EncodeToString(buf.Bytes()),
		ThreadId: c.ThreadID,
	}, nil
}

func writeTextPart(mw *multipart.Writer, contentType, body string) error {
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {contentType + `; charset="UTF-8"`},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}
	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(body)); err != nil {
		return fmt.Errorf("failed to write %s part: %w", contentType, err)
	}
	return qp.Close()
}

// ParseRaw decodes a message's Raw field, padded or not, and parses the
// RFC 2822 text.
func ParseRaw(raw string) (*mail.Message, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "=")
	data, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err != nil {
		var stdErr error
		data, stdErr = base64.RawStdEncoding.DecodeString(trimmed)
		if stdErr != nil {
			return nil, fmt.Errorf("failed to decode raw message: %w", err)
		}
	}
	msg, err := mail.ReadMessage(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse raw message: %w", err)
	}
	return msg, nil
}
