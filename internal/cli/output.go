package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/lu-zhengda/gmailwrapper/internal/domain"
)

// fprintJSON encodes v as indented JSON to w.
func fprintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// printAction reports a completed mutation, as JSON when --json is set.
func printAction(w io.Writer, a jsonAction, text string) error {
	a.OK = true
	if jsonFlag {
		return fprintJSON(w, a)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// sender prefers the display name over the address.
func sender(a domain.Address) string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}

func joinAddresses(addrs []domain.Address) string {
	parts := make([]string, len(addrs))
	for i, a := range addrs {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// readBody resolves a body flag, reading stdin when it is "-".
func readBody(r io.Reader, flag string) (string, error) {
	if flag != "-" {
		return flag, nil
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read body from stdin: %w", err)
	}
	return string(b), nil
}
