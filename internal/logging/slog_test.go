package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestErr(t *testing.T) {
	if got := Err(nil); got.Key != "" {
		t.Errorf("Err(nil).Key = %q, want empty group", got.Key)
	}
	got := Err(errors.New("boom"))
	if got.Key != KeyError || got.Value.String() != "boom" {
		t.Errorf("Err(boom) = %v, want %s=boom", got, KeyError)
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"empty", "", "<empty>"},
		{"short", "abc", "[token:3 chars]"},
		{"bearer", "ya29.a0AfH6SMBx", "[token:15 chars]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeToken(tt.token)
			if got != tt.want {
				t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, got, tt.want)
			}
			if tt.token != "" && strings.Contains(got, tt.token) {
				t.Errorf("SanitizeToken(%q) leaked token content", tt.token)
			}
		})
	}
}

func TestNew_Verbose(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug record written without verbose: %q", buf.String())
	}

	New(&buf, true).Debug("shown", Status(401), Method("GET"))
	out := buf.String()
	for _, want := range []string{"shown", "status=401", "method=GET"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestWithOperation(t *testing.T) {
	var buf bytes.Buffer
	l := WithOperation(slog.New(slog.NewTextHandler(&buf, nil)), "refresh")
	l.Info("done", Err(nil))
	out := buf.String()
	if !strings.Contains(out, "operation=refresh") {
		t.Errorf("output %q missing operation attribute", out)
	}
	if strings.Contains(out, "error=") {
		t.Errorf("nil error should be omitted, got %q", out)
	}
}
