package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lu-zhengda/gmailwrapper/internal/logging"
	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

// newTokenServer fakes Google's token endpoint and counts the calls it receives.
func newTokenServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  fmt.Sprintf("fresh-%d-%s", n, r.Form.Get("grant_type")),
			"refresh_token": "refresh-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func writeCredentials(t *testing.T, dir, tokenURI string) string {
	t.Helper()
	path := filepath.Join(dir, "credentials.json")
	body := fmt.Sprintf(`{"installed":{"client_id":"cid.apps.googleusercontent.com","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":%q,"redirect_uris":["http://localhost"]}}`, tokenURI)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestAuthenticator(t *testing.T, dir string) (*Authenticator, *FileTokenStore) {
	t.Helper()
	store := NewFileTokenStore(filepath.Join(dir, "token.json"))
	a := New(Options{
		CredentialsPath: filepath.Join(dir, "credentials.json"),
		Store:           store,
		Scopes:          []string{"https://www.googleapis.com/auth/gmail.modify"},
		FlowTimeout:     5 * time.Second,
		Logger:          logging.Discard(),
	})
	return a, store
}

func TestLoadCredentials(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		wantID  string
		wantErr bool
	}{
		{"installed client", `{"installed":{"client_id":"a","client_secret":"b"}}`, "a", false},
		{"web client", `{"web":{"client_id":"w","client_secret":"s","token_uri":"https://t"}}`, "w", false},
		{"malformed json", `{"installed":`, "", true},
		{"missing secret", `{"installed":{"client_id":"a"}}`, "", true},
		{"unknown section", `{"service_account":{}}`, "", true},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, fmt.Sprintf("creds-%d.json", i))
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			creds, err := LoadCredentials(path)
			if tt.wantErr {
				var credErr *CredentialsError
				if !errors.As(err, &credErr) {
					t.Fatalf("LoadCredentials() error = %v, want *CredentialsError", err)
				}
				if credErr.Path != path {
					t.Errorf("CredentialsError.Path = %q, want %q", credErr.Path, path)
				}
				if !errors.Is(err, ErrAuth) {
					t.Error("CredentialsError should match ErrAuth")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadCredentials() error: %v", err)
			}
			if creds.ClientID != tt.wantID {
				t.Errorf("ClientID = %q, want %q", creds.ClientID, tt.wantID)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCredentials(filepath.Join(dir, "nope.json"))
		var credErr *CredentialsError
		if !errors.As(err, &credErr) {
			t.Fatalf("error = %v, want *CredentialsError", err)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("error should wrap os.ErrNotExist, got %v", err)
		}
	})
}

func TestClientCredentials_Endpoint(t *testing.T) {
	creds := &ClientCredentials{ClientID: "a", ClientSecret: "b", TokenURI: "http://127.0.0.1:1/token"}
	ep := creds.Endpoint()
	if ep.TokenURL != "http://127.0.0.1:1/token" {
		t.Errorf("TokenURL = %q, want override", ep.TokenURL)
	}
	if ep.AuthURL == "" {
		t.Error("AuthURL should fall back to Google's endpoint")
	}
}

func TestFileTokenStore(t *testing.T) {
	dir := t.TempDir()
	store := NewFileTokenStore(filepath.Join(dir, "nested", "token.json"))

	if _, err := store.Load(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("Load() on empty store error = %v, want ErrNoToken", err)
	}

	expiry := time.Date(2026, 3, 1, 10, 30, 0, 123456000, time.UTC)
	in := &StoredToken{
		Token:        &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: expiry},
		ClientID:     "cid",
		ClientSecret: "secret",
		TokenURI:     "https://oauth2.googleapis.com/token",
		Scopes:       []string{"s1", "s2"},
	}
	if err := store.Save(in); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	info, err := os.Stat(store.Path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %o, want 600", perm)
	}

	out, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if out.Token.AccessToken != "access" || out.Token.RefreshToken != "refresh" {
		t.Errorf("Load() token = %+v", out.Token)
	}
	if !out.Token.Expiry.Equal(expiry) {
		t.Errorf("Expiry = %v, want %v", out.Token.Expiry, expiry)
	}
	if out.ClientID != "cid" || len(out.Scopes) != 2 {
		t.Errorf("Load() = %+v", out)
	}

	if err := store.Delete(); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := store.Delete(); err != nil {
		t.Fatalf("second Delete() error: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, ErrNoToken) {
		t.Errorf("Load() after Delete error = %v, want ErrNoToken", err)
	}
}

func TestDecodeToken(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		want    time.Time
	}{
		{
			name:    "python authorized user file",
			content: `{"token": "ya29.x", "refresh_token": "1//r", "token_uri": "https://oauth2.googleapis.com/token", "client_id": "c", "client_secret": "s", "scopes": ["https://mail.google.com/"], "universe_domain": "googleapis.com", "account": "", "expiry": "2025-06-01T12:00:00.654321Z"}`,
			want:    time.Date(2025, 6, 1, 12, 0, 0, 654321000, time.UTC),
		},
		{
			name:    "naive expiry",
			content: `{"token": "t", "expiry": "2025-06-01T12:00:00"}`,
			want:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		{"no expiry", `{"token": "t"}`, false, time.Time{}},
		{"empty token", `{"client_id": "c"}`, true, time.Time{}},
		{"bad expiry", `{"token": "t", "expiry": "tomorrow"}`, true, time.Time{}},
		{"not json", `token=abc`, true, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := decodeToken([]byte(tt.content))
			if tt.wantErr {
				if err == nil {
					t.Fatal("decodeToken() should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeToken() error: %v", err)
			}
			if !st.Token.Expiry.Equal(tt.want) {
				t.Errorf("Expiry = %v, want %v", st.Token.Expiry, tt.want)
			}
		})
	}
}

func TestKeyringTokenStore(t *testing.T) {
	keyring.MockInit()
	store := NewKeyringTokenStore("me@example.com")

	if _, err := store.Load(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("Load() on empty keyring error = %v, want ErrNoToken", err)
	}
	in := &StoredToken{Token: &oauth2.Token{AccessToken: "a", RefreshToken: "r"}, ClientID: "c", ClientSecret: "s"}
	if err := store.Save(in); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	out, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if out.Token.RefreshToken != "r" || out.ClientID != "c" {
		t.Errorf("Load() = %+v", out)
	}
	if err := store.Delete(); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := store.Delete(); err != nil {
		t.Fatalf("Delete() of missing entry error: %v", err)
	}
}

func TestToken_ValidStoredTokenSkipsTokenEndpoint(t *testing.T) {
	srv, calls := newTokenServer(t, http.StatusOK)
	dir := t.TempDir()
	a, store := newTestAuthenticator(t, dir)
	if err := store.Save(&StoredToken{
		Token:    &oauth2.Token{AccessToken: "cached", RefreshToken: "r", Expiry: time.Now().Add(time.Hour)},
		ClientID: "c", ClientSecret: "s", TokenURI: srv.URL,
	}); err != nil {
		t.Fatal(err)
	}

	for range 3 {
		tok, err := a.Token(context.Background())
		if err != nil {
			t.Fatalf("Token() error: %v", err)
		}
		if tok.AccessToken != "cached" {
			t.Errorf("AccessToken = %q, want %q", tok.AccessToken, "cached")
		}
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("token endpoint called %d times, want 0", n)
	}
}

func TestToken_ExpiredTokenRefreshesOnce(t *testing.T) {
	srv, calls := newTokenServer(t, http.StatusOK)
	dir := t.TempDir()
	a, store := newTestAuthenticator(t, dir)
	if err := store.Save(&StoredToken{
		Token:    &oauth2.Token{AccessToken: "old", RefreshToken: "r", Expiry: time.Now().Add(-time.Hour)},
		ClientID: "c", ClientSecret: "s", TokenURI: srv.URL,
	}); err != nil {
		t.Fatal(err)
	}

	tok, err := a.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error: %v", err)
	}
	if tok.AccessToken != "fresh-1-refresh_token" {
		t.Errorf("AccessToken = %q, want refreshed token", tok.AccessToken)
	}
	if _, err := a.Token(context.Background()); err != nil {
		t.Fatalf("second Token() error: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("token endpoint called %d times, want 1", n)
	}

	persisted, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if persisted.Token.AccessToken != tok.AccessToken {
		t.Errorf("persisted token = %q, want %q", persisted.Token.AccessToken, tok.AccessToken)
	}
	if persisted.ClientID != "c" || persisted.TokenURI != srv.URL {
		t.Errorf("persisted client info = %+v", persisted)
	}
}

func TestToken_RefreshFallsBackToCredentialsFile(t *testing.T) {
	srv, calls := newTokenServer(t, http.StatusOK)
	dir := t.TempDir()
	writeCredentials(t, dir, srv.URL)
	a, store := newTestAuthenticator(t, dir)
	if err := store.Save(&StoredToken{
		Token: &oauth2.Token{AccessToken: "old", RefreshToken: "r", Expiry: time.Now().Add(-time.Minute)},
	}); err != nil {
		t.Fatal(err)
	}

	if _, err := a.Token(context.Background()); err != nil {
		t.Fatalf("Token() error: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("token endpoint called %d times, want 1", n)
	}
}

func TestToken_RefreshRejected(t *testing.T) {
	srv, _ := newTokenServer(t, http.StatusBadRequest)
	dir := t.TempDir()
	a, store := newTestAuthenticator(t, dir)
	if err := store.Save(&StoredToken{
		Token:    &oauth2.Token{AccessToken: "old", RefreshToken: "revoked", Expiry: time.Now().Add(-time.Hour)},
		ClientID: "c", ClientSecret: "s", TokenURI: srv.URL,
	}); err != nil {
		t.Fatal(err)
	}

	_, err := a.Token(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Token() error = %v, want *AuthError", err)
	}
	if !errors.Is(err, ErrAuth) {
		t.Error("AuthError should match ErrAuth")
	}
}

func TestToken_MissingCredentialsFailsBeforeNetwork(t *testing.T) {
	tests := []struct {
		name  string
		write func(t *testing.T, dir string)
	}{
		{"missing file", func(t *testing.T, dir string) {}},
		{"malformed file", func(t *testing.T, dir string) {
			if err := os.WriteFile(filepath.Join(dir, "credentials.json"), []byte("{not json"), 0o600); err != nil {
				t.Fatal(err)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.write(t, dir)
			a, _ := newTestAuthenticator(t, dir)
			opened := false
			a.opts.OpenURL = func(string) error { opened = true; return nil }

			_, err := a.Token(context.Background())
			var credErr *CredentialsError
			if !errors.As(err, &credErr) {
				t.Fatalf("Token() error = %v, want *CredentialsError", err)
			}
			if opened {
				t.Error("consent URL opened despite unusable credentials")
			}
		})
	}
}

// completeConsent plays the browser: it follows the consent URL's redirect
// back to the loopback server with the given query.
func completeConsent(t *testing.T, query func(state string) url.Values) func(string) error {
	return func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		redirect := u.Query().Get("redirect_uri")
		state := u.Query().Get("state")
		go func() {
			resp, err := http.Get(redirect + "/?" + query(state).Encode())
			if err != nil {
				t.Errorf("callback request error: %v", err)
				return
			}
			resp.Body.Close()
		}()
		return nil
	}
}

func TestLogin_ConsentFlow(t *testing.T) {
	srv, calls := newTokenServer(t, http.StatusOK)
	dir := t.TempDir()
	writeCredentials(t, dir, srv.URL)
	a, store := newTestAuthenticator(t, dir)

	var prompt strings.Builder
	a.opts.Prompt = &prompt
	a.opts.OpenURL = completeConsent(t, func(state string) url.Values {
		return url.Values{"code": {"auth-code"}, "state": {state}}
	})

	tok, err := a.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error: %v", err)
	}
	if tok.AccessToken != "fresh-1-authorization_code" {
		t.Errorf("AccessToken = %q, want exchanged token", tok.AccessToken)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("token endpoint called %d times, want 1", n)
	}
	if !strings.Contains(prompt.String(), "access_type=offline") {
		t.Errorf("prompt should contain the consent URL, got %q", prompt.String())
	}
	st, err := store.Load()
	if err != nil {
		t.Fatalf("store.Load() error: %v", err)
	}
	if st.ClientID != "cid.apps.googleusercontent.com" || st.Token.RefreshToken != "refresh-1" {
		t.Errorf("stored token = %+v", st)
	}
}

func TestLogin_ConsentAbandoned(t *testing.T) {
	tests := []struct {
		name  string
		query func(state string) url.Values
	}{
		{"user denied", func(state string) url.Values {
			return url.Values{"error": {"access_denied"}, "state": {state}}
		}},
		{"state mismatch", func(string) url.Values {
			return url.Values{"code": {"c"}, "state": {"forged"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := newTokenServer(t, http.StatusOK)
			dir := t.TempDir()
			writeCredentials(t, dir, srv.URL)
			a, _ := newTestAuthenticator(t, dir)
			a.opts.OpenURL = completeConsent(t, tt.query)

			_, err := a.Login(context.Background())
			var authErr *AuthError
			if !errors.As(err, &authErr) {
				t.Fatalf("Login() error = %v, want *AuthError", err)
			}
			if n := calls.Load(); n != 0 {
				t.Errorf("token endpoint called %d times, want 0", n)
			}
		})
	}

	t.Run("timeout", func(t *testing.T) {
		dir := t.TempDir()
		writeCredentials(t, dir, "http://127.0.0.1:1/token")
		a, _ := newTestAuthenticator(t, dir)
		a.opts.FlowTimeout = 50 * time.Millisecond

		_, err := a.Login(context.Background())
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Login() error = %v, want deadline exceeded", err)
		}
		if !errors.Is(err, ErrAuth) {
			t.Errorf("Login() error = %v, want ErrAuth", err)
		}
	})
}

func TestRefresh_SerializesConcurrentCallers(t *testing.T) {
	srv, calls := newTokenServer(t, http.StatusOK)
	dir := t.TempDir()
	a, store := newTestAuthenticator(t, dir)
	stale := &oauth2.Token{AccessToken: "stale", RefreshToken: "r", Expiry: time.Now().Add(time.Hour)}
	if err := store.Save(&StoredToken{Token: stale, ClientID: "c", ClientSecret: "s", TokenURI: srv.URL}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			tok, err := a.Refresh(context.Background(), stale)
			if err != nil {
				t.Errorf("Refresh() error: %v", err)
				return
			}
			if tok.AccessToken == "stale" {
				t.Error("Refresh() returned the stale token")
			}
		})
	}
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("token endpoint called %d times, want 1", n)
	}
}

func TestRefresh_WithoutRefreshToken(t *testing.T) {
	dir := t.TempDir()
	a, store := newTestAuthenticator(t, dir)
	if err := store.Save(&StoredToken{Token: &oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(time.Hour)}}); err != nil {
		t.Fatal(err)
	}
	_, err := a.Refresh(context.Background(), &oauth2.Token{AccessToken: "a"})
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Refresh() error = %v, want *AuthError", err)
	}
}

func TestLogout(t *testing.T) {
	dir := t.TempDir()
	a, store := newTestAuthenticator(t, dir)
	if err := store.Save(&StoredToken{Token: &oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(time.Hour)}}); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Stored(); err != nil {
		t.Fatalf("Stored() error: %v", err)
	}
	if err := a.Logout(); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	if _, err := a.Stored(); !errors.Is(err, ErrNoToken) {
		t.Errorf("Stored() after Logout error = %v, want ErrNoToken", err)
	}
}
