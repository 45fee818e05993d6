package gmail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/lu-zhengda/gmailwrapper/internal/logging"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// fakeTokens hands out a fixed token and counts refreshes.
type fakeTokens struct {
	mu         sync.Mutex
	token      string
	refreshes  int
	tokenErr   error
	refreshErr error
}

func (f *fakeTokens) Token(context.Context) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tokenErr != nil {
		return nil, f.tokenErr
	}
	return &oauth2.Token{AccessToken: f.token, TokenType: "Bearer"}, nil
}

func (f *fakeTokens) Refresh(_ context.Context, stale *oauth2.Token) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	f.token = fmt.Sprintf("refreshed-%d", f.refreshes)
	return &oauth2.Token{AccessToken: f.token, TokenType: "Bearer"}, nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *fakeTokens) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tokens := &fakeTokens{token: "valid"}
	c := NewClient(tokens, ClientOptions{
		BaseURL:    srv.URL + "/gmail/v1/users/me",
		HTTPClient: srv.Client(),
		Logger:     logging.Discard(),
	})
	return c, tokens
}

func TestDo_AttachesBearerAndDecodes(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer valid" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer valid")
		}
		if r.URL.Path != "/gmail/v1/users/me/profile" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"emailAddress":"me@example.com","historyId":"42"}`)
	})

	var out struct {
		EmailAddress string `json:"emailAddress"`
		HistoryID    uint64 `json:"historyId,string"`
	}
	if err := c.Do(context.Background(), http.MethodGet, "profile", nil, nil, &out); err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if out.EmailAddress != "me@example.com" || out.HistoryID != 42 {
		t.Errorf("decoded = %+v", out)
	}
}

func TestDo_UnauthorizedRefreshesAndRetriesOnce(t *testing.T) {
	var requests atomic.Int32
	c, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Header.Get("Authorization") == "Bearer valid" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"code":401,"message":"Invalid Credentials"}}`)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"x":1}` {
			t.Errorf("retried body = %q, want original payload", body)
		}
		fmt.Fprint(w, `{}`)
	})

	err := c.Do(context.Background(), http.MethodPost, "messages/send", nil, map[string]int{"x": 1}, nil)
	if err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if n := requests.Load(); n != 2 {
		t.Errorf("requests = %d, want 2", n)
	}
	if tokens.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", tokens.refreshes)
	}
}

func TestDo_SecondUnauthorizedIsAPIError(t *testing.T) {
	var requests atomic.Int32
	c, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"code":401,"message":"Invalid Credentials"}}`)
	})

	err := c.Do(context.Background(), http.MethodGet, "messages", nil, nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Do() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", apiErr.StatusCode)
	}
	if !IsUnauthorized(err) {
		t.Error("IsUnauthorized() = false, want true")
	}
	if n := requests.Load(); n != 2 {
		t.Errorf("requests = %d, want 2 (no retry loop)", n)
	}
	if tokens.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", tokens.refreshes)
	}
}

func TestDo_NonSuccessIsAPIError(t *testing.T) {
	const body = `{"error":{"code":404,"message":"Requested entity was not found.","errors":[{"reason":"notFound"}]}}`
	c, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, body)
	})

	err := c.Do(context.Background(), http.MethodGet, "messages/missing", nil, nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Do() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
	}
	if apiErr.Body != body {
		t.Errorf("Body = %q, want raw response", apiErr.Body)
	}
	if apiErr.Message != "Requested entity was not found." {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound() = false, want true")
	}
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) || gErr.Code != http.StatusNotFound {
		t.Errorf("googleapi.Error not reachable: %v", err)
	}
	if tokens.refreshes != 0 {
		t.Errorf("refreshes = %d, want 0", tokens.refreshes)
	}
}

func TestDo_TransportFailureIsRequestError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := NewClient(&fakeTokens{token: "valid"}, ClientOptions{BaseURL: base, Logger: logging.Discard()})
	err := c.Do(context.Background(), http.MethodGet, "messages", nil, nil, nil)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("Do() error = %v, want *RequestError", err)
	}
	if reqErr.Method != http.MethodGet || !strings.HasPrefix(reqErr.URL, base) {
		t.Errorf("RequestError = %+v", reqErr)
	}
	if StatusCode(err) != 0 {
		t.Errorf("StatusCode() = %d, want 0", StatusCode(err))
	}
}

func TestDo_TokenErrorsPropagate(t *testing.T) {
	sentinel := errors.New("no token")
	var requests atomic.Int32
	c, tokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	tokens.tokenErr = sentinel
	if err := c.Do(context.Background(), http.MethodGet, "labels", nil, nil, nil); !errors.Is(err, sentinel) {
		t.Errorf("Do() error = %v, want token error", err)
	}
	if n := requests.Load(); n != 0 {
		t.Errorf("requests = %d, want 0 before a token exists", n)
	}

	tokens.tokenErr = nil
	tokens.refreshErr = sentinel
	if err := c.Do(context.Background(), http.MethodGet, "labels", nil, nil, nil); !errors.Is(err, sentinel) {
		t.Errorf("Do() error = %v, want refresh error", err)
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("requests = %d, want 1", n)
	}
}

func TestDo_EmptyResponseBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	var out map[string]any
	if err := c.Do(context.Background(), http.MethodDelete, "drafts/d1", nil, nil, &out); err != nil {
		t.Fatalf("Do() error: %v", err)
	}
	if out != nil {
		t.Errorf("out = %v, want untouched", out)
	}
}

func TestDo_InvalidJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":`)
	})
	var out map[string]any
	err := c.Do(context.Background(), http.MethodGet, "messages/1", nil, nil, &out)
	if err == nil || !strings.Contains(err.Error(), "failed to decode") {
		t.Errorf("Do() error = %v, want decode error", err)
	}
}

func TestNewHTTPClient_Proxy(t *testing.T) {
	var sawHost atomic.Value
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawHost.Store(r.Host)
		fmt.Fprint(w, `{"emailAddress":"me@example.com"}`)
	}))
	defer proxy.Close()
	proxyURL, err := url.Parse(proxy.URL)
	if err != nil {
		t.Fatal(err)
	}

	c := NewClient(&fakeTokens{token: "valid"}, ClientOptions{
		BaseURL:    "http://gmail.invalid/gmail/v1/users/me",
		HTTPClient: NewHTTPClient(proxyURL),
		Logger:     logging.Discard(),
	})
	if err := c.Do(context.Background(), http.MethodGet, "profile", nil, nil, nil); err != nil {
		t.Fatalf("Do() through proxy error: %v", err)
	}
	if got, _ := sawHost.Load().(string); got != "gmail.invalid" {
		t.Errorf("proxy saw host %q, want %q", got, "gmail.invalid")
	}
}
