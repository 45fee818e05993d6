package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

var (
	errStateMismatch = errors.New("state mismatch in callback")
	errMissingCode   = errors.New("no code in callback")
)

type consentFlow struct {
	port    int
	timeout time.Duration
	prompt  io.Writer
	openURL func(string) error
	state   func() (string, error)
}

// run serves a loopback redirect on the configured port, sends the user to
// the consent screen and exchanges the returned code for a token.
func (f *consentFlow) run(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	newState := f.state
	if newState == nil {
		newState = randomState
	}
	state, err := newState()
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", f.port))
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	flowCfg := *cfg
	flowCfg.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d", port)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var cbErr error
		switch {
		case q.Get("error") != "":
			cbErr = fmt.Errorf("consent denied: %s", q.Get("error"))
		case q.Get("state") != state:
			cbErr = errStateMismatch
		case q.Get("code") == "":
			cbErr = errMissingCode
		}
		if cbErr != nil {
			select {
			case errCh <- cbErr:
			default:
			}
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, "Authentication failed. You can close this tab.")
			return
		}
		select {
		case codeCh <- q.Get("code"):
		default:
		}
		fmt.Fprint(w, "Authentication successful! You can close this tab.")
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go server.Serve(listener)
	defer server.Close()

	url := flowCfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	if f.prompt != nil {
		fmt.Fprintf(f.prompt, "\nOpen this URL in your browser to authorize gmailwrapper:\n\n  %s\n\nWaiting for authorization...\n", url)
	}
	if f.openURL != nil {
		if err := f.openURL(url); err != nil && f.prompt != nil {
			fmt.Fprintf(f.prompt, "Could not open a browser: %v\n", err)
		}
	}

	select {
	case code := <-codeCh:
		token, err := flowCfg.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to exchange auth code: %w", err)
		}
		return token, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, fmt.Errorf("authorization abandoned: %w", ctx.Err())
	}
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
