package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lu-zhengda/gmailwrapper/internal/logging"
	"golang.org/x/oauth2"
)

var errNoRefreshToken = errors.New("no refresh token available; run the consent flow again")

// Options configures an Authenticator.
type Options struct {
	// CredentialsPath locates credentials.json. It is read only when the
	// consent flow runs or a stored token lacks its client.
	CredentialsPath string
	Store           TokenStore
	Scopes          []string

	FlowPort    int
	FlowTimeout time.Duration
	// Prompt receives the consent URL. Nil disables printing.
	Prompt io.Writer
	// OpenURL is called with the consent URL, typically to launch a browser.
	OpenURL func(url string) error

	// HTTPClient is used for token endpoint calls. Nil means http.DefaultClient.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Authenticator hands out valid bearer tokens. All token state sits behind a
// single mutex so concurrent callers never refresh twice.
type Authenticator struct {
	opts Options
	log  *slog.Logger

	mu      sync.Mutex
	current *StoredToken
	state   func() (string, error)
}

// New returns an Authenticator. No I/O happens until a token is requested.
func New(opts Options) *Authenticator {
	return &Authenticator{
		opts: opts,
		log:  logging.OrDefault(opts.Logger),
	}
}

// Token returns a valid access token. A cached or stored token that is still
// valid is returned without contacting the token endpoint; an expired one is
// refreshed; otherwise the consent flow runs.
func (a *Authenticator) Token(ctx context.Context) (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current == nil {
		a.current = a.loadStored()
	}
	if a.current != nil {
		if a.current.Token.Valid() {
			return a.current.Token, nil
		}
		if a.current.Token.RefreshToken != "" {
			return a.refreshLocked(ctx)
		}
	}
	return a.loginLocked(ctx)
}

// Refresh forces a refresh after the server rejected stale. When another
// caller already replaced stale, the newer token is returned as is.
func (a *Authenticator) Refresh(ctx context.Context, stale *oauth2.Token) (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current == nil {
		a.current = a.loadStored()
	}
	if a.current != nil && stale != nil &&
		a.current.Token.AccessToken != stale.AccessToken && a.current.Token.Valid() {
		return a.current.Token, nil
	}
	if a.current == nil || a.current.Token.RefreshToken == "" {
		return nil, &AuthError{Op: "refresh token", Cause: errNoRefreshToken}
	}
	return a.refreshLocked(ctx)
}

// Login runs the consent flow unconditionally and stores the result.
func (a *Authenticator) Login(ctx context.Context) (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loginLocked(ctx)
}

// Logout forgets the cached token and removes it from the store.
func (a *Authenticator) Logout() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = nil
	return a.opts.Store.Delete()
}

// Stored returns the token currently known to the authenticator, loading it
// from the store if needed. It never contacts the network.
func (a *Authenticator) Stored() (*StoredToken, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != nil {
		cp := *a.current
		return &cp, nil
	}
	st, err := a.opts.Store.Load()
	if err != nil {
		return nil, err
	}
	a.current = st
	cp := *st
	return &cp, nil
}

func (a *Authenticator) loadStored() *StoredToken {
	st, err := a.opts.Store.Load()
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			a.log.Warn("ignoring unusable stored token", logging.Err(err))
		}
		return nil
	}
	return st
}

func (a *Authenticator) refreshLocked(ctx context.Context) (*oauth2.Token, error) {
	cfg, err := a.refreshConfig(a.current)
	if err != nil {
		return nil, err
	}

	a.log.Debug("refreshing access token", logging.Operation("refresh"))
	src := cfg.TokenSource(a.clientContext(ctx), &oauth2.Token{RefreshToken: a.current.Token.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, &AuthError{Op: "refresh token", Cause: err}
	}

	scopes := a.current.Scopes
	if len(scopes) == 0 {
		scopes = a.opts.Scopes
	}
	a.current = &StoredToken{
		Token:        tok,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURI:     cfg.Endpoint.TokenURL,
		Scopes:       scopes,
	}
	a.persist()
	a.log.Debug("access token refreshed", logging.Operation("refresh"),
		slog.String("token", logging.SanitizeToken(tok.AccessToken)))
	return tok, nil
}

// refreshConfig prefers the client recorded alongside the token and falls
// back to credentials.json.
func (a *Authenticator) refreshConfig(st *StoredToken) (*oauth2.Config, error) {
	if st.ClientID != "" && st.ClientSecret != "" {
		creds := &ClientCredentials{ClientID: st.ClientID, ClientSecret: st.ClientSecret, TokenURI: st.TokenURI}
		return a.oauthConfig(creds), nil
	}
	creds, err := LoadCredentials(a.opts.CredentialsPath)
	if err != nil {
		return nil, err
	}
	return a.oauthConfig(creds), nil
}

func (a *Authenticator) loginLocked(ctx context.Context) (*oauth2.Token, error) {
	creds, err := LoadCredentials(a.opts.CredentialsPath)
	if err != nil {
		return nil, err
	}
	cfg := a.oauthConfig(creds)

	flow := &consentFlow{
		port:    a.opts.FlowPort,
		timeout: a.opts.FlowTimeout,
		prompt:  a.opts.Prompt,
		openURL: a.opts.OpenURL,
		state:   a.state,
	}
	tok, err := flow.run(a.clientContext(ctx), cfg)
	if err != nil {
		return nil, &AuthError{Op: "consent flow", Cause: err}
	}

	a.current = &StoredToken{
		Token:        tok,
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURI:     cfg.Endpoint.TokenURL,
		Scopes:       cfg.Scopes,
	}
	a.persist()
	a.log.Info("authorization complete", logging.Operation("login"))
	return tok, nil
}

func (a *Authenticator) oauthConfig(creds *ClientCredentials) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     creds.Endpoint(),
		Scopes:       a.opts.Scopes,
	}
}

func (a *Authenticator) clientContext(ctx context.Context) context.Context {
	if a.opts.HTTPClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, a.opts.HTTPClient)
}

// persist saves the current token. A failed save is logged, not returned:
// the token in memory is still usable for this process.
func (a *Authenticator) persist() {
	if err := a.opts.Store.Save(a.current); err != nil {
		a.log.Warn("failed to save token", logging.Err(err))
	}
}
