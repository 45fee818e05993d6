// Package gmailwrapper is a small client for the Gmail REST API. It owns the
// OAuth2 token lifecycle (credentials.json, token.json, refresh and the
// loopback consent flow) and exposes messages, threads, drafts and labels as
// plain list/get/create/update/delete operations.
package gmailwrapper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/mail"
	"os"

	"github.com/lu-zhengda/gmailwrapper/internal/auth"
	"github.com/lu-zhengda/gmailwrapper/internal/config"
	"github.com/lu-zhengda/gmailwrapper/internal/gmail"
	"github.com/lu-zhengda/gmailwrapper/internal/logging"
	gmailapi "google.golang.org/api/gmail/v1"
)

type (
	// APIError is a non-2xx response from the Gmail API.
	APIError = gmail.APIError
	// RequestError is a transport failure talking to the Gmail API.
	RequestError = gmail.RequestError
	// CredentialsError means credentials.json is missing or malformed.
	CredentialsError = auth.CredentialsError
	// AuthError is a failed refresh or consent flow.
	AuthError = auth.AuthError

	Config      = config.Config
	Compose     = gmail.Compose
	ListOptions = gmail.ListOptions
)

// ErrAuth matches every authentication failure, including CredentialsError.
var ErrAuth = auth.ErrAuth

// Wrapper aggregates the Gmail resources behind one authenticated client.
type Wrapper struct {
	Messages *gmail.MessagesService
	Threads  *gmail.ThreadsService
	Drafts   *gmail.DraftsService
	Labels   *gmail.LabelsService
	Users    *gmail.UsersService
	Auth     *auth.Authenticator

	cfg     *config.Config
	http    *http.Client
	builder gmail.Builder
	log     *slog.Logger
}

type options struct {
	logger     *slog.Logger
	httpClient *http.Client
	store      auth.TokenStore
	prompt     io.Writer
	openURL    func(string) error
}

// Option customizes New.
type Option func(*options)

// WithLogger sets the logger used by every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHTTPClient replaces the instrumented default client. The proxy from
// the configuration is not applied to a caller-supplied client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithTokenStore overrides the store chosen by the configuration.
func WithTokenStore(s auth.TokenStore) Option {
	return func(o *options) { o.store = s }
}

// WithConsentPrompt sets where the consent URL is printed. Defaults to stderr.
func WithConsentPrompt(w io.Writer) Option {
	return func(o *options) { o.prompt = w }
}

// WithBrowser sets a function that opens the consent URL.
func WithBrowser(open func(url string) error) Option {
	return func(o *options) { o.openURL = open }
}

// New builds a Wrapper from cfg. No network or file I/O happens until the
// first API call needs a token.
func New(cfg *config.Config, opts ...Option) (*Wrapper, error) {
	o := options{prompt: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}
	log := logging.OrDefault(o.logger)

	hc := o.httpClient
	if hc == nil {
		proxy, err := cfg.ProxyURL()
		if err != nil {
			return nil, err
		}
		hc = gmail.NewHTTPClient(proxy)
	}

	store := o.store
	if store == nil {
		store = NewTokenStore(cfg)
	}

	authenticator := auth.New(auth.Options{
		CredentialsPath: cfg.CredentialsPath(),
		Store:           store,
		Scopes:          cfg.Auth.Scopes,
		FlowPort:        cfg.Auth.FlowPort,
		FlowTimeout:     cfg.FlowTimeoutDuration(),
		Prompt:          o.prompt,
		OpenURL:         o.openURL,
		HTTPClient:      hc,
		Logger:          log,
	})

	client := gmail.NewClient(authenticator, gmail.ClientOptions{
		BaseURL:    cfg.API.BaseURL,
		HTTPClient: hc,
		Logger:     log,
	})
	svc := gmail.NewService(client)

	return &Wrapper{
		Messages: svc.Messages,
		Threads:  svc.Threads,
		Drafts:   svc.Drafts,
		Labels:   svc.Labels,
		Users:    svc.Users,
		Auth:     authenticator,
		cfg:      cfg,
		http:     hc,
		builder:  gmail.Builder{Signature: cfg.Mail.Signature},
		log:      log,
	}, nil
}

// NewDefault loads configuration from the default config file, .env and the
// environment, then builds a Wrapper.
func NewDefault(opts ...Option) (*Wrapper, error) {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return New(cfg, opts...)
}

// NewTokenStore returns the token store selected by cfg.Auth.TokenStore.
// A keyring token is keyed by cfg.Auth.KeyringUser, independent of the
// working directory.
func NewTokenStore(cfg *config.Config) auth.TokenStore {
	if cfg.Auth.TokenStore == config.TokenStoreKeyring {
		return auth.NewKeyringTokenStore(cfg.Auth.KeyringUser)
	}
	return auth.NewFileTokenStore(cfg.TokenPath())
}

// Config returns the configuration the Wrapper was built from.
func (w *Wrapper) Config() *config.Config { return w.cfg }

// Service returns the resources as a gmail.Service, for components that
// take the whole API surface.
func (w *Wrapper) Service() *gmail.Service {
	return &gmail.Service{
		Messages: w.Messages,
		Threads:  w.Threads,
		Drafts:   w.Drafts,
		Labels:   w.Labels,
		Users:    w.Users,
	}
}

// Close releases idle connections.
func (w *Wrapper) Close() {
	w.http.CloseIdleConnections()
}

// Mailbox returns the address of the authenticated account.
func (w *Wrapper) Mailbox(ctx context.Context) (string, error) {
	p, err := w.Users.Profile(ctx)
	if err != nil {
		return "", err
	}
	return p.EmailAddress, nil
}

// CreateMessage renders c into a message ready for SendMessage or
// CreateDraft. The configured signature is appended to the bodies.
func (w *Wrapper) CreateMessage(c Compose) (*gmailapi.Message, error) {
	return w.builder.Build(c)
}

// ParseMessage decodes the Raw field of a message fetched in raw format.
func (w *Wrapper) ParseMessage(raw string) (*mail.Message, error) {
	return gmail.ParseRaw(raw)
}

// GetMessages lists every message in the mailbox. With details each message
// is fetched in full; otherwise only ids are populated.
func (w *Wrapper) GetMessages(ctx context.Context, details bool) ([]*gmailapi.Message, error) {
	if details {
		return w.Messages.ListDetailed(ctx, ListOptions{})
	}
	return w.Messages.ListAll(ctx, ListOptions{})
}

func (w *Wrapper) GetMessage(ctx context.Context, id string) (*gmailapi.Message, error) {
	return w.Messages.Get(ctx, id)
}

func (w *Wrapper) SendMessage(ctx context.Context, msg *gmailapi.Message) (*gmailapi.Message, error) {
	return w.Messages.Send(ctx, msg)
}

// UpdateMessage adds and removes labels on a message.
func (w *Wrapper) UpdateMessage(ctx context.Context, id string, req *gmailapi.ModifyMessageRequest) (*gmailapi.Message, error) {
	return w.Messages.Update(ctx, id, req)
}

// DeleteMessage moves a message to the trash.
func (w *Wrapper) DeleteMessage(ctx context.Context, id string) error {
	_, err := w.Messages.Delete(ctx, id)
	return err
}

func (w *Wrapper) GetDrafts(ctx context.Context, details bool) ([]*gmailapi.Draft, error) {
	if details {
		return w.Drafts.ListDetailed(ctx, ListOptions{})
	}
	return w.Drafts.ListAll(ctx, ListOptions{})
}

func (w *Wrapper) GetDraft(ctx context.Context, id string) (*gmailapi.Draft, error) {
	return w.Drafts.Get(ctx, id)
}

func (w *Wrapper) CreateDraft(ctx context.Context, msg *gmailapi.Message) (*gmailapi.Draft, error) {
	return w.Drafts.Create(ctx, msg)
}

func (w *Wrapper) UpdateDraft(ctx context.Context, id string, msg *gmailapi.Message) (*gmailapi.Draft, error) {
	return w.Drafts.Update(ctx, id, msg)
}

func (w *Wrapper) DeleteDraft(ctx context.Context, id string) error {
	return w.Drafts.Delete(ctx, id)
}

func (w *Wrapper) GetThreads(ctx context.Context, details bool) ([]*gmailapi.Thread, error) {
	if details {
		return w.Threads.ListDetailed(ctx, ListOptions{})
	}
	return w.Threads.ListAll(ctx, ListOptions{})
}

func (w *Wrapper) GetThread(ctx context.Context, id string) (*gmailapi.Thread, error) {
	return w.Threads.Get(ctx, id)
}

// DeleteThread moves every message in a thread to the trash.
func (w *Wrapper) DeleteThread(ctx context.Context, id string) error {
	_, err := w.Threads.Delete(ctx, id)
	return err
}

func (w *Wrapper) UndeleteThread(ctx context.Context, id string) error {
	_, err := w.Threads.Undelete(ctx, id)
	return err
}
