package gmail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/lu-zhengda/gmailwrapper/internal/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// TokenProvider supplies bearer tokens. *auth.Authenticator implements it.
type TokenProvider interface {
	Token(ctx context.Context) (*oauth2.Token, error)
	Refresh(ctx context.Context, stale *oauth2.Token) (*oauth2.Token, error)
}

// Client sends authenticated JSON requests to the Gmail API. It is safe for
// concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenProvider
	log     *slog.Logger
}

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewClient returns a Client that authenticates through tokens.
func NewClient(tokens TokenProvider, opts ClientOptions) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = NewHTTPClient(nil)
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    hc,
		tokens:  tokens,
		log:     logging.OrDefault(opts.Logger),
	}
}

// NewHTTPClient returns an instrumented HTTP client, routed through proxy when set.
func NewHTTPClient(proxy *url.URL) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if proxy != nil {
		base.Proxy = http.ProxyURL(proxy)
	}
	return &http.Client{Transport: otelhttp.NewTransport(base)}
}

// Do sends method to path (relative to the base URL) with body encoded as
// JSON and decodes the response into out. A 401 triggers one token refresh
// and one retry; any other non-2xx status is returned as *APIError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request body: %w", path, err)
		}
	}

	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, method, target, payload, tok)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		c.log.Debug("access token rejected, refreshing", logging.Method(method), logging.Path(path))
		tok, err = c.tokens.Refresh(ctx, tok)
		if err != nil {
			return err
		}
		resp, err = c.send(ctx, method, target, payload, tok)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	c.log.Debug("gmail request", logging.Method(method), logging.Path(path), logging.Status(resp.StatusCode))
	return decodeResponse(method, target, resp, out)
}

func (c *Client) send(ctx context.Context, method, target string, payload []byte, tok *oauth2.Token) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &RequestError{Method: method, URL: target, Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	tok.SetAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RequestError{Method: method, URL: target, Cause: err}
	}
	return resp, nil
}

func decodeResponse(method, target string, resp *http.Response, out any) error {
	if err := googleapi.CheckResponse(resp); err != nil {
		apiErr := &APIError{Method: method, URL: target, StatusCode: resp.StatusCode}
		var gErr *googleapi.Error
		if errors.As(err, &gErr) {
			apiErr.Body = gErr.Body
			apiErr.Message = gErr.Message
			apiErr.cause = gErr
		}
		return apiErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{Method: method, URL: target, Cause: err}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, target, err)
	}
	return nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
