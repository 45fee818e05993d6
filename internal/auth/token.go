package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
)

// expiryLayout matches the timestamps google-auth writes into token.json.
const expiryLayout = "2006-01-02T15:04:05.000000Z"

// StoredToken is an OAuth2 token plus the client it was issued to, mirroring
// Google's authorized-user token.json.
type StoredToken struct {
	Token        *oauth2.Token
	ClientID     string
	ClientSecret string
	TokenURI     string
	Scopes       []string
}

// TokenStore persists a StoredToken. Load returns ErrNoToken when nothing is stored.
type TokenStore interface {
	Load() (*StoredToken, error)
	Save(*StoredToken) error
	Delete() error
}

type authorizedUser struct {
	Token          string   `json:"token"`
	RefreshToken   string   `json:"refresh_token,omitempty"`
	TokenURI       string   `json:"token_uri,omitempty"`
	ClientID       string   `json:"client_id,omitempty"`
	ClientSecret   string   `json:"client_secret,omitempty"`
	Scopes         []string `json:"scopes,omitempty"`
	UniverseDomain string   `json:"universe_domain,omitempty"`
	Account        string   `json:"account"`
	Expiry         string   `json:"expiry,omitempty"`
}

func encodeToken(st *StoredToken) ([]byte, error) {
	if st == nil || st.Token == nil {
		return nil, errors.New("nil token")
	}
	u := authorizedUser{
		Token:          st.Token.AccessToken,
		RefreshToken:   st.Token.RefreshToken,
		TokenURI:       st.TokenURI,
		ClientID:       st.ClientID,
		ClientSecret:   st.ClientSecret,
		Scopes:         st.Scopes,
		UniverseDomain: "googleapis.com",
	}
	if !st.Token.Expiry.IsZero() {
		u.Expiry = st.Token.Expiry.UTC().Format(expiryLayout)
	}
	return json.MarshalIndent(u, "", "  ")
}

func decodeToken(data []byte) (*StoredToken, error) {
	var u authorizedUser
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, err
	}
	if u.Token == "" && u.RefreshToken == "" {
		return nil, errors.New("token and refresh_token are both empty")
	}
	tok := &oauth2.Token{
		AccessToken:  u.Token,
		RefreshToken: u.RefreshToken,
		TokenType:    "Bearer",
	}
	if u.Expiry != "" {
		exp, err := time.Parse(time.RFC3339Nano, u.Expiry)
		if err != nil {
			// google-auth also accepts a naive timestamp without the zone suffix.
			exp, err = time.Parse("2006-01-02T15:04:05", u.Expiry)
			if err != nil {
				return nil, fmt.Errorf("invalid expiry %q: %w", u.Expiry, err)
			}
		}
		tok.Expiry = exp
	}
	return &StoredToken{
		Token:        tok,
		ClientID:     u.ClientID,
		ClientSecret: u.ClientSecret,
		TokenURI:     u.TokenURI,
		Scopes:       u.Scopes,
	}, nil
}

// FileTokenStore keeps the token in a token.json file.
type FileTokenStore struct {
	Path string
}

// NewFileTokenStore returns a FileTokenStore at path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{Path: path}
}

func (f *FileTokenStore) Load() (*StoredToken, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("failed to read token: %w", err)
	}
	st, err := decodeToken(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token %s: %w", f.Path, err)
	}
	return st, nil
}

// Save writes the token atomically with owner-only permissions.
func (f *FileTokenStore) Save(st *StoredToken) error {
	data, err := encodeToken(st)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		return fmt.Errorf("failed to commit token: %w", err)
	}
	return nil
}

func (f *FileTokenStore) Delete() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
