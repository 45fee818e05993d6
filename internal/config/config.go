package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	gmailapi "google.golang.org/api/gmail/v1"
)

const (
	// DefaultBaseURL is the Gmail REST endpoint for the authenticated user.
	DefaultBaseURL = "https://gmail.googleapis.com/gmail/v1/users/me"

	TokenStoreFile    = "file"
	TokenStoreKeyring = "keyring"

	// DefaultKeyringUser is the keyring account the token is stored under
	// when token_store is "keyring".
	DefaultKeyringUser = "default"
)

// Config holds all gmailwrapper configuration.
type Config struct {
	Auth  AuthConfig  `toml:"auth"`
	API   APIConfig   `toml:"api"`
	Mail  MailConfig  `toml:"mail"`
	Cache CacheConfig `toml:"cache"`
}

// AuthConfig controls where OAuth material lives and how the consent flow runs.
type AuthConfig struct {
	Dir             string   `toml:"dir"`
	CredentialsFile string   `toml:"credentials_file"`
	TokenFile       string   `toml:"token_file"`
	TokenStore      string   `toml:"token_store"`
	KeyringUser     string   `toml:"keyring_user"`
	FlowPort        int      `toml:"flow_port"`
	FlowTimeout     string   `toml:"flow_timeout"`
	Scopes          []string `toml:"scopes"`
}

// APIConfig holds HTTP settings for Gmail requests.
type APIConfig struct {
	BaseURL string `toml:"base_url"`
	Proxy   string `toml:"proxy"`
}

// MailConfig holds message composition defaults.
type MailConfig struct {
	Signature string `toml:"signature"`
}

// CacheConfig holds local cache settings.
type CacheConfig struct {
	Path         string `toml:"path"`
	InitialCount int    `toml:"initial_count"`
}

// DefaultScopes are requested when no scopes are configured.
var DefaultScopes = []string{
	gmailapi.GmailSendScope,
	gmailapi.GmailComposeScope,
	gmailapi.GmailModifyScope,
	gmailapi.GmailLabelsScope,
}

func defaults() Config {
	return Config{
		Auth: AuthConfig{
			Dir:             "./backend",
			CredentialsFile: "credentials.json",
			TokenFile:       "token.json",
			TokenStore:      TokenStoreFile,
			KeyringUser:     DefaultKeyringUser,
			FlowPort:        5000,
			FlowTimeout:     "5m",
			Scopes:          append([]string(nil), DefaultScopes...),
		},
		API: APIConfig{
			BaseURL: DefaultBaseURL,
		},
		Cache: CacheConfig{
			InitialCount: 500,
		},
	}
}

// Load builds the configuration from defaults, the TOML file at path (if any),
// a .env file in the working directory and finally the process environment.
// A missing config file is not an error.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv exports variables from a dotenv file without overriding values
// already present in the environment.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := firstEnv("GMAIL_WRAPPER_DIR", "BACKEND_DIR"); v != "" {
		c.Auth.Dir = v
	}
	if v := os.Getenv("FLOW_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid FLOW_PORT %q: %w", v, err)
		}
		c.Auth.FlowPort = port
	}
	if v := os.Getenv("GMAIL_WRAPPER_TOKEN_STORE"); v != "" {
		c.Auth.TokenStore = v
	}
	if v := os.Getenv("GMAIL_WRAPPER_KEYRING_USER"); v != "" {
		c.Auth.KeyringUser = v
	}
	if v := os.Getenv("EMAIL_SIGNATURE"); v != "" {
		c.Mail.Signature = v
	}
	if v := firstEnv("GMAIL_WRAPPER_PROXY", "HTTP_PROXY"); v != "" {
		c.API.Proxy = v
	}
	if v := os.Getenv("GMAIL_WRAPPER_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	return nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.Auth.FlowPort < 0 || c.Auth.FlowPort > 65535 {
		return fmt.Errorf("invalid flow_port %d: must be between 0 and 65535", c.Auth.FlowPort)
	}
	switch c.Auth.TokenStore {
	case TokenStoreFile:
	case TokenStoreKeyring:
		if c.Auth.KeyringUser == "" {
			return errors.New("invalid keyring_user: required when token_store is keyring")
		}
	default:
		return fmt.Errorf("invalid token_store %q: want %q or %q", c.Auth.TokenStore, TokenStoreFile, TokenStoreKeyring)
	}
	if _, err := time.ParseDuration(c.Auth.FlowTimeout); err != nil {
		return fmt.Errorf("invalid flow_timeout %q: %w", c.Auth.FlowTimeout, err)
	}
	if len(c.Auth.Scopes) == 0 {
		return errors.New("invalid scopes: at least one scope is required")
	}
	if _, err := url.Parse(c.API.BaseURL); err != nil || c.API.BaseURL == "" {
		return fmt.Errorf("invalid base_url %q", c.API.BaseURL)
	}
	if c.API.Proxy != "" {
		if _, err := c.ProxyURL(); err != nil {
			return err
		}
	}
	return nil
}

// CredentialsPath returns the path to credentials.json.
func (c *Config) CredentialsPath() string {
	return resolve(c.Auth.Dir, c.Auth.CredentialsFile)
}

// TokenPath returns the path to token.json.
func (c *Config) TokenPath() string {
	return resolve(c.Auth.Dir, c.Auth.TokenFile)
}

// FlowTimeoutDuration returns the consent flow timeout. Validate guarantees it parses.
func (c *Config) FlowTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Auth.FlowTimeout)
	return d
}

// ProxyURL returns the parsed proxy URL, or nil when no proxy is configured.
func (c *Config) ProxyURL() (*url.URL, error) {
	if c.API.Proxy == "" {
		return nil, nil
	}
	u, err := url.Parse(c.API.Proxy)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy %q", c.API.Proxy)
	}
	return u, nil
}

// CachePath returns the sqlite cache location, defaulting under DataDir.
func (c *Config) CachePath() string {
	if c.Cache.Path != "" {
		return c.Cache.Path
	}
	return filepath.Join(DataDir(), "cache.db")
}

func resolve(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// ConfigDir returns the gmailwrapper config directory path.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gmailwrapper")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "gmailwrapper")
}

// DefaultPath returns the config file consulted when none is given.
func DefaultPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir returns the gmailwrapper data directory path.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "gmailwrapper")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "gmailwrapper")
}
