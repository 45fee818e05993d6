package auth

import (
	"encoding/json"
	"errors"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var errInvalidCredentials = errors.New("expected installed or web client_id and client_secret")

// ClientCredentials is the OAuth client registered in Google Cloud.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	AuthURI      string
	TokenURI     string
}

type clientSection struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AuthURI      string `json:"auth_uri"`
	TokenURI     string `json:"token_uri"`
}

type credentialsFile struct {
	Installed *clientSection `json:"installed"`
	Web       *clientSection `json:"web"`
}

// LoadCredentials reads a credentials.json downloaded from the Google Cloud
// console. Every failure is a *CredentialsError.
func LoadCredentials(path string) (*ClientCredentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &CredentialsError{Path: path, Cause: err}
	}
	creds, err := ParseCredentials(data)
	if err != nil {
		return nil, &CredentialsError{Path: path, Cause: err}
	}
	return creds, nil
}

// ParseCredentials decodes the installed or web client section.
func ParseCredentials(data []byte) (*ClientCredentials, error) {
	var f credentialsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	section := f.Installed
	if section == nil {
		section = f.Web
	}
	if section == nil || section.ClientID == "" || section.ClientSecret == "" {
		return nil, errInvalidCredentials
	}
	return &ClientCredentials{
		ClientID:     section.ClientID,
		ClientSecret: section.ClientSecret,
		AuthURI:      section.AuthURI,
		TokenURI:     section.TokenURI,
	}, nil
}

// Endpoint returns Google's endpoint with any URIs from the file applied.
func (c *ClientCredentials) Endpoint() oauth2.Endpoint {
	ep := google.Endpoint
	if c.AuthURI != "" {
		ep.AuthURL = c.AuthURI
	}
	if c.TokenURI != "" {
		ep.TokenURL = c.TokenURI
	}
	return ep
}
