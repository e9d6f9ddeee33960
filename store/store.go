// Package store persists per-server authentication state in a single JSON
// file keyed by server name. The file shape is a compatibility contract with
// the host application that consumes the tokens.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Tokens holds the durable result of a completed token exchange
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresAt    int64  `json:"expiresAt,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// ClientInfo holds the dynamically registered client identity
type ClientInfo struct {
	ClientID        string `json:"clientId"`
	ClientSecret    string `json:"clientSecret,omitempty"`
	IssuedAt        int64  `json:"issuedAt,omitempty"`
	SecretExpiresAt int64  `json:"secretExpiresAt,omitempty"`
}

// AuthEntry is the per-server-name record. CodeVerifier and OAuthState are
// transient: they exist only between the registration checkpoint and a
// successful token exchange, and are cleared when tokens are written.
type AuthEntry struct {
	ServerURL    string      `json:"serverUrl"`
	Tokens       *Tokens     `json:"tokens,omitempty"`
	ClientInfo   *ClientInfo `json:"clientInfo,omitempty"`
	CodeVerifier string      `json:"codeVerifier,omitempty"`
	OAuthState   string      `json:"oauthState,omitempty"`
}

// File is an auth file at a fixed path. The path is resolved by the caller
// and passed in; the store never consults ambient state.
type File struct {
	path string
}

// NewFile creates a store backed by the JSON file at path
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the backing file path
func (f *File) Path() string {
	return f.path
}

// Load reads the full server-name mapping. A missing file is an empty
// mapping, not an error.
func (f *File) Load() (map[string]*AuthEntry, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]*AuthEntry{}, nil
		}
		return nil, fmt.Errorf("error reading auth file %s: %w", f.path, err)
	}

	entries := map[string]*AuthEntry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("error parsing auth file %s: %w", f.path, err)
	}

	return entries, nil
}

// Get returns the entry for serverName, or nil if absent
func (f *File) Get(serverName string) (*AuthEntry, error) {
	entries, err := f.Load()
	if err != nil {
		return nil, err
	}
	return entries[serverName], nil
}

// Put writes the entry for serverName, preserving all other entries. The
// file is created with owner-only permissions; the parent directory is
// created if absent.
func (f *File) Put(serverName string, entry *AuthEntry) error {
	entries, err := f.Load()
	if err != nil {
		return err
	}
	entries[serverName] = entry

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling auth file: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("error creating auth directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("error writing auth file %s: %w", f.path, err)
	}

	return nil
}
