package tokenstore

// Package tokenstore provides local token-store backends: a file-backed
// store for single-user installs and an in-memory store for tests and the
// mock auth mode.

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	domainsession "github.com/openhrms/fieldlink/internal/domain/session"
	apperrors "github.com/openhrms/fieldlink/internal/errors"
	"github.com/openhrms/fieldlink/internal/ports"
)

// FileStore persists the token set as a mode-0600 JSON document.
// Writes go through a temp file and rename so a crash mid-write leaves
// either the old document or the new one, never a torn mix.
type FileStore struct {
	path string
	now  func() time.Time
}

var _ ports.TokenStore = (*FileStore)(nil)

// NewFileStore creates a file-backed token store at the given path.
// An empty path defaults to <user config dir>/fieldlink/tokens.json.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, apperrors.Storage(err, "resolve user config dir")
		}
		path = filepath.Join(configDir, "fieldlink", "tokens.json")
	}
	return &FileStore{path: path, now: time.Now}, nil
}

// Save persists the token set. A missing refresh token keeps the previously
// stored one; a missing expiry defaults to now plus the default lifetime.
func (s *FileStore) Save(_ context.Context, tokens domainsession.TokenSet) error {
	if tokens.AccessToken == "" {
		return apperrors.Validation("access token is required")
	}

	if tokens.RefreshToken == "" {
		if prev, err := s.read(); err == nil {
			tokens.RefreshToken = prev.RefreshToken
		}
	}
	tokens = tokens.WithDefaultExpiry(s.now())

	data, err := json.Marshal(tokens)
	if err != nil {
		return apperrors.Storage(err, "encode tokens")
	}

	if mkdirErr := os.MkdirAll(filepath.Dir(s.path), 0o700); mkdirErr != nil {
		return apperrors.Storage(mkdirErr, "create token dir")
	}

	tmp := s.path + ".tmp"
	if writeErr := os.WriteFile(tmp, data, 0o600); writeErr != nil {
		return apperrors.Storage(writeErr, "write tokens")
	}
	if renameErr := os.Rename(tmp, s.path); renameErr != nil {
		return apperrors.Storage(renameErr, "write tokens")
	}
	return nil
}

// Load returns the stored token set. An absent document yields a zero set.
func (s *FileStore) Load(_ context.Context) (domainsession.TokenSet, error) {
	tokens, err := s.read()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domainsession.TokenSet{}, nil
		}
		return domainsession.TokenSet{}, apperrors.Storage(err, "load tokens")
	}
	return tokens, nil
}

// Clear deletes the stored document; already-absent is not an error.
func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return apperrors.Storage(err, "clear tokens")
	}
	return nil
}

func (s *FileStore) read() (domainsession.TokenSet, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return domainsession.TokenSet{}, err
	}
	var tokens domainsession.TokenSet
	if unmarshalErr := json.Unmarshal(data, &tokens); unmarshalErr != nil {
		return domainsession.TokenSet{}, unmarshalErr
	}
	return tokens, nil
}
