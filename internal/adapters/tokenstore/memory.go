package tokenstore

import (
	"context"
	"sync"
	"time"

	domainsession "github.com/openhrms/fieldlink/internal/domain/session"
	apperrors "github.com/openhrms/fieldlink/internal/errors"
	"github.com/openhrms/fieldlink/internal/ports"
)

// MemoryStore keeps the token set in process memory only. Used by the mock
// auth mode and in tests.
type MemoryStore struct {
	mu     sync.Mutex
	tokens domainsession.TokenSet
	now    func() time.Time
}

var _ ports.TokenStore = (*MemoryStore)(nil)

// NewMemoryStore creates an in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, tokens domainsession.TokenSet) error {
	if tokens.AccessToken == "" {
		return apperrors.Validation("access token is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = s.tokens.RefreshToken
	}
	s.tokens = tokens.WithDefaultExpiry(s.now())
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (domainsession.TokenSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = domainsession.TokenSet{}
	return nil
}
