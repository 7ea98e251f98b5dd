package session

// Package session contains simple hand-written test doubles for the session
// ports. These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"sync"
	"time"

	domainsession "github.com/openhrms/fieldlink/internal/domain/session"
	apperrors "github.com/openhrms/fieldlink/internal/errors"
	"github.com/openhrms/fieldlink/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.Authorizer     = (*MockAuthorizer)(nil)
	_ ports.TokenExchanger = (*MockTokenExchanger)(nil)
	_ ports.TokenStore     = (*MemoryTokenStore)(nil)
	_ ports.ProfileLoader  = (*MockProfileLoader)(nil)
)

// MockAuthorizer simulates the interactive authorization leg with a canned
// code or error.
type MockAuthorizer struct {
	AuthorizeFunc func(ctx context.Context) (string, error)

	Code string
	Err  error

	Calls int
}

// NewMockAuthorizer creates a MockAuthorizer that returns the given code.
func NewMockAuthorizer(code string) *MockAuthorizer {
	return &MockAuthorizer{Code: code}
}

func (m *MockAuthorizer) Authorize(ctx context.Context) (string, error) {
	m.Calls++
	if m.AuthorizeFunc != nil {
		return m.AuthorizeFunc(ctx)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Code, nil
}

// MockTokenExchanger simulates the provider's token endpoint with canned
// token sets and per-grant call counters.
type MockTokenExchanger struct {
	ExchangeFunc func(ctx context.Context, code string) (domainsession.TokenSet, error)
	RefreshFunc  func(ctx context.Context, refreshToken string) (domainsession.TokenSet, error)
	RevokeFunc   func(ctx context.Context, accessToken string) error

	Tokens domainsession.TokenSet

	ExchangeCalls int
	RefreshCalls  int
	RevokeCalls   int
}

// NewMockTokenExchanger creates a MockTokenExchanger with a default token set.
func NewMockTokenExchanger() *MockTokenExchanger {
	return &MockTokenExchanger{
		Tokens: domainsession.TokenSet{
			AccessToken:  "mock-access-token",
			RefreshToken: "mock-refresh-token",
			ExpiresAt:    time.Now().Add(time.Hour),
		},
	}
}

func (m *MockTokenExchanger) Exchange(ctx context.Context, code string) (domainsession.TokenSet, error) {
	m.ExchangeCalls++
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, code)
	}
	return m.Tokens, nil
}

func (m *MockTokenExchanger) Refresh(ctx context.Context, refreshToken string) (domainsession.TokenSet, error) {
	m.RefreshCalls++
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return m.Tokens, nil
}

func (m *MockTokenExchanger) Revoke(ctx context.Context, accessToken string) error {
	m.RevokeCalls++
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, accessToken)
	}
	return nil
}

// MemoryTokenStore is an in-memory token store for unit tests with optional
// fault injection per operation.
type MemoryTokenStore struct {
	SaveErr  error
	LoadErr  error
	ClearErr error

	mu     sync.Mutex
	tokens domainsession.TokenSet

	SaveCalls  int
	LoadCalls  int
	ClearCalls int
}

// NewMemoryTokenStore creates a new in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// Seed places a token set in the store without counting as a Save call.
func (m *MemoryTokenStore) Seed(tokens domainsession.TokenSet) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = tokens
}

func (m *MemoryTokenStore) Save(_ context.Context, tokens domainsession.TokenSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if tokens.AccessToken == "" {
		return apperrors.Validation("access token is required")
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = m.tokens.RefreshToken
	}
	m.tokens = tokens.WithDefaultExpiry(time.Now())
	return nil
}

func (m *MemoryTokenStore) Load(_ context.Context) (domainsession.TokenSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoadCalls++
	if m.LoadErr != nil {
		return domainsession.TokenSet{}, m.LoadErr
	}
	return m.tokens, nil
}

func (m *MemoryTokenStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClearCalls++
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.tokens = domainsession.TokenSet{}
	return nil
}

// Stored returns the current token set without counting as a Load call.
func (m *MemoryTokenStore) Stored() domainsession.TokenSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens
}

// MockProfileLoader returns a canned profile or error.
type MockProfileLoader struct {
	FetchFunc func(ctx context.Context, accessToken string) (domainsession.Profile, error)

	Profile domainsession.Profile
	Err     error

	Calls int
}

// NewMockProfileLoader creates a MockProfileLoader with a default profile.
func NewMockProfileLoader() *MockProfileLoader {
	return &MockProfileLoader{
		Profile: domainsession.Profile{
			UserID:      "mock.user@example.com",
			FullName:    "Mock User",
			FirstName:   "Mock",
			DisplayName: "Mock User",
		},
	}
}

func (m *MockProfileLoader) Fetch(ctx context.Context, accessToken string) (domainsession.Profile, error) {
	m.Calls++
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, accessToken)
	}
	if m.Err != nil {
		return domainsession.Profile{}, m.Err
	}
	return m.Profile, nil
}
