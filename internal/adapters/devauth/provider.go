package devauth

// Package devauth provides a local stub identity for development. It never
// talks to a backend: the authorization leg returns a fixed code, the token
// endpoints mint deterministic short-lived tokens, and the profile comes
// straight from configuration. Enabled only via AUTH_MODE=mock.

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainsession "github.com/openhrms/fieldlink/internal/domain/session"
	"github.com/openhrms/fieldlink/internal/ports"
)

// Config controls the stub identity.
type Config struct {
	UserID    string
	FullName  string
	FirstName string
	// TokenLifetime defaults to one hour.
	TokenLifetime time.Duration
}

// Provider implements the session ports against a local stub identity.
type Provider struct {
	cfg Config
	now func() time.Time
	seq int
}

var (
	_ ports.Authorizer     = (*Provider)(nil)
	_ ports.TokenExchanger = (*Provider)(nil)
	_ ports.ProfileLoader  = (*Provider)(nil)
)

// NewProvider creates a dev auth provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.UserID == "" {
		return nil, errors.New("user ID is required")
	}
	if cfg.TokenLifetime <= 0 {
		cfg.TokenLifetime = time.Hour
	}
	return &Provider{cfg: cfg, now: time.Now}, nil
}

// Authorize returns a fixed authorization code without any interaction.
func (p *Provider) Authorize(_ context.Context) (string, error) {
	return "dev-auth-code", nil
}

// Exchange mints a fresh stub token set for any code.
func (p *Provider) Exchange(_ context.Context, _ string) (domainsession.TokenSet, error) {
	return p.mint(), nil
}

// Refresh mints a fresh stub token set for any refresh token.
func (p *Provider) Refresh(_ context.Context, _ string) (domainsession.TokenSet, error) {
	return p.mint(), nil
}

// Revoke is a no-op.
func (p *Provider) Revoke(_ context.Context, _ string) error {
	return nil
}

// Fetch returns the configured stub profile.
func (p *Provider) Fetch(_ context.Context, _ string) (domainsession.Profile, error) {
	return domainsession.Profile{
		UserID:      p.cfg.UserID,
		FullName:    p.cfg.FullName,
		FirstName:   p.cfg.FirstName,
		DisplayName: domainsession.DisplayNameFor(p.cfg.FullName, p.cfg.FirstName, p.cfg.UserID),
	}, nil
}

func (p *Provider) mint() domainsession.TokenSet {
	p.seq++
	return domainsession.TokenSet{
		AccessToken:  fmt.Sprintf("dev-access-token-%d", p.seq),
		RefreshToken: "dev-refresh-token",
		ExpiresAt:    p.now().Add(p.cfg.TokenLifetime),
	}
}
