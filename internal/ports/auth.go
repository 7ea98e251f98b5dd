package ports

// Package ports defines interfaces (hexagonal ports) for session-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainsession "github.com/openhrms/fieldlink/internal/domain/session"
)

// Authorizer runs the interactive leg of the authorization-code flow and
// returns the code delivered on the redirect. Implementations surface user
// cancellation as an AuthCancelled error and a redirect that carries no code
// as a MissingAuthorizationCode error. There is no automatic retry.
type Authorizer interface {
	Authorize(ctx context.Context) (code string, err error)
}

// TokenExchanger performs the non-interactive grants against the identity
// provider's token and revocation endpoints.
type TokenExchanger interface {
	// Exchange redeems an authorization code for a token set.
	Exchange(ctx context.Context, code string) (domainsession.TokenSet, error)

	// Refresh mints a new token set from a refresh token.
	Refresh(ctx context.Context, refreshToken string) (domainsession.TokenSet, error)

	// Revoke invalidates the access token at the provider.
	Revoke(ctx context.Context, accessToken string) error
}

// TokenStore persists and retrieves the session's token set in durable
// key-value storage. Save keeps a previously stored refresh token when the
// incoming set carries none, and applies a default expiry when the incoming
// set has no absolute expiry. Clear tolerates already-absent entries.
type TokenStore interface {
	Save(ctx context.Context, tokens domainsession.TokenSet) error
	Load(ctx context.Context) (domainsession.TokenSet, error)
	Clear(ctx context.Context) error
}

// ProfileLoader materializes the display profile for a bearer token.
type ProfileLoader interface {
	Fetch(ctx context.Context, accessToken string) (domainsession.Profile, error)
}
