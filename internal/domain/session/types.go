package session

// Package session contains domain-level types for the authenticated session.
// It is pure and free of adapter/transport concerns.

import "time"

// TokenSet is the credential bundle persisted between runs.
// RefreshToken may be empty when the provider did not issue one.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// DefaultExpiry is assumed when the provider reports no token lifetime.
const DefaultExpiry = time.Hour

// IsZero reports whether no access token is held.
func (t TokenSet) IsZero() bool { return t.AccessToken == "" }

// WithDefaultExpiry returns a copy whose expiry falls back to now plus
// DefaultExpiry when the set carries no absolute expiry.
func (t TokenSet) WithDefaultExpiry(now time.Time) TokenSet {
	if t.ExpiresAt.IsZero() {
		t.ExpiresAt = now.Add(DefaultExpiry)
	}
	return t
}

// Valid reports whether the access token is usable at the given instant.
// A token whose expiry equals now is still considered valid; expiry is
// the first instant at which the token must not be used minus nothing,
// i.e. the token expires strictly after ExpiresAt.
func (t TokenSet) Valid(now time.Time) bool {
	if t.AccessToken == "" {
		return false
	}
	if t.ExpiresAt.IsZero() {
		return true
	}
	return !now.After(t.ExpiresAt)
}

// Profile is the display identity hydrated after authentication.
// It is replaced wholesale on each login or refresh cycle.
type Profile struct {
	UserID      string `json:"user_id"`
	FullName    string `json:"full_name"`
	FirstName   string `json:"first_name"`
	DisplayName string `json:"display_name"`
}

// DisplayNameFor resolves the display name from an ordered fallback chain:
// full name, then first name, then the raw user identifier.
func DisplayNameFor(fullName, firstName, userID string) string {
	return firstNonEmpty(fullName, firstName, userID)
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// State is the published session snapshot consumed by callers.
// Authenticated implies AccessToken is non-empty and was valid (or freshly
// refreshed) when the snapshot settled. Profile may be nil while hydration
// is still in flight or when it failed without blocking authentication.
type State struct {
	Authenticated bool
	Loading       bool
	AccessToken   string
	Err           error
	Profile       *Profile
}
