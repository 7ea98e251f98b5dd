package config

import (
	"fmt"
	"strings"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOAuth uses the OAuth authorization-code flow against the HRMS site.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses a stub identity (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// OAuthConfig contains OAuth configuration for the Frappe identity provider.
// The endpoint URLs default to the Frappe OAuth method paths derived from the
// API base URL; set DISCOVERY_URL to resolve them from the provider's
// openid-configuration document instead.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:""`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://127.0.0.1:8713/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid all"`
	AuthorizeURL string `env:"AUTHORIZE_URL"`
	TokenURL     string `env:"TOKEN_URL"`
	RevokeURL    string `env:"REVOKE_URL"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
}

// DevAuthConfig controls the mock identity used when AUTH_MODE=mock.
type DevAuthConfig struct {
	UserID    string `env:"USER_ID"    envDefault:"dev-user@example.com"`
	FullName  string `env:"FULL_NAME"  envDefault:"Dev User"`
	FirstName string `env:"FIRST_NAME" envDefault:"Dev"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`
}

// Sanitize fills in the Frappe OAuth endpoint defaults from the API base URL.
// Explicitly configured endpoints and discovery take precedence.
func (a *AuthConfig) Sanitize(baseURL string) {
	base := strings.TrimSuffix(baseURL, "/")
	if a.OAuth.AuthorizeURL == "" {
		a.OAuth.AuthorizeURL = base + "/api/method/frappe.integrations.oauth2.authorize"
	}
	if a.OAuth.TokenURL == "" {
		a.OAuth.TokenURL = base + "/api/method/frappe.integrations.oauth2.get_token"
	}
	if a.OAuth.RevokeURL == "" {
		a.OAuth.RevokeURL = base + "/api/method/frappe.integrations.oauth2.revoke_token"
	}
}
