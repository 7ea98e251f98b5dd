package oauth

// Package oauth implements the token-endpoint grants against the Frappe
// identity provider. The interactive authorization leg lives in
// internal/adapters/browser; this package covers code exchange, refresh,
// and revocation.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	domainsession "github.com/openhrms/fieldlink/internal/domain/session"
	apperrors "github.com/openhrms/fieldlink/internal/errors"
	"github.com/openhrms/fieldlink/internal/ports"
)

// Provider implements ports.TokenExchanger using OAuth2.
type Provider struct {
	config     *oauth2.Config
	revokeURL  string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.TokenExchanger = (*Provider)(nil)

// ProviderConfig holds configuration for the OAuth provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string // empty for public clients
	RedirectURL  string
	Scope        string
	AuthorizeURL string
	TokenURL     string
	RevokeURL    string
	DiscoveryURL string       // optional; overrides the static endpoints
	HTTPClient   *http.Client // optional, defaults to a 30s-timeout client
	Logger       *slog.Logger // optional
}

// NewProvider creates a new OAuth provider. When a discovery URL is
// configured the authorize and token endpoints are resolved from the
// provider's openid-configuration document (single discovery fetch);
// otherwise the statically configured endpoints are used.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	endpoint := oauth2.Endpoint{
		AuthURL:  cfg.AuthorizeURL,
		TokenURL: cfg.TokenURL,
	}
	if cfg.DiscoveryURL != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		issuer := strings.TrimSuffix(cfg.DiscoveryURL, "/")
		issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
		issuer = strings.TrimSuffix(issuer, ".well-known/openid-configuration")
		op, err := gooidc.NewProvider(ctx, issuer)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "oidc discovery")
		}
		endpoint = op.Endpoint()
	}
	if endpoint.AuthURL == "" || endpoint.TokenURL == "" {
		return nil, errors.New("authorize and token URLs are required")
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       strings.Fields(cfg.Scope),
			Endpoint:     endpoint,
		},
		revokeURL:  cfg.RevokeURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// AuthCodeURL builds the authorization URL for the interactive leg.
func (p *Provider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("response_type", "code"),
	)
}

// RedirectURL returns the configured redirect URL.
func (p *Provider) RedirectURL() string {
	return p.config.RedirectURL
}

// Exchange redeems an authorization code for a token set.
func (p *Provider) Exchange(ctx context.Context, code string) (domainsession.TokenSet, error) {
	if code == "" {
		return domainsession.TokenSet{}, apperrors.MissingAuthorizationCode("authorization code is required")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return domainsession.TokenSet{}, apperrors.Wrap(err,
			apperrors.ErrCodeTokenExchangeFailed, providerFailure(err))
	}
	return tokenSetFrom(token), nil
}

// Refresh mints a new token set from a refresh token. The provider may or may
// not rotate the refresh token; an absent one in the response means the old
// one stays valid.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (domainsession.TokenSet, error) {
	if refreshToken == "" {
		return domainsession.TokenSet{}, apperrors.TokenRefreshFailed("refresh token is required")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	src := p.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return domainsession.TokenSet{}, apperrors.Wrap(err,
			apperrors.ErrCodeTokenRefreshFailed, providerFailure(err))
	}

	set := tokenSetFrom(token)
	if set.RefreshToken == refreshToken {
		// oauth2 copies the old refresh token forward; report it only when
		// the provider actually rotated so the store can keep the stored one.
		set.RefreshToken = ""
	}
	return set, nil
}

// Revoke invalidates the access token at the provider. A non-2xx response is
// logged and swallowed: local sign-out takes priority over remote revocation
// confirmation. Transport errors are returned for the caller to log.
func (p *Provider) Revoke(ctx context.Context, accessToken string) error {
	if p.revokeURL == "" || accessToken == "" {
		return nil
	}

	form := url.Values{"token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revokeURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.logger.Warn("token revocation rejected", "status", resp.StatusCode)
	}
	return nil
}

// tokenSetFrom converts an oauth2 token into the domain token set. When the
// response carried no expires_in, the expiry is sniffed from the access
// token's exp claim; the token store applies its default when both are absent.
func tokenSetFrom(token *oauth2.Token) domainsession.TokenSet {
	set := domainsession.TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	if set.ExpiresAt.IsZero() {
		set.ExpiresAt = jwtExpiry(token.AccessToken)
	}
	return set
}

// jwtExpiry reads the exp claim of a JWT-shaped access token without
// verifying the signature. Returns the zero time for opaque tokens.
func jwtExpiry(accessToken string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// providerFailure extracts the provider's error_description from a token
// endpoint failure when parseable, else falls back to the HTTP status text.
func providerFailure(err error) string {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return "token endpoint request failed"
	}

	if re.ErrorDescription != "" {
		return re.ErrorDescription
	}
	var body struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if jsonErr := json.Unmarshal(re.Body, &body); jsonErr == nil {
		if body.ErrorDescription != "" {
			return body.ErrorDescription
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if re.Response != nil {
		if text := http.StatusText(re.Response.StatusCode); text != "" {
			return text
		}
	}
	return "token endpoint request failed"
}
