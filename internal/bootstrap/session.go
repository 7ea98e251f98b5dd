package bootstrap

import (
	"fmt"
	"log/slog"
	"net/http"

	goredis "github.com/redis/go-redis/v9"

	"github.com/openhrms/fieldlink/config"
	"github.com/openhrms/fieldlink/internal/adapters/browser"
	"github.com/openhrms/fieldlink/internal/adapters/devauth"
	"github.com/openhrms/fieldlink/internal/adapters/frappe"
	"github.com/openhrms/fieldlink/internal/adapters/oauth"
	redisadapter "github.com/openhrms/fieldlink/internal/adapters/redis"
	"github.com/openhrms/fieldlink/internal/adapters/tokenstore"
	"github.com/openhrms/fieldlink/internal/ports"
	"github.com/openhrms/fieldlink/internal/service"
)

// SessionConfig contains configuration for the session service.
type SessionConfig struct {
	App    config.AppConfig
	Logger *slog.Logger
}

// BuildAPIClient creates the HRMS API client from configuration.
func BuildAPIClient(cfg config.APIConfig) (*frappe.Client, error) {
	return frappe.NewClient(frappe.ClientConfig{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	})
}

// BuildSessionService wires the session service for the configured auth and
// store modes.
func BuildSessionService(cfg SessionConfig, client *frappe.Client) (*service.SessionService, error) {
	store, err := buildTokenStore(cfg.App)
	if err != nil {
		return nil, err
	}

	switch cfg.App.Auth.Mode {
	case config.AuthModeMock:
		return buildDevSessionService(cfg, store)
	case config.AuthModeOAuth:
		return buildOAuthSessionService(cfg, store, client)
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.App.Auth.Mode)
	}
}

func buildTokenStore(cfg config.AppConfig) (ports.TokenStore, error) {
	switch cfg.Store.Mode {
	case config.StoreModeFile:
		return tokenstore.NewFileStore(cfg.Store.Path)
	case config.StoreModeRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		return redisadapter.NewTokenStore(client, cfg.Store.Namespace), nil
	case config.StoreModeMemory:
		return tokenstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported token store mode %q", cfg.Store.Mode)
	}
}

func buildDevSessionService(cfg SessionConfig, store ports.TokenStore) (*service.SessionService, error) {
	prov, err := devauth.NewProvider(devauth.Config{
		UserID:    cfg.App.Auth.DevAuth.UserID,
		FullName:  cfg.App.Auth.DevAuth.FullName,
		FirstName: cfg.App.Auth.DevAuth.FirstName,
	})
	if err != nil {
		return nil, fmt.Errorf("create dev auth provider: %w", err)
	}

	return service.NewSessionService(service.SessionServiceOptions{
		Authorizer: prov,
		Exchanger:  prov,
		Store:      store,
		Profiles:   prov,
		Logger:     cfg.Logger,
	}), nil
}

func buildOAuthSessionService(cfg SessionConfig, store ports.TokenStore, client *frappe.Client) (*service.SessionService, error) {
	oauthCfg := cfg.App.Auth.OAuth
	prov, err := oauth.NewProvider(oauth.ProviderConfig{
		ClientID:     oauthCfg.ClientID,
		ClientSecret: oauthCfg.ClientSecret,
		RedirectURL:  oauthCfg.RedirectURL,
		Scope:        oauthCfg.Scope,
		AuthorizeURL: oauthCfg.AuthorizeURL,
		TokenURL:     oauthCfg.TokenURL,
		RevokeURL:    oauthCfg.RevokeURL,
		DiscoveryURL: oauthCfg.DiscoveryURL,
		HTTPClient:   &http.Client{Timeout: cfg.App.API.Timeout},
		Logger:       cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create oauth provider: %w", err)
	}

	flow, err := browser.NewFlow(browser.FlowConfig{
		AuthCodeURL: prov.AuthCodeURL,
		RedirectURL: oauthCfg.RedirectURL,
		Logger:      cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create browser flow: %w", err)
	}

	return service.NewSessionService(service.SessionServiceOptions{
		Authorizer: flow,
		Exchanger:  prov,
		Store:      store,
		Profiles:   service.NewProfileService(client),
		Logger:     cfg.Logger,
	}), nil
}
