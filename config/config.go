package config

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: OAuth and token-store configuration
//   - api.go: HRMS backend API configuration
//   - fetch.go: Resource fetcher configuration
type AppConfig struct {
	// API is the HRMS backend configuration.
	API APIConfig `envPrefix:"HRMS_"`

	// Auth groups OAuth and dev-auth configuration.
	Auth AuthConfig

	// Store is the token-store configuration.
	Store StoreConfig

	// Fetch is the cached-resource-fetcher configuration.
	Fetch FetchConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.API.Sanitize()
	c.Auth.Sanitize(c.API.BaseURL)
	c.Fetch.Sanitize()
}
