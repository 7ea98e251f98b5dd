package config

import (
	"strings"
	"time"
)

// APIConfig contains configuration for the HRMS backend REST API.
type APIConfig struct {
	// BaseURL is the root of the Frappe/HRMS site, e.g. "https://hrms.example.com".
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8000"`

	// Timeout bounds every individual request issued by the API client.
	// Zero disables the bound entirely.
	Timeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`

	// Company scopes company-dependent resources (shift types, reason options).
	Company string `env:"COMPANY" envDefault:""`
}

// Sanitize applies guardrails to API configuration values.
func (a *APIConfig) Sanitize() {
	a.BaseURL = strings.TrimSuffix(a.BaseURL, "/")
	if a.Timeout < 0 {
		a.Timeout = 30 * time.Second
	}
}
