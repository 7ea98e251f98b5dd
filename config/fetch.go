package config

import "time"

// FetchConfig contains cached-resource-fetcher configuration.
type FetchConfig struct {
	// SearchDebounce is the coalescing window for text-driven searches.
	// Only the last query inside the window triggers a request.
	SearchDebounce time.Duration `env:"SEARCH_DEBOUNCE" envDefault:"300ms"`

	// VillagePageSize is the page length for village search results.
	VillagePageSize int `env:"VILLAGE_PAGE_SIZE" envDefault:"20"`
}

// Sanitize applies guardrails to fetcher configuration values.
func (f *FetchConfig) Sanitize() {
	if f.SearchDebounce < 0 {
		f.SearchDebounce = 300 * time.Millisecond
	}
	if f.VillagePageSize < 1 {
		f.VillagePageSize = 20
	}
}
