package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/openhrms/fieldlink/config"
	"github.com/openhrms/fieldlink/internal/adapters/frappe"
)

// VillageResults is the published snapshot of a village search.
type VillageResults struct {
	Query    string
	Villages []frappe.Village
	HasMore  bool
	Loading  bool
	Err      error
}

// VillageSearcherOptions groups dependencies for VillageSearcher.
type VillageSearcherOptions struct {
	Client *frappe.Client
	Token  TokenFunc
	Config config.FetchConfig
	Logger *slog.Logger
}

// VillageSearcher drives the debounced, paginated village lookup. Query
// changes are coalesced inside the debounce window and only the latest
// query's response is published; stale responses are dropped. LoadMore
// appends the next page and is a no-op while a request is in flight or
// when the last page was short.
type VillageSearcher struct {
	client   *frappe.Client
	token    TokenFunc
	debounce time.Duration
	pageSize int
	logger   *slog.Logger

	mu       sync.Mutex
	seq      uint64
	timer    *time.Timer
	loading  bool
	results  VillageResults
	page     int
	onUpdate func(VillageResults)
}

// NewVillageSearcher constructs a new VillageSearcher.
func NewVillageSearcher(opts VillageSearcherOptions) *VillageSearcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	cfg.Sanitize()
	return &VillageSearcher{
		client:   opts.Client,
		token:    opts.Token,
		debounce: cfg.SearchDebounce,
		pageSize: cfg.VillagePageSize,
		logger:   logger,
	}
}

// OnUpdate registers the listener invoked with every published snapshot.
// The listener runs on the goroutine that settled the request.
func (s *VillageSearcher) OnUpdate(fn func(VillageResults)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdate = fn
}

// Results returns the last published snapshot.
func (s *VillageSearcher) Results() VillageResults {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// SetQuery schedules a fresh search for q after the debounce window.
// Rapid successive calls cancel each other; only the last query inside the
// window reaches the backend.
func (s *VillageSearcher) SetQuery(ctx context.Context, q string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	seq := s.seq
	s.page = 0
	s.results = VillageResults{Query: q, Loading: true}
	s.publishLocked()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.run(ctx, seq, q, 0, nil)
	})
}

// LoadMore fetches the next page for the current query. It is a no-op when
// a request is already in flight or when the backend has no further pages.
func (s *VillageSearcher) LoadMore(ctx context.Context) {
	s.mu.Lock()
	if s.loading || !s.results.HasMore {
		s.mu.Unlock()
		return
	}
	s.loading = true
	seq := s.seq
	q := s.results.Query
	page := s.page + 1
	prev := s.results.Villages
	s.mu.Unlock()

	s.run(ctx, seq, q, page, prev)
}

// run performs one page fetch and publishes the result unless a newer query
// superseded it while the request was in flight.
func (s *VillageSearcher) run(ctx context.Context, seq uint64, q string, page int, prev []frappe.Village) {
	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return
	}
	s.loading = true
	s.mu.Unlock()

	result, err := s.search(ctx, q, page)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		// Superseded while in flight. The loading flag belongs to the
		// newer request now; a stale settle must not release it.
		return
	}
	s.loading = false

	if err != nil {
		s.logger.Warn("village search failed", "query", q, "page", page, "error", err)
		// A failed first page publishes empty results; a failed later page
		// keeps what is already shown.
		s.results = VillageResults{Query: q, Villages: prev, HasMore: s.results.HasMore, Err: err}
		s.publishLocked()
		return
	}

	s.page = page
	s.results = VillageResults{
		Query:    q,
		Villages: append(prev, result.Villages...),
		HasMore:  result.HasMore,
	}
	s.publishLocked()
}

func (s *VillageSearcher) search(ctx context.Context, q string, page int) (frappe.VillagePage, error) {
	accessToken, err := s.token(ctx)
	if err != nil {
		return frappe.VillagePage{}, err
	}
	return s.client.SearchVillages(ctx, accessToken, q, page, s.pageSize)
}

func (s *VillageSearcher) publishLocked() {
	if s.onUpdate != nil {
		s.onUpdate(s.results)
	}
}
