package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	domainsession "github.com/openhrms/fieldlink/internal/domain/session"
	apperrors "github.com/openhrms/fieldlink/internal/errors"
	"github.com/openhrms/fieldlink/internal/ports"
)

// ErrOperationInProgress is returned when a session operation is requested
// while another one is still running. Session operations never queue; the
// caller retries after the running operation settles.
var ErrOperationInProgress = errors.New("session operation already in progress")

// SessionServiceOptions groups dependencies for SessionService.
type SessionServiceOptions struct {
	Authorizer ports.Authorizer
	Exchanger  ports.TokenExchanger
	Store      ports.TokenStore
	Profiles   ports.ProfileLoader
	Logger     *slog.Logger
}

// SessionService owns the session lifecycle: boot-time restore, interactive
// login, token refresh, and logout. It publishes an immutable state snapshot
// after every settled transition.
type SessionService struct {
	authorizer ports.Authorizer
	exchanger  ports.TokenExchanger
	store      ports.TokenStore
	profiles   ports.ProfileLoader
	logger     *slog.Logger
	now        func() time.Time

	// op serializes Boot, Login, and Logout. TryLock instead of Lock: a
	// second concurrent call fails fast rather than queueing behind the
	// first.
	op sync.Mutex

	// refreshes collapses concurrent silent refreshes into a single grant
	// so overlapping AccessToken callers cannot race the token endpoint.
	refreshes singleflight.Group

	mu        sync.Mutex
	state     domainsession.State
	listeners []func(domainsession.State)
}

// NewSessionService constructs a new SessionService.
func NewSessionService(opts SessionServiceOptions) *SessionService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		authorizer: opts.Authorizer,
		exchanger:  opts.Exchanger,
		store:      opts.Store,
		profiles:   opts.Profiles,
		logger:     logger,
		now:        time.Now,
		state:      domainsession.State{Loading: true},
	}
}

// Subscribe registers a listener invoked with every settled state snapshot.
// The listener is called synchronously; it must not call back into the
// service.
func (s *SessionService) Subscribe(fn func(domainsession.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Snapshot returns the current session state.
func (s *SessionService) Snapshot() domainsession.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *SessionService) publish(state domainsession.State) {
	s.mu.Lock()
	s.state = state
	listeners := make([]func(domainsession.State), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

// Boot restores the session from the token store. A valid stored token
// authenticates immediately; an expired token with a refresh token triggers
// one silent refresh; anything else settles unauthenticated, with a failed
// refresh recorded on the state. Boot never opens an interactive flow.
func (s *SessionService) Boot(ctx context.Context) (domainsession.State, error) {
	if !s.op.TryLock() {
		return s.Snapshot(), ErrOperationInProgress
	}
	defer s.op.Unlock()

	s.publish(domainsession.State{Loading: true})

	tokens, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn("token store load failed", "error", err)
		state := domainsession.State{}
		s.publish(state)
		return state, nil
	}

	if tokens.IsZero() {
		state := domainsession.State{}
		s.publish(state)
		return state, nil
	}

	if !tokens.Valid(s.now()) {
		if tokens.RefreshToken == "" {
			s.clearLocal(ctx)
			state := domainsession.State{}
			s.publish(state)
			return state, nil
		}

		refreshed, refreshErr := s.refreshAndSave(ctx, tokens.RefreshToken)
		if refreshErr != nil {
			s.logger.Warn("silent refresh failed, clearing session", "error", refreshErr)
			s.clearLocal(ctx)
			state := domainsession.State{Err: refreshErr}
			s.publish(state)
			return state, nil
		}
		tokens = refreshed
	}

	state := s.settleAuthenticated(ctx, tokens)
	return state, nil
}

// Login runs the interactive authorization-code flow. Cancellation and a
// redirect without a code fail before any token endpoint is called. Profile
// hydration failure is logged and does not block authentication.
func (s *SessionService) Login(ctx context.Context) (domainsession.State, error) {
	if !s.op.TryLock() {
		return s.Snapshot(), ErrOperationInProgress
	}
	defer s.op.Unlock()

	s.publish(domainsession.State{Loading: true})

	code, err := s.authorizer.Authorize(ctx)
	if err != nil {
		state := domainsession.State{Err: err}
		s.publish(state)
		return state, err
	}

	tokens, err := s.exchanger.Exchange(ctx, code)
	if err != nil {
		state := domainsession.State{Err: err}
		s.publish(state)
		return state, err
	}

	if saveErr := s.store.Save(ctx, tokens); saveErr != nil {
		s.logger.Warn("token store save failed", "error", saveErr)
	}

	state := s.settleAuthenticated(ctx, tokens)
	return state, nil
}

// Logout revokes the access token best-effort and clears local state.
// It always succeeds locally: revocation and storage failures are logged,
// never returned.
func (s *SessionService) Logout(ctx context.Context) (domainsession.State, error) {
	if !s.op.TryLock() {
		return s.Snapshot(), ErrOperationInProgress
	}
	defer s.op.Unlock()

	s.mu.Lock()
	accessToken := s.state.AccessToken
	s.mu.Unlock()

	s.publish(domainsession.State{Loading: true})

	if accessToken != "" {
		if err := s.exchanger.Revoke(ctx, accessToken); err != nil {
			s.logger.Warn("token revocation failed", "error", err)
		}
	}

	s.clearLocal(ctx)
	state := domainsession.State{}
	s.publish(state)
	return state, nil
}

// AccessToken returns a currently valid access token, refreshing silently
// when the held one has expired. A failed refresh clears the session and
// settles unauthenticated.
func (s *SessionService) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	if !state.Authenticated || state.AccessToken == "" {
		return "", apperrors.TokenRefreshFailed("not authenticated")
	}

	tokens, err := s.store.Load(ctx)
	if err != nil {
		return "", apperrors.Storage(err, "load tokens")
	}
	if tokens.Valid(s.now()) {
		return tokens.AccessToken, nil
	}
	if tokens.RefreshToken == "" {
		refreshErr := apperrors.TokenRefreshFailed("access token expired and no refresh token held")
		s.clearLocal(ctx)
		s.publish(domainsession.State{Err: refreshErr})
		return "", refreshErr
	}

	refreshed, err := s.refreshAndSave(ctx, tokens.RefreshToken)
	if err != nil {
		s.clearLocal(ctx)
		s.publish(domainsession.State{Err: err})
		return "", err
	}

	s.mu.Lock()
	s.state.AccessToken = refreshed.AccessToken
	state = s.state
	s.mu.Unlock()
	s.publish(state)
	return refreshed.AccessToken, nil
}

// refreshAndSave performs the refresh grant and persists the result.
// Concurrent callers holding the same refresh token share one grant.
func (s *SessionService) refreshAndSave(ctx context.Context, refreshToken string) (domainsession.TokenSet, error) {
	v, err, _ := s.refreshes.Do(refreshToken, func() (any, error) {
		tokens, err := s.exchanger.Refresh(ctx, refreshToken)
		if err != nil {
			return nil, err
		}
		if saveErr := s.store.Save(ctx, tokens); saveErr != nil {
			s.logger.Warn("token store save failed after refresh", "error", saveErr)
		}
		return tokens, nil
	})
	if err != nil {
		return domainsession.TokenSet{}, err
	}
	return v.(domainsession.TokenSet), nil
}

// settleAuthenticated publishes the authenticated state and hydrates the
// profile. A failed hydration leaves Profile nil.
func (s *SessionService) settleAuthenticated(ctx context.Context, tokens domainsession.TokenSet) domainsession.State {
	state := domainsession.State{
		Authenticated: true,
		AccessToken:   tokens.AccessToken,
	}

	if s.profiles != nil {
		profile, err := s.profiles.Fetch(ctx, tokens.AccessToken)
		if err != nil {
			s.logger.Warn("profile hydration failed", "error", err)
		} else {
			state.Profile = &profile
		}
	}

	s.publish(state)
	return state
}

func (s *SessionService) clearLocal(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Warn("token store clear failed", "error", err)
	}
}
