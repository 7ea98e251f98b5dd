package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainsession "github.com/openhrms/fieldlink/internal/domain/session"
	apperrors "github.com/openhrms/fieldlink/internal/errors"
	"github.com/openhrms/fieldlink/internal/mocks"
	mocksession "github.com/openhrms/fieldlink/internal/mocks/session"
	"github.com/openhrms/fieldlink/internal/testutil"
)

type sessionFixture struct {
	authorizer *mocksession.MockAuthorizer
	exchanger  *mocksession.MockTokenExchanger
	store      *mocksession.MemoryTokenStore
	profiles   *mocksession.MockProfileLoader
	svc        *SessionService
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		authorizer: mocksession.NewMockAuthorizer("auth-code-1"),
		exchanger:  mocksession.NewMockTokenExchanger(),
		store:      mocksession.NewMemoryTokenStore(),
		profiles:   mocksession.NewMockProfileLoader(),
	}
	f.svc = NewSessionService(SessionServiceOptions{
		Authorizer: f.authorizer,
		Exchanger:  f.exchanger,
		Store:      f.store,
		Profiles:   f.profiles,
	})
	return f
}

func TestSessionService_Boot_NoStoredTokens(t *testing.T) {
	f := newSessionFixture(t)

	state, err := f.svc.Boot(context.Background())
	require.NoError(t, err)

	assert.False(t, state.Authenticated)
	assert.False(t, state.Loading)
	assert.Zero(t, f.exchanger.ExchangeCalls)
	assert.Zero(t, f.exchanger.RefreshCalls)
}

func TestSessionService_Boot_ValidStoredToken(t *testing.T) {
	f := newSessionFixture(t)
	f.store.Seed(domainsession.TokenSet{
		AccessToken: "stored-at",
		ExpiresAt:   time.Now().Add(time.Hour),
	})

	state, err := f.svc.Boot(context.Background())
	require.NoError(t, err)

	assert.True(t, state.Authenticated)
	assert.Equal(t, "stored-at", state.AccessToken)
	require.NotNil(t, state.Profile)
	assert.Equal(t, "Mock User", state.Profile.DisplayName)
	assert.Zero(t, f.exchanger.RefreshCalls, "a valid token needs no refresh")
}

func TestSessionService_Boot_TokenValidAtExactExpiry(t *testing.T) {
	f := newSessionFixture(t)
	now := testutil.TestTime()
	f.svc.now = testutil.FixedTimeFunc(now)
	f.store.Seed(domainsession.TokenSet{AccessToken: "stored-at", ExpiresAt: now})

	state, err := f.svc.Boot(context.Background())
	require.NoError(t, err)

	assert.True(t, state.Authenticated)
	assert.Zero(t, f.exchanger.RefreshCalls)
}

func TestSessionService_Boot_ExpiredTokenRefreshes(t *testing.T) {
	f := newSessionFixture(t)
	f.store.Seed(domainsession.TokenSet{
		AccessToken:  "stale-at",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	})
	f.exchanger.Tokens = domainsession.TokenSet{
		AccessToken: "fresh-at",
		ExpiresAt:   time.Now().Add(time.Hour),
	}

	state, err := f.svc.Boot(context.Background())
	require.NoError(t, err)

	assert.True(t, state.Authenticated)
	assert.Equal(t, "fresh-at", state.AccessToken)
	assert.Equal(t, 1, f.exchanger.RefreshCalls)
	assert.Equal(t, "fresh-at", f.store.Stored().AccessToken)
	assert.Equal(t, "rt-1", f.store.Stored().RefreshToken, "rotationless refresh keeps the stored refresh token")
}

func TestSessionService_Boot_RefreshFailureClearsSession(t *testing.T) {
	f := newSessionFixture(t)
	f.store.Seed(domainsession.TokenSet{
		AccessToken:  "stale-at",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	})
	f.exchanger.RefreshFunc = func(context.Context, string) (domainsession.TokenSet, error) {
		return domainsession.TokenSet{}, apperrors.TokenRefreshFailed("invalid_grant")
	}

	state, err := f.svc.Boot(context.Background())
	require.NoError(t, err, "a failed silent refresh settles unauthenticated, it is not a boot error")

	assert.False(t, state.Authenticated)
	require.Error(t, state.Err, "the refresh failure is recorded on the state")
	assert.True(t, apperrors.IsTokenRefreshFailed(state.Err))
	assert.Equal(t, state.Err, f.svc.Snapshot().Err)
	assert.True(t, f.store.Stored().IsZero())
}

func TestSessionService_Boot_ExpiredTokenWithoutRefreshToken(t *testing.T) {
	f := newSessionFixture(t)
	f.store.Seed(domainsession.TokenSet{
		AccessToken: "stale-at",
		ExpiresAt:   time.Now().Add(-time.Minute),
	})

	state, err := f.svc.Boot(context.Background())
	require.NoError(t, err)

	assert.False(t, state.Authenticated)
	assert.Zero(t, f.exchanger.RefreshCalls)
}

func TestSessionService_Login_HappyPath(t *testing.T) {
	f := newSessionFixture(t)

	state, err := f.svc.Login(context.Background())
	require.NoError(t, err)

	assert.True(t, state.Authenticated)
	assert.Equal(t, "mock-access-token", state.AccessToken)
	require.NotNil(t, state.Profile)
	assert.Equal(t, 1, f.exchanger.ExchangeCalls)
	assert.Equal(t, "mock-access-token", f.store.Stored().AccessToken)
}

func TestSessionService_Login_CancelledBeforeTokenEndpoint(t *testing.T) {
	f := newSessionFixture(t)
	f.authorizer.Err = apperrors.AuthCancelled("user closed the browser")

	state, err := f.svc.Login(context.Background())
	require.Error(t, err)

	assert.True(t, apperrors.IsAuthCancelled(err))
	assert.False(t, state.Authenticated)
	assert.Zero(t, f.exchanger.ExchangeCalls, "cancellation must not reach the token endpoint")
	assert.Zero(t, f.store.SaveCalls)
}

func TestSessionService_Login_ExchangeFailure(t *testing.T) {
	f := newSessionFixture(t)
	f.exchanger.ExchangeFunc = func(context.Context, string) (domainsession.TokenSet, error) {
		return domainsession.TokenSet{}, apperrors.TokenExchangeFailed("invalid_grant")
	}

	state, err := f.svc.Login(context.Background())
	require.Error(t, err)

	assert.True(t, apperrors.IsTokenExchangeFailed(err))
	assert.False(t, state.Authenticated)
	assert.Zero(t, f.store.SaveCalls)
}

func TestSessionService_Login_ProfileFailureDoesNotBlockAuth(t *testing.T) {
	f := newSessionFixture(t)
	f.profiles.Err = apperrors.ProfileFetchFailed("user endpoint returned 404")

	state, err := f.svc.Login(context.Background())
	require.NoError(t, err)

	assert.True(t, state.Authenticated)
	assert.Nil(t, state.Profile)
}

func TestSessionService_Logout_RevokesAndClears(t *testing.T) {
	f := newSessionFixture(t)
	_, err := f.svc.Login(context.Background())
	require.NoError(t, err)

	state, err := f.svc.Logout(context.Background())
	require.NoError(t, err)

	assert.False(t, state.Authenticated)
	assert.Empty(t, state.AccessToken)
	assert.Equal(t, 1, f.exchanger.RevokeCalls)
	assert.True(t, f.store.Stored().IsZero())
}

func TestSessionService_Logout_SucceedsDespiteRevocationFailure(t *testing.T) {
	f := newSessionFixture(t)
	_, err := f.svc.Login(context.Background())
	require.NoError(t, err)

	f.exchanger.RevokeFunc = func(context.Context, string) error {
		return &apperrors.FetchError{Status: 500, Body: "server error"}
	}

	state, err := f.svc.Logout(context.Background())
	require.NoError(t, err, "logout always succeeds locally")
	assert.False(t, state.Authenticated)
	assert.True(t, f.store.Stored().IsZero())
}

func TestSessionService_Logout_PublishesLoadingSnapshot(t *testing.T) {
	f := newSessionFixture(t)
	_, err := f.svc.Login(context.Background())
	require.NoError(t, err)

	var mu sync.Mutex
	var snapshots []domainsession.State
	f.svc.Subscribe(func(s domainsession.State) {
		mu.Lock()
		snapshots = append(snapshots, s)
		mu.Unlock()
	})

	_, err = f.svc.Logout(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, snapshots, 2)
	assert.True(t, snapshots[0].Loading)
	assert.False(t, snapshots[1].Loading)
	assert.False(t, snapshots[1].Authenticated)
}

func TestSessionService_Logout_WhenUnauthenticatedSkipsRevocation(t *testing.T) {
	f := newSessionFixture(t)
	_, err := f.svc.Boot(context.Background())
	require.NoError(t, err)

	_, err = f.svc.Logout(context.Background())
	require.NoError(t, err)
	assert.Zero(t, f.exchanger.RevokeCalls)
}

func TestSessionService_ConcurrentLoginRejected(t *testing.T) {
	f := newSessionFixture(t)

	started := make(chan struct{})
	release := make(chan struct{})
	f.authorizer.AuthorizeFunc = func(context.Context) (string, error) {
		close(started)
		<-release
		return "auth-code-1", nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := f.svc.Login(context.Background())
		assert.NoError(t, err)
	}()

	<-started
	_, err := f.svc.Login(context.Background())
	assert.ErrorIs(t, err, ErrOperationInProgress)
	_, err = f.svc.Logout(context.Background())
	assert.ErrorIs(t, err, ErrOperationInProgress)

	close(release)
	wg.Wait()
}

func TestSessionService_Subscribe_ReceivesSettledSnapshots(t *testing.T) {
	f := newSessionFixture(t)

	var mu sync.Mutex
	var snapshots []domainsession.State
	f.svc.Subscribe(func(s domainsession.State) {
		mu.Lock()
		snapshots = append(snapshots, s)
		mu.Unlock()
	})

	_, err := f.svc.Login(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, snapshots, 2)
	assert.True(t, snapshots[0].Loading)
	assert.True(t, snapshots[1].Authenticated)
}

func TestSessionService_AccessToken_RefreshesExpired(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	exchanger := mocks.NewMockTokenExchanger(ctrl)
	store := mocksession.NewMemoryTokenStore()
	svc := NewSessionService(SessionServiceOptions{
		Exchanger: exchanger,
		Store:     store,
		Profiles:  mocksession.NewMockProfileLoader(),
	})

	store.Seed(domainsession.TokenSet{
		AccessToken:  "stale-at",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	})
	// Boot refreshes once to authenticate, then the expired store copy forces
	// AccessToken to refresh again.
	fresh := domainsession.TokenSet{AccessToken: "fresh-at", ExpiresAt: time.Now().Add(time.Hour)}
	exchanger.EXPECT().Refresh(gomock.Any(), "rt-1").Return(fresh, nil)

	_, err := svc.Boot(context.Background())
	require.NoError(t, err)

	token, err := svc.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh-at", token)
}

func TestSessionService_AccessToken_FailedRefreshClearsSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	exchanger := mocks.NewMockTokenExchanger(ctrl)
	store := mocksession.NewMemoryTokenStore()
	svc := NewSessionService(SessionServiceOptions{
		Exchanger: exchanger,
		Store:     store,
		Profiles:  mocksession.NewMockProfileLoader(),
	})

	store.Seed(domainsession.TokenSet{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	})
	_, err := svc.Boot(context.Background())
	require.NoError(t, err)

	// Expire the stored copy behind the service's back.
	store.Seed(domainsession.TokenSet{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	})
	exchanger.EXPECT().Refresh(gomock.Any(), "rt-1").
		Return(domainsession.TokenSet{}, apperrors.TokenRefreshFailed("invalid_grant"))

	_, err = svc.AccessToken(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsTokenRefreshFailed(err))
	assert.False(t, svc.Snapshot().Authenticated)
	assert.True(t, store.Stored().IsZero())
}

func TestSessionService_AccessToken_ConcurrentRefreshCollapses(t *testing.T) {
	f := newSessionFixture(t)
	f.store.Seed(domainsession.TokenSet{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	})
	_, err := f.svc.Boot(context.Background())
	require.NoError(t, err)

	// Expire the stored copy behind the service's back.
	f.store.Seed(domainsession.TokenSet{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	})

	inRefresh := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.exchanger.RefreshFunc = func(context.Context, string) (domainsession.TokenSet, error) {
		once.Do(func() { close(inRefresh) })
		<-release
		return domainsession.TokenSet{
			AccessToken: "fresh-at",
			ExpiresAt:   time.Now().Add(time.Hour),
		}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := f.svc.AccessToken(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "fresh-at", token)
		}()
	}

	<-inRefresh
	// Give the remaining callers time to join the in-flight grant before
	// it settles.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, f.exchanger.RefreshCalls, "overlapping callers must share one refresh grant")
	assert.Equal(t, "fresh-at", f.store.Stored().AccessToken)
}

func TestSessionService_AccessToken_Unauthenticated(t *testing.T) {
	f := newSessionFixture(t)
	_, err := f.svc.Boot(context.Background())
	require.NoError(t, err)

	_, err = f.svc.AccessToken(context.Background())
	assert.Error(t, err)
}
