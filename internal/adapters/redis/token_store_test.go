package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainsession "github.com/openhrms/fieldlink/internal/domain/session"
	apperrors "github.com/openhrms/fieldlink/internal/errors"
	"github.com/openhrms/fieldlink/internal/testutil"
)

func setupStore(t *testing.T) *TokenStore {
	t.Helper()
	client := testutil.SetupTestRedis(t)
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("warning: failed to close redis client: %v", err)
		}
	})
	return NewTokenStore(client, "fieldlink_test")
}

func TestTokenStore_SaveAndLoad(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	expiry := time.Now().Add(time.Hour).Truncate(time.Millisecond)
	err := store.Save(ctx, domainsession.TokenSet{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresAt:    expiry,
	})
	require.NoError(t, err)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "at-1", loaded.AccessToken)
	assert.Equal(t, "rt-1", loaded.RefreshToken)
	assert.True(t, loaded.ExpiresAt.Equal(expiry), "expiry should round-trip at millisecond precision")
}

func TestTokenStore_Load_EmptyYieldsZeroSet(t *testing.T) {
	store := setupStore(t)

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, loaded.IsZero())
}

func TestTokenStore_Save_RequiresAccessToken(t *testing.T) {
	store := setupStore(t)

	err := store.Save(context.Background(), domainsession.TokenSet{RefreshToken: "rt"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestTokenStore_Save_KeepsExistingRefreshToken(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domainsession.TokenSet{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
	}))

	// Refresh responses often carry no new refresh token.
	require.NoError(t, store.Save(ctx, domainsession.TokenSet{AccessToken: "at-2"}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "at-2", loaded.AccessToken)
	assert.Equal(t, "rt-1", loaded.RefreshToken)
}

func TestTokenStore_Save_DefaultsExpiry(t *testing.T) {
	store := setupStore(t)
	now := testutil.TestTime()
	store.now = testutil.FixedTimeFunc(now)

	require.NoError(t, store.Save(context.Background(), domainsession.TokenSet{AccessToken: "at-1"}))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, loaded.ExpiresAt.Equal(now.Add(domainsession.DefaultExpiry)))
}

func TestTokenStore_Clear(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domainsession.TokenSet{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
	}))
	require.NoError(t, store.Clear(ctx))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.IsZero())
	assert.Empty(t, loaded.RefreshToken)

	// Clearing again is not an error.
	assert.NoError(t, store.Clear(ctx))
}
