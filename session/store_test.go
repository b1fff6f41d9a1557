package session_test

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/pigmy-admin/credentials/memstore"
	"github.com/jrsteele09/pigmy-admin/internal/errors"
	"github.com/jrsteele09/pigmy-admin/models"
	"github.com/jrsteele09/pigmy-admin/session"
	"github.com/stretchr/testify/require"
)

const (
	testKey  = "login-session-1"
	testUser = `{"_id":"p1","patname":"Shree Ganesh Patsanstha","noOfAgent":5,"agents":[]}`
)

// testFixture holds all test dependencies
type testFixture struct {
	storage *memstore.Store
	store   *session.Store
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	storage := memstore.New()
	return &testFixture{storage: storage, store: session.NewStore(testKey, storage)}
}

func mintJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": "p1",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestStore_LoginPersistsByteEqual(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Login(ctx, "T1", json.RawMessage(testUser), models.UserTypePatsanstha))

	current := f.store.Current()
	require.True(t, current.Authenticated())
	require.True(t, current.Is(models.UserTypePatsanstha))
	require.False(t, current.Is("agent"))

	record, err := f.storage.Get(ctx, testKey)
	require.NoError(t, err)
	require.Equal(t, "T1", record.Token)
	require.Equal(t, testUser, string(record.User))
	require.Equal(t, models.UserTypePatsanstha, record.UserType)
}

func TestStore_LoginRequiresTokenAndUser(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.store.Login(ctx, "", json.RawMessage(testUser), models.UserTypePatsanstha), errors.ErrInvalidInput)
	require.ErrorIs(t, f.store.Login(ctx, "T1", nil, models.UserTypePatsanstha), errors.ErrInvalidInput)
	require.ErrorIs(t, f.store.Login(ctx, "T1", json.RawMessage("null"), models.UserTypePatsanstha), errors.ErrInvalidInput)
	require.False(t, f.store.Current().Authenticated())
}

func TestStore_CurrentReturnsCopy(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Login(context.Background(), "T1", json.RawMessage(testUser), models.UserTypePatsanstha))

	current := f.store.Current()
	current.User[0] = 'X'
	require.Equal(t, testUser, string(f.store.Current().User))
}

func TestStore_Renew(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	require.ErrorIs(t, f.store.Renew(ctx, "T2"), errors.ErrNotLoggedIn)

	require.NoError(t, f.store.Login(ctx, "T1", json.RawMessage(testUser), models.UserTypePatsanstha))
	require.NoError(t, f.store.Renew(ctx, "T2"))
	require.Equal(t, "T2", f.store.Current().Token)
	require.Equal(t, testUser, string(f.store.Current().User))

	record, err := f.storage.Get(ctx, testKey)
	require.NoError(t, err)
	require.Equal(t, "T2", record.Token)
}

func TestStore_UpdateAgentCount(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Login(ctx, "T1", json.RawMessage(testUser), models.UserTypePatsanstha))

	require.NoError(t, f.store.UpdateAgentCount(ctx, 3))

	profile, err := f.store.Current().Profile()
	require.NoError(t, err)
	require.Equal(t, 3, profile.CurrentAgentCount)
	require.Equal(t, "Shree Ganesh Patsanstha", profile.PatName)
	require.Equal(t, 5, profile.NoOfAgent)
}

func TestStore_ExpireTransitionsOnce(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Login(ctx, "T1", json.RawMessage(testUser), models.UserTypePatsanstha))

	var transitions atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.store.Expire(ctx) {
				transitions.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, transitions.Load())
	require.False(t, f.store.Current().Authenticated())
	require.Nil(t, f.store.Current().User)

	_, err := f.storage.Get(ctx, testKey)
	require.ErrorIs(t, err, errors.ErrCredentialsNotFound)
}

func TestStore_Restore(t *testing.T) {
	ctx := context.Background()

	t.Run("restores a complete record", func(t *testing.T) {
		f := setupTestFixture(t)
		require.NoError(t, f.store.Login(ctx, "T1", json.RawMessage(testUser), models.UserTypePatsanstha))

		restored := session.NewStore(testKey, f.storage)
		ok, err := restored.Restore(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, f.store.Current(), restored.Current())
	})

	t.Run("nothing stored", func(t *testing.T) {
		f := setupTestFixture(t)
		ok, err := f.store.Restore(ctx)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("no storage", func(t *testing.T) {
		ok, err := session.NewStore(testKey, nil).Restore(ctx)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestStore_TokenSource(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.store.Token()
	require.ErrorIs(t, err, errors.ErrNotLoggedIn)

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	jwt := mintJWT(t, exp)
	require.NoError(t, f.store.Login(ctx, jwt, json.RawMessage(testUser), models.UserTypePatsanstha))

	token, err := f.store.Token()
	require.NoError(t, err)
	require.Equal(t, jwt, token.AccessToken)
	require.Equal(t, "Bearer", token.Type())
	require.True(t, exp.Equal(token.Expiry))
	require.True(t, exp.Equal(f.store.ExpiresAt()))

	require.NoError(t, f.store.Renew(ctx, "opaque-token"))
	token, err = f.store.Token()
	require.NoError(t, err)
	require.True(t, token.Expiry.IsZero())
}

func TestContextCarriesStore(t *testing.T) {
	f := setupTestFixture(t)

	require.Nil(t, session.FromContext(context.Background()))
	ctx := session.WithStore(context.Background(), f.store)
	require.Same(t, f.store, session.FromContext(ctx))
}
