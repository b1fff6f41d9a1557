package patsanstha_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jrsteele09/pigmy-admin/cache"
	"github.com/jrsteele09/pigmy-admin/credentials/memstore"
	"github.com/jrsteele09/pigmy-admin/models"
	"github.com/jrsteele09/pigmy-admin/patsanstha"
	"github.com/jrsteele09/pigmy-admin/session"
	"github.com/stretchr/testify/require"
)

const (
	testSessionKey = "session-1"
	testToken      = "token-abc"
	testUserJSON   = `{"patname":"Shree Ganesh Patsanstha","noOfAgent":5}`
)

// fakeBackend is an httptest server standing in for the REST API.
type fakeBackend struct {
	server *httptest.Server
	mux    *http.ServeMux

	mu          sync.Mutex
	authHeaders []string
	calls       map[string]int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{mux: http.NewServeMux(), calls: make(map[string]int)}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.authHeaders = append(b.authHeaders, r.Header.Get("Authorization"))
		b.calls[r.URL.Path]++
		b.mu.Unlock()
		b.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) handle(pattern string, h http.HandlerFunc) {
	b.mux.HandleFunc(pattern, h)
}

func (b *fakeBackend) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

func (b *fakeBackend) lastAuthHeader() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.authHeaders) == 0 {
		return ""
	}
	return b.authHeaders[len(b.authHeaders)-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// testFixture holds all test dependencies
type testFixture struct {
	backend *fakeBackend
	storage *memstore.Store
	store   *session.Store
	client  *patsanstha.Client
	api     *patsanstha.API
	expired atomic.Int32
}

// setupTestFixture creates a client bound to a fresh session and fake backend.
func setupTestFixture(t *testing.T, configure ...func(*patsanstha.Options)) *testFixture {
	t.Helper()

	f := &testFixture{
		backend: newFakeBackend(t),
		storage: memstore.New(),
	}
	f.store = session.NewStore(testSessionKey, f.storage)

	opts := patsanstha.Options{
		OnSessionExpired: func(context.Context) { f.expired.Add(1) },
	}
	for _, c := range configure {
		c(&opts)
	}
	f.client = patsanstha.NewClient(f.backend.server.URL, f.store, opts)
	f.api = patsanstha.NewAPI(f.client, cache.New(cache.DefaultTTL))
	return f
}

func withRenewal(opts *patsanstha.Options) {
	opts.RenewOnAuthFailure = true
}

// login puts the store into the authenticated state directly.
func (f *testFixture) login(t *testing.T, token string) {
	t.Helper()
	err := f.store.Login(context.Background(), token, json.RawMessage(testUserJSON), models.UserTypePatsanstha)
	require.NoError(t, err)
}

func (f *testFixture) requireLoggedOut(t *testing.T) {
	t.Helper()
	current := f.store.Current()
	require.Empty(t, current.Token)
	require.Nil(t, current.User)

	_, err := f.storage.Get(context.Background(), testSessionKey)
	require.Error(t, err)
}

func jsonDecode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
