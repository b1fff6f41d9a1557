package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/jrsteele09/pigmy-admin/credentials/memstore"
	"github.com/jrsteele09/pigmy-admin/internal/config"
	"github.com/jrsteele09/pigmy-admin/server"
	"github.com/jrsteele09/pigmy-admin/server/loginsession"
	"github.com/stretchr/testify/require"
)

const (
	testToken    = "token-abc"
	testMobile   = "9876543210"
	testPassword = "secret"
	testPatName  = "Shree Ganesh Patsanstha"
)

// testFixture holds all test dependencies
type testFixture struct {
	backend  *httptest.Server
	mux      *http.ServeMux
	storage  *memstore.Store
	sessions *loginsession.InMemoryLoginSessionRepo
	server   *server.Server

	mu    sync.Mutex
	calls map[string]int
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		mux:      http.NewServeMux(),
		storage:  memstore.New(),
		sessions: loginsession.NewInMemoryLoginSessionRepo(),
		calls:    make(map[string]int),
	}
	f.backend = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[r.Method+" "+r.URL.Path]++
		f.mu.Unlock()
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.backend.Close)

	t.Setenv("API_BASE_URL", f.backend.URL)
	t.Setenv("API_RENEW_ON_EXPIRY", "false")
	t.Setenv("ENV", "TEST")
	t.Setenv("APP_NAME", "Pigmy Pro")

	f.mux.HandleFunc("POST /patsanstha/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["mobilenumber"] != testMobile || body["password"] != testPassword {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid mobile number or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Login successful",
			"token":   testToken,
			"user":    map[string]any{"_id": "p1", "patname": testPatName, "noOfAgent": 5},
		})
	})

	f.server = f.newServer(t)
	return f
}

// newServer builds a server sharing the fixture's storage and session repo.
func (f *testFixture) newServer(t *testing.T) *server.Server {
	t.Helper()
	s, err := server.New(config.New(), f.storage, f.sessions)
	require.NoError(t, err)
	return s
}

func (f *testFixture) count(methodAndPath string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[methodAndPath]
}

func (f *testFixture) do(t *testing.T, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *testFixture) get(t *testing.T, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	return f.do(t, httptest.NewRequest(http.MethodGet, path, nil), cookies...)
}

func (f *testFixture) postForm(t *testing.T, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(t, req, cookies...)
}

// login signs in through the login form and returns the session cookie.
func (f *testFixture) login(t *testing.T) *http.Cookie {
	t.Helper()
	rec := f.postForm(t, server.RouteAuthLogin, url.Values{"mobilenumber": {testMobile}, "password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	c := findCookie(rec, "loggedInSessionId")
	require.NotNil(t, c)
	return c
}

func (f *testFixture) handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, h)
}

func (f *testFixture) viewData(agents ...map[string]any) {
	f.handle("GET /patsanstha/view-data", func(w http.ResponseWriter, r *http.Request) {
		if agents == nil {
			agents = []map[string]any{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
			"patname": testPatName, "noOfAgent": 5, "agents": agents,
		}})
	})
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func body(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	b, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return string(b)
}
