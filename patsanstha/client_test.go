package patsanstha_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/pigmy-admin/patsanstha"
	"github.com/stretchr/testify/require"
)

func TestClient_AttachesBearerCredential(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.handle("GET /patsanstha/view-data", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{}})
	})

	t.Run("with session", func(t *testing.T) {
		f.login(t, testToken)
		err := f.client.Call(context.Background(), patsanstha.EndpointViewData, patsanstha.RequestOptions{}, nil)
		require.NoError(t, err)
		require.Equal(t, "Bearer "+testToken, f.backend.lastAuthHeader())
	})

	t.Run("without session", func(t *testing.T) {
		f.store.Expire(context.Background())
		err := f.client.Call(context.Background(), patsanstha.EndpointViewData, patsanstha.RequestOptions{}, nil)
		require.NoError(t, err)
		require.Empty(t, f.backend.lastAuthHeader())
	})
}

func TestClient_SendsJSONBody(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.handle("POST /echo", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, jsonDecode(r, &body))
		writeJSON(w, http.StatusCreated, body)
	})

	var out map[string]string
	err := f.client.Call(context.Background(), "/echo", patsanstha.RequestOptions{
		Method: http.MethodPost,
		Body:   map[string]string{"agentno": "7"},
	}, &out)
	require.NoError(t, err)
	require.Equal(t, "7", out["agentno"])
}

func TestClient_ErrorMessagePriority(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    any
		message string
		kind    error
	}{
		{"message wins", http.StatusBadRequest, map[string]string{"message": "Agent limit reached", "error": "limit"}, "Agent limit reached", patsanstha.ErrClient},
		{"error when no message", http.StatusConflict, map[string]string{"error": "Agent number already exists"}, "Agent number already exists", patsanstha.ErrClient},
		{"generic fallback", http.StatusInternalServerError, map[string]string{}, "HTTP Error: 500", patsanstha.ErrServer},
		{"non JSON body", http.StatusBadGateway, "<html>bad gateway</html>", "HTTP Error: 502", patsanstha.ErrServer},
		{"server message", http.StatusServiceUnavailable, map[string]string{"message": "Maintenance"}, "Maintenance", patsanstha.ErrServer},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.backend.handle("GET /failing", func(w http.ResponseWriter, r *http.Request) {
				if s, ok := tc.body.(string); ok {
					w.WriteHeader(tc.status)
					_, _ = w.Write([]byte(s))
					return
				}
				writeJSON(w, tc.status, tc.body)
			})

			err := f.client.Call(context.Background(), "/failing", patsanstha.RequestOptions{}, nil)
			require.Error(t, err)
			require.Equal(t, tc.message, err.Error())
			require.ErrorIs(t, err, tc.kind)

			var apiErr *patsanstha.Error
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, tc.status, apiErr.Status)
		})
	}
}

func TestClient_UnauthorizedClearsSessionOnce(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, testToken)
	f.backend.handle("GET /patsanstha/view-data", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "jwt expired"})
	})

	const burst = 20
	var wg sync.WaitGroup
	errs := make([]error, burst)
	for i := 0; i < burst; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.client.Call(context.Background(), patsanstha.EndpointViewData, patsanstha.RequestOptions{}, nil)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.ErrorIs(t, err, patsanstha.ErrAuth)
	}
	require.EqualValues(t, 1, f.expired.Load())
	f.requireLoggedOut(t)
}

func TestClient_TokenMessageCountsAsRejection(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, testToken)
	f.backend.handle("GET /patsanstha/view-data", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Invalid token provided"})
	})

	err := f.client.Call(context.Background(), patsanstha.EndpointViewData, patsanstha.RequestOptions{}, nil)
	require.ErrorIs(t, err, patsanstha.ErrAuth)
	require.Equal(t, "Invalid token provided", err.Error())
	require.EqualValues(t, 1, f.expired.Load())
	f.requireLoggedOut(t)
}

func TestClient_ForbiddenWithoutTokenWordingIsClientFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t, testToken)
	f.backend.handle("GET /patsanstha/view-data", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Account suspended"})
	})

	err := f.client.Call(context.Background(), patsanstha.EndpointViewData, patsanstha.RequestOptions{}, nil)
	require.ErrorIs(t, err, patsanstha.ErrClient)
	require.EqualValues(t, 0, f.expired.Load())
	require.Equal(t, testToken, f.store.Current().Token)
}

func TestClient_RenewsCredentialAndRetriesOnce(t *testing.T) {
	const renewed = "token-renewed"

	f := setupTestFixture(t, withRenewal)
	f.login(t, testToken)
	f.backend.handle("POST /patsanstha/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))
		time.Sleep(20 * time.Millisecond) // widen the window for concurrent rejections
		writeJSON(w, http.StatusOK, map[string]string{"token": renewed})
	})
	f.backend.handle("GET /patsanstha/view-data", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+renewed {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "jwt expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	const burst = 10
	var wg sync.WaitGroup
	errs := make([]error, burst)
	for i := 0; i < burst; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.client.Call(context.Background(), patsanstha.EndpointViewData, patsanstha.RequestOptions{}, nil)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, f.backend.count(patsanstha.EndpointRefreshToken))
	require.EqualValues(t, 0, f.expired.Load())
	require.Equal(t, renewed, f.store.Current().Token)

	stored, err := f.storage.Get(context.Background(), testSessionKey)
	require.NoError(t, err)
	require.Equal(t, renewed, stored.Token)
}

func TestClient_FailedRenewalExpiresSession(t *testing.T) {
	f := setupTestFixture(t, withRenewal)
	f.login(t, testToken)
	f.backend.handle("POST /patsanstha/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "refresh window closed"})
	})
	f.backend.handle("GET /patsanstha/view-data", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "jwt expired"})
	})

	err := f.client.Call(context.Background(), patsanstha.EndpointViewData, patsanstha.RequestOptions{}, nil)
	require.ErrorIs(t, err, patsanstha.ErrAuth)
	require.Equal(t, "jwt expired", err.Error())
	require.Equal(t, 1, f.backend.count(patsanstha.EndpointViewData))
	require.Equal(t, 1, f.backend.count(patsanstha.EndpointRefreshToken))
	require.EqualValues(t, 1, f.expired.Load())
	f.requireLoggedOut(t)
}

func TestClient_RetryAfterRenewalHappensAtMostOnce(t *testing.T) {
	f := setupTestFixture(t, withRenewal)
	f.login(t, testToken)
	f.backend.handle("POST /patsanstha/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]string{"accessToken": "still-bad"}})
	})
	f.backend.handle("GET /patsanstha/view-data", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := f.client.Call(context.Background(), patsanstha.EndpointViewData, patsanstha.RequestOptions{}, nil)
	require.ErrorIs(t, err, patsanstha.ErrAuth)
	require.Equal(t, "Session expired. Please login again.", err.Error())
	require.Equal(t, 2, f.backend.count(patsanstha.EndpointViewData))
	require.Equal(t, 1, f.backend.count(patsanstha.EndpointRefreshToken))
	require.EqualValues(t, 1, f.expired.Load())
	f.requireLoggedOut(t)
}

func TestClient_StaggeredRejectionsShareFailedRenewal(t *testing.T) {
	f := setupTestFixture(t, withRenewal)
	f.login(t, testToken)
	f.backend.handle("POST /patsanstha/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "refresh window closed"})
	})
	f.backend.handle("GET /patsanstha/view-data", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond) // rejections land after the first renewal has failed
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "jwt expired"})
	})

	const burst = 20
	var wg sync.WaitGroup
	errs := make([]error, burst)
	for i := 0; i < burst; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			time.Sleep(time.Duration(i) * time.Millisecond)
			errs[i] = f.client.Call(context.Background(), patsanstha.EndpointViewData, patsanstha.RequestOptions{}, nil)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.ErrorIs(t, err, patsanstha.ErrAuth)
	}
	require.Equal(t, 1, f.backend.count(patsanstha.EndpointRefreshToken))
	require.EqualValues(t, 1, f.expired.Load())
	f.requireLoggedOut(t)
}

func TestClient_CancelledCallerDoesNotAbortSharedRenewal(t *testing.T) {
	const renewed = "token-renewed"

	f := setupTestFixture(t, withRenewal)
	f.login(t, testToken)

	refreshStarted := make(chan struct{})
	release := make(chan struct{})
	f.backend.handle("POST /patsanstha/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		close(refreshStarted)
		<-release
		writeJSON(w, http.StatusOK, map[string]string{"token": renewed})
	})
	rejections := make(chan struct{}, 4)
	f.backend.handle("GET /patsanstha/view-data", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer "+renewed {
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
			return
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "jwt expired"})
		rejections <- struct{}{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	var leftErr, stayedErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		leftErr = f.client.Call(ctx, patsanstha.EndpointViewData, patsanstha.RequestOptions{}, nil)
	}()
	<-rejections
	<-refreshStarted
	cancel()

	wg.Add(1)
	go func() {
		defer wg.Done()
		stayedErr = f.client.Call(context.Background(), patsanstha.EndpointViewData, patsanstha.RequestOptions{}, nil)
	}()
	<-rejections
	close(release)
	wg.Wait()

	require.ErrorIs(t, leftErr, context.Canceled)
	var apiErr *patsanstha.Error
	require.False(t, errors.As(leftErr, &apiErr))

	require.NoError(t, stayedErr)
	require.Equal(t, 1, f.backend.count(patsanstha.EndpointRefreshToken))
	require.EqualValues(t, 0, f.expired.Load())
	require.Equal(t, renewed, f.store.Current().Token)

	stored, err := f.storage.Get(context.Background(), testSessionKey)
	require.NoError(t, err)
	require.Equal(t, renewed, stored.Token)
}

func TestClient_NetworkFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.server.Close()

	err := f.client.Call(context.Background(), patsanstha.EndpointViewData, patsanstha.RequestOptions{}, nil)
	require.ErrorIs(t, err, patsanstha.ErrNetwork)
	require.Equal(t, "Network error. Please check your internet connection.", err.Error())
}

func TestClient_Timeout(t *testing.T) {
	f := setupTestFixture(t, func(o *patsanstha.Options) { o.RequestTimeout = 50 * time.Millisecond })
	f.backend.handle("GET /slow", func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	err := f.client.Call(context.Background(), "/slow", patsanstha.RequestOptions{}, nil)
	require.ErrorIs(t, err, patsanstha.ErrTimeout)
	require.Equal(t, "Request timeout. Please try again.", err.Error())
}

func TestClient_CancelledCallerIsNotATimeout(t *testing.T) {
	f := setupTestFixture(t)
	started := make(chan struct{})
	f.backend.handle("GET /slow", func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	err := f.client.Call(ctx, "/slow", patsanstha.RequestOptions{}, nil)
	require.ErrorIs(t, err, context.Canceled)

	var apiErr *patsanstha.Error
	require.False(t, errors.As(err, &apiErr))
}
