package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/lifeplanner/internal/session"
)

// testBackend mimics the Life-Planner API: requests carrying staleToken get a
// 401, requests carrying freshToken succeed, and /auth/refresh exchanges the
// refresh token for the fresh pair.
type testBackend struct {
	staleToken   string
	freshToken   string
	refreshDelay time.Duration
	refreshFails bool
	alwaysReject bool

	refreshCalls  atomic.Int64
	resourceCalls atomic.Int64
}

func (b *testBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.refreshCalls.Add(1)
		if b.refreshDelay > 0 {
			time.Sleep(b.refreshDelay)
		}
		if b.refreshFails {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid refresh token"})
			return
		}
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken == "" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token":  b.freshToken,
			"refresh_token": "refresh-next",
			"token_type":    "bearer",
		})
	})
	mux.HandleFunc("/workout/exercises", func(w http.ResponseWriter, r *http.Request) {
		b.resourceCalls.Add(1)
		auth := r.Header.Get("Authorization")
		if b.alwaysReject || auth != "Bearer "+b.freshToken {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Could not validate credentials"})
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{{"id": 1, "name": "Squat"}})
	})
	return mux
}

func newTestClient(t *testing.T, backend *testBackend, accessToken string) (*Client, *session.Manager) {
	t.Helper()
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)

	store := session.NewMemoryStore()
	require.NoError(t, store.Save(session.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: "refresh-0",
	}))
	manager := session.NewManager(store, NewAuthRenewer(server.URL, nil))
	return New(server.URL, manager), manager
}

func TestDoAttachesBearer(t *testing.T) {
	backend := &testBackend{freshToken: "fresh"}
	client, _ := newTestClient(t, backend, "fresh")

	var out []map[string]any
	err := client.Do(context.Background(), http.MethodGet, "/workout/exercises", nil, &out)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.EqualValues(t, 0, backend.refreshCalls.Load())
}

func TestDoRenewsOnceAndRetries(t *testing.T) {
	backend := &testBackend{staleToken: "stale", freshToken: "fresh"}
	client, manager := newTestClient(t, backend, "stale")

	var out []map[string]any
	err := client.Do(context.Background(), http.MethodGet, "/workout/exercises", nil, &out)
	require.NoError(t, err)
	require.Len(t, out, 1)

	require.EqualValues(t, 1, backend.refreshCalls.Load())
	require.EqualValues(t, 2, backend.resourceCalls.Load(), "original call plus exactly one replay")

	token, ok := manager.AccessToken()
	require.True(t, ok)
	require.Equal(t, "fresh", token, "retry must install the renewed credential")
}

func TestRetryOnceBound(t *testing.T) {
	// Renewal "succeeds" but the new credential is also rejected: the second
	// 401 must surface, never loop.
	backend := &testBackend{staleToken: "stale", freshToken: "fresh", alwaysReject: true}
	client, _ := newTestClient(t, backend, "stale")

	err := client.Do(context.Background(), http.MethodGet, "/workout/exercises", nil, nil)
	require.Error(t, err)
	require.True(t, IsUnauthorized(err))

	require.EqualValues(t, 1, backend.refreshCalls.Load())
	require.EqualValues(t, 2, backend.resourceCalls.Load(), "exactly one retry, no loop")
}

func TestRenewalFailureSurfacesOriginal401AndEndsSession(t *testing.T) {
	backend := &testBackend{staleToken: "stale", freshToken: "fresh", refreshFails: true}
	client, manager := newTestClient(t, backend, "stale")

	err := client.Do(context.Background(), http.MethodGet, "/workout/exercises", nil, nil)
	require.True(t, IsUnauthorized(err), "the original 401 must surface")

	require.EqualValues(t, 1, backend.resourceCalls.Load(), "no retry after failed renewal")
	require.False(t, manager.Authenticated(), "failed renewal ends the session")
}

func TestConcurrent401sShareOneRenewal(t *testing.T) {
	// Three requests fire while the credential has just expired; each fails
	// once with 401, renewal succeeds once, and all three replays succeed.
	backend := &testBackend{
		staleToken:   "stale",
		freshToken:   "fresh",
		refreshDelay: 150 * time.Millisecond,
	}
	client, _ := newTestClient(t, backend, "stale")

	const callers = 3
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var out []map[string]any
			errs[i] = client.Do(context.Background(), http.MethodGet, "/workout/exercises", nil, &out)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}
	require.EqualValues(t, 1, backend.refreshCalls.Load(), "exactly one renewal call for N concurrent 401s")
	require.EqualValues(t, callers*2, backend.resourceCalls.Load())
}

func TestWithoutAuthNeverRenews(t *testing.T) {
	backend := &testBackend{staleToken: "stale", freshToken: "fresh"}
	client, _ := newTestClient(t, backend, "stale")

	err := client.Do(context.Background(), http.MethodGet, "/workout/exercises", nil, nil, WithoutAuth())
	require.True(t, IsUnauthorized(err))
	require.EqualValues(t, 0, backend.refreshCalls.Load())
}

func TestLoginInstallsPair(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "user@example.com", body["email"])
		require.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"token_type":    "bearer",
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	manager := session.NewManager(session.NewMemoryStore(), NewAuthRenewer(server.URL, nil))
	client := New(server.URL, manager)

	require.NoError(t, client.Login(context.Background(), "user@example.com", "s3cret"))
	token, ok := manager.AccessToken()
	require.True(t, ok)
	require.Equal(t, "access-1", token)
}

func TestLogoutClearsEvenWhenCallFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	store := session.NewMemoryStore()
	require.NoError(t, store.Save(session.TokenPair{AccessToken: "a", RefreshToken: "r"}))
	manager := session.NewManager(store, NewAuthRenewer(server.URL, nil))
	client := New(server.URL, manager)

	client.Logout(context.Background())
	require.False(t, manager.Authenticated())
}

func TestDecodeErrorUsesServerDetail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/workout/activity-types/9", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Type d'activité non trouvé"})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	manager := session.NewManager(session.NewMemoryStore(), NewAuthRenewer(server.URL, nil))
	client := New(server.URL, manager)

	err := client.Do(context.Background(), http.MethodDelete, "/workout/activity-types/9", nil, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
	require.Equal(t, "Type d'activité non trouvé", apiErr.Message)
}
