package plex_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhalder/overbot/internal/plex"
	"github.com/mhalder/overbot/internal/tokenstore"
)

func newService(t *testing.T, opts ...plex.ServiceOption) (*plex.Service, *tokenstore.Store) {
	t.Helper()
	store, err := tokenstore.Open(context.Background(), filepath.Join(t.TempDir(), "tokens.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	opts = append(opts, plex.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	svc, err := plex.NewService("overbot", "https://bot.example.com", store, opts...)
	require.NoError(t, err)
	return svc, store
}

func serve(t *testing.T, svc *plex.Service, target string) *httptest.ResponseRecorder {
	t.Helper()
	router := mux.NewRouter()
	svc.Routes(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestLoginURL(t *testing.T) {
	svc, _ := newService(t)
	assert.Equal(t, "https://bot.example.com/plex/login?u=alice", svc.LoginURL("alice"))
	assert.Equal(t, "https://bot.example.com/plex/login?u=alice%40host", svc.LoginURL("alice@host"))
}

func TestHandleLogin(t *testing.T) {
	svc, _ := newService(t)

	rec := serve(t, svc, "/plex/login?u=alice")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "X-Plex-Product")
	assert.Contains(t, body, "https://bot.example.com/plex/auth?u=alice",
		"login page must forward back to the auth handler")
}

func TestHandleLogin_MissingUser(t *testing.T) {
	svc, _ := newService(t)
	rec := serve(t, svc, "/plex/login")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// fakePlexTV stands in for the plex.tv PIN endpoint.
func fakePlexTV(t *testing.T, handler http.HandlerFunc) plex.ServiceOption {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return plex.WithPinBaseURL(srv.URL)
}

func TestHandleAuth_StoresToken(t *testing.T) {
	pinSrv := fakePlexTV(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1234", r.URL.Path)
		assert.Equal(t, "client-1", r.Header.Get("X-Plex-Client-Identifier"))
		assert.Equal(t, "overbot", r.Header.Get("X-Plex-Product"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":        1234,
			"code":      "abcd",
			"authToken": "plex-token-xyz",
		})
	})
	svc, store := newService(t, pinSrv)

	rec := serve(t, svc, "/plex/auth?u=alice&p=1234&c=client-1")
	require.Equal(t, http.StatusOK, rec.Code)

	token, err := store.Token(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "plex-token-xyz", token)
}

func TestHandleAuth_MissingParameters(t *testing.T) {
	svc, _ := newService(t)

	for _, target := range []string{
		"/plex/auth",
		"/plex/auth?u=alice",
		"/plex/auth?u=alice&p=1234",
		"/plex/auth?p=1234&c=client-1",
	} {
		rec := serve(t, svc, target)
		assert.Equalf(t, http.StatusBadRequest, rec.Code, "target %s", target)
	}
}

func TestHandleAuth_ExpiredPin(t *testing.T) {
	pinSrv := fakePlexTV(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	svc, store := newService(t, pinSrv)

	rec := serve(t, svc, "/plex/auth?u=alice&p=9999&c=client-1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Request no longer valid")

	token, err := store.Token(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestHandleAuth_PinNotYetAuthorized(t *testing.T) {
	pinSrv := fakePlexTV(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":        1234,
			"code":      "abcd",
			"authToken": "",
		})
	})
	svc, store := newService(t, pinSrv)

	rec := serve(t, svc, "/plex/auth?u=alice&p=1234&c=client-1")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := store.Token(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestHandleAuth_PlexTVUnavailable(t *testing.T) {
	pinSrv := fakePlexTV(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	svc, _ := newService(t, pinSrv)

	rec := serve(t, svc, "/plex/auth?u=alice&p=1234&c=client-1")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestNewService_RequiresStore(t *testing.T) {
	_, err := plex.NewService("overbot", "https://bot.example.com", nil)
	assert.Error(t, err)
}

func TestRoutes_MethodRestriction(t *testing.T) {
	svc, _ := newService(t)
	router := mux.NewRouter()
	svc.Routes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/plex/login?u=alice", strings.NewReader("")))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
