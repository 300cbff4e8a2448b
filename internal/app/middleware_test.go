package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keystone-admin/keystone/internal/auth"
	"github.com/keystone-admin/keystone/internal/authz"
	"github.com/keystone-admin/keystone/internal/shared"
)

type middlewareFixture struct {
	sessions *shared.SessionManager
	csrf     *shared.CSRFManager
	cfg      MiddlewareConfig
}

func newMiddlewareFixture(t *testing.T) *middlewareFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := shared.NewSessionManager(client, "keystone_session", "session-secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")
	return &middlewareFixture{
		sessions: sessions,
		csrf:     csrf,
		cfg: MiddlewareConfig{
			Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
			SessionManager: sessions,
			CSRFManager:    csrf,
		},
	}
}

func (f *middlewareFixture) router(t *testing.T) chi.Router {
	t.Helper()
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(f.cfg) {
		r.Use(mw)
	}
	return r
}

// A brand-new client holds no session and no token, so login must pass the
// CSRF check or nobody can ever obtain a token in the first place.
func TestFreshClientReachesLogin(t *testing.T) {
	f := newMiddlewareFixture(t)

	reached := false
	r := f.router(t)
	r.Post("/auth/login", func(w http.ResponseWriter, req *http.Request) {
		reached = true
		sess := shared.SessionFromContext(req.Context())
		require.NotNil(t, sess)
		sess.SetUser("u1")
		token, err := f.csrf.EnsureToken(req.Context(), sess)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"csrfToken": token})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{}`)))

	require.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Result().Cookies(), "login must establish the session cookie")
}

func TestMutationsStillRequireToken(t *testing.T) {
	f := newMiddlewareFixture(t)

	r := f.router(t)
	r.Post("/auth/login", func(w http.ResponseWriter, req *http.Request) {
		sess := shared.SessionFromContext(req.Context())
		sess.SetUser("u1")
		token, err := f.csrf.EnsureToken(req.Context(), sess)
		require.NoError(t, err)
		_ = json.NewEncoder(w).Encode(map[string]string{"csrfToken": token})
	})
	r.Post("/departments", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	// No token, no session: denied before the handler.
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/departments", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Log in, then replay the cookie and token: allowed.
	loginRec := httptest.NewRecorder()
	r.ServeHTTP(loginRec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusOK, loginRec.Code)

	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	require.NoError(t, json.Unmarshal(loginRec.Body.Bytes(), &body))
	require.NotEmpty(t, body.CSRFToken)
	cookies := loginRec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodPost, "/departments", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	req.Header.Set(shared.CSRFHeader, body.CSRFToken)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// The cookie alone, without the header, stays denied.
	req = httptest.NewRequest(http.MethodPost, "/departments", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

type staticActors struct {
	actor *authz.Actor
}

func (s staticActors) ResolveActor(_ context.Context, userID string) (*authz.Actor, error) {
	if s.actor != nil && s.actor.ID == userID {
		return s.actor, nil
	}
	return nil, errors.New("unknown user")
}

func TestBearerTokenResolvesActor(t *testing.T) {
	f := newMiddlewareFixture(t)
	issuer := auth.NewTokenIssuer("token-secret", time.Hour)
	f.cfg.Actors = staticActors{actor: &authz.Actor{ID: "svc-1", HasFullAccess: true}}
	f.cfg.Tokens = issuer

	r := f.router(t)
	r.Get("/whoami", func(w http.ResponseWriter, req *http.Request) {
		actor := shared.ActorFromContext(req.Context())
		if actor == nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(actor.ID))
	})
	r.Post("/departments", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	token, err := issuer.Issue("svc-1", time.Now())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "svc-1", rec.Body.String())

	// Token clients carry no cookie, so the CSRF check does not apply.
	req = httptest.NewRequest(http.MethodPost, "/departments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// A garbage token resolves nothing.
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
