package gate

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/keystone-admin/keystone/internal/authz"
)

// SessionInvalidator tears down the stored actor snapshot. Implementations
// must be idempotent under repeated invocation.
type SessionInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// Transport intercepts outgoing requests and refuses denied mutations before
// transmission. A computed deny short-circuits the call; it is never merely
// logged and allowed through.
//
// Response handling distinguishes the session from the action: a backend 401
// invalidates the stored session and surfaces authz.ErrSessionExpired, while a
// 403 surfaces authz.ErrForbidden without ending the session.
type Transport struct {
	Base     http.RoundTripper
	Gate     *Gate
	Actor    func(ctx context.Context) *authz.Actor
	Sessions SessionInvalidator
	Logger   *slog.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var actor *authz.Actor
	if t.Actor != nil {
		actor = t.Actor(req.Context())
	}
	if err := t.Gate.Check(actor, req.Method, req.URL.Path); err != nil {
		if t.Logger != nil {
			t.Logger.Warn("request blocked before transmission",
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path))
		}
		return nil, err
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		t.invalidate(req.Context(), actor)
		_ = resp.Body.Close()
		return nil, authz.ErrSessionExpired
	case http.StatusForbidden:
		if t.Logger != nil {
			t.Logger.Warn("server rejected locally allowed request",
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path))
		}
		_ = resp.Body.Close()
		return nil, authz.ErrForbidden
	}
	return resp, nil
}

func (t *Transport) invalidate(ctx context.Context, actor *authz.Actor) {
	if t.Sessions == nil || actor == nil {
		return
	}
	if err := t.Sessions.Invalidate(ctx, actor.ID); err != nil && t.Logger != nil {
		t.Logger.Error("invalidate session", slog.Any("error", err))
	}
}
