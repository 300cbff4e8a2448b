package shared

import (
	"context"

	"github.com/keystone-admin/keystone/internal/authz"
)

type sessionContextKey struct{}

type actorContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithActor stores the resolved actor in context.
func ContextWithActor(ctx context.Context, actor *authz.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the resolved actor, nil when unauthenticated.
func ActorFromContext(ctx context.Context) *authz.Actor {
	actor, _ := ctx.Value(actorContextKey{}).(*authz.Actor)
	return actor
}

type bearerAuthContextKey struct{}

// ContextWithBearerAuth marks the request as authenticated by a service token
// rather than a cookie session.
func ContextWithBearerAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, bearerAuthContextKey{}, true)
}

// BearerAuthFromContext reports whether the request authenticated with a
// service token.
func BearerAuthFromContext(ctx context.Context) bool {
	marked, _ := ctx.Value(bearerAuthContextKey{}).(bool)
	return marked
}
