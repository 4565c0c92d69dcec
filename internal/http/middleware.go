package http

import (
	"context"
	"net/http"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/longth-dev/billiard-ladder/internal/league"
)

// Middleware defines the standard signature for an HTTP middleware.
type Middleware func(http.Handler) http.Handler

// Chain combines multiple middlewares into a single handler.
// The middlewares are applied in the order they are passed.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// contextKey is a custom type to avoid key collisions in context.
type contextKey string

const (
	actorKey contextKey = "actor"
)

// paramsMiddleware handles common query parameters like 'verbose'.
func paramsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Info("incoming request", "method", r.Method, "url", r.URL.String())
		// Handle 'verbose' for request-scoped verbose logging.
		if r.URL.Query().Get("verbose") == "true" {
			originalLevel := log.GetLevel()
			log.SetLevel(log.DebugLevel)
			defer log.SetLevel(originalLevel)
		}
		next.ServeHTTP(w, r)
	})
}

// actorMiddleware resolves the caller's identity from the X-Actor-ID and
// X-Actor-Email headers into an ActorContext. Authentication itself happens
// upstream; this service trusts the headers the gateway forwards.
func actorMiddleware(adminIDs []string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := league.ActorContext{
				ID:    r.Header.Get("X-Actor-ID"),
				Email: r.Header.Get("X-Actor-Email"),
			}
			actor.IsAdmin = actor.ID != "" && slices.Contains(adminIDs, actor.ID)

			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// actorFromContext retrieves the resolved ActorContext from the request.
func actorFromContext(r *http.Request) league.ActorContext {
	actor, ok := r.Context().Value(actorKey).(league.ActorContext)
	if !ok {
		return league.ActorContext{}
	}
	return actor
}
