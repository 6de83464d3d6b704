package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/servicehub/libs/auth"
	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/lifecycle"
	"github.com/md-rashed-zaman/servicehub/services/booking-service/internal/model"
)

type actorKey struct{}

// TokenVerifier turns a bearer token into verified claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

// ActorFromContext returns the caller attached by RequireActor.
func ActorFromContext(ctx context.Context) (model.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(model.Actor)
	return a, ok
}

func ContextWithActor(ctx context.Context, a model.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// RequireActor verifies the bearer token and attaches the caller's identity.
// Identity never comes from request bodies or forwarded headers.
func RequireActor(v TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized", "missing or invalid Authorization header")
				return
			}
			claims, err := v.Verify(r.Context(), token)
			if err != nil {
				logger.Debug("token rejected", "err", err)
				writeError(w, http.StatusUnauthorized, "Unauthorized", "invalid token")
				return
			}
			if !claims.KnownRole() {
				writeError(w, http.StatusForbidden, string(lifecycle.KindForbidden), "unknown role")
				return
			}
			actor := model.Actor{UserID: claims.Subject, Role: model.Role(claims.Role)}
			next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
		})
	}
}
