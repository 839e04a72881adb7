package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/zatekoja/localdiscovery/internal/domain/entities"
	"github.com/zatekoja/localdiscovery/internal/domain/providers"
	"github.com/zatekoja/localdiscovery/internal/infrastructure/observability"
)

type userKey struct{}

// IdentityMiddleware resolves a bearer token to a user and stores it on the
// request context. Missing, unknown or unverifiable tokens leave the request
// anonymous; identity never gates public data.
func IdentityMiddleware(identity providers.IdentityProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" || identity == nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := identity.Lookup(r.Context(), token)
			if err != nil {
				observability.LoggerFromContext(r.Context()).Warn().Err(err).Msg("identity lookup failed, continuing anonymously")
				next.ServeHTTP(w, r)
				return
			}
			if user != nil {
				r = r.WithContext(WithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUser returns a context carrying user
func WithUser(ctx context.Context, user *entities.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the request's user, or nil when anonymous
func UserFromContext(ctx context.Context) *entities.User {
	user, _ := ctx.Value(userKey{}).(*entities.User)
	return user
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
