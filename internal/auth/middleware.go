package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/HerbHall/grandline/internal/apperr"
	"github.com/HerbHall/grandline/internal/server"
)

type ctxKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by the middleware.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(*Identity)
	return id, ok
}

// Middleware requires a valid bearer token belonging to an enabled account
// and stores the caller's identity in the request context.
func (s *Service) Middleware(rs *server.Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				rs.Error(w, r, apperr.Unauthorized(apperr.CodeUnauthorized, "missing bearer token"))
				return
			}
			id, err := s.Authenticate(r.Context(), raw)
			if err != nil {
				rs.Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}
