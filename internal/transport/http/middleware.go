package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"mcq-practice-service/internal/domain"
)

type contextKey string

const identityKey contextKey = "identity"

// TokenVerifier turns a bearer token into the identity it asserts.
type TokenVerifier interface {
	Verify(token string) (domain.Identity, error)
}

// AdminChecker reports the stored admin flag of a user.
type AdminChecker interface {
	IsAdmin(ctx context.Context, uid string) (bool, error)
}

// Authenticator guards routes with identity-provider ID tokens.
type Authenticator struct {
	verifier TokenVerifier
	admins   AdminChecker
}

func NewAuthenticator(verifier TokenVerifier, admins AdminChecker) *Authenticator {
	return &Authenticator{verifier: verifier, admins: admins}
}

// Middleware rejects requests without a valid token. Websocket clients that
// cannot set headers may pass it as the token query parameter.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}
		ident, err := a.verifier.Verify(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
	})
}

// RequireAdmin must run after Middleware.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "not signed in")
			return
		}
		isAdmin, err := a.admins.IsAdmin(r.Context(), ident.UID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			writeDomainError(w, r, err)
			return
		}
		if !isAdmin {
			writeError(w, r, http.StatusForbidden, "FORBIDDEN", "admin only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// WithIdentity attaches an authenticated identity to ctx.
func WithIdentity(ctx context.Context, ident domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// IdentityFrom returns the identity set by the auth middleware.
func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	ident, ok := ctx.Value(identityKey).(domain.Identity)
	return ident, ok
}

// RequestLogger logs one line per request.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}
