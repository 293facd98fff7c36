package chi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalogd/internal/domain"
	"github.com/kailas-cloud/catalogd/internal/logger"
)

type sellerKey struct{}

// jwtLeeway tolerates clock skew between token issuer and server.
const jwtLeeway = 30 * time.Second

// ContextWithSeller stores the calling seller in the context.
func ContextWithSeller(ctx context.Context, sellerID string) context.Context {
	return context.WithValue(ctx, sellerKey{}, sellerID)
}

// SellerFromContext returns the calling seller, or "" when none was established.
func SellerFromContext(ctx context.Context) string {
	s, _ := ctx.Value(sellerKey{}).(string)
	return s
}

// IdentityMiddleware establishes the calling seller.
// With a secret, requests must carry an HS256 bearer token whose sub claim
// names the seller. Without one, the seller_id query parameter is trusted.
func IdentityMiddleware(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)

	return func(next http.Handler) http.Handler {
		if len(key) == 0 {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seller := strings.TrimSpace(r.URL.Query().Get("seller_id"))
				next.ServeHTTP(w, r.WithContext(ContextWithSeller(r.Context(), seller)))
			})
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "missing authorization header")
				return
			}

			scheme, token, ok := strings.Cut(auth, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized,
					"authorization header must use Bearer scheme")
				return
			}

			var claims jwt.RegisteredClaims
			_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
				return key, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(jwtLeeway))
			if err != nil {
				logger.FromContext(r.Context()).Debug("token rejected", zap.Error(err))
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid or expired token")
				return
			}

			seller, err := claims.GetSubject()
			if err != nil || seller == "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "token has no subject")
				return
			}

			ctx := ContextWithSeller(r.Context(), seller)
			ctx = logger.With(ctx, zap.String("seller_id", seller))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSeller rejects requests that reach it without an established seller.
// Reports are always scoped to one seller.
func RequireSeller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SellerFromContext(r.Context()) == "" {
			validationHandler(w, r, domain.NewValidationError("seller_id", "is required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
