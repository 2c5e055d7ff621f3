package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type contextKey string

const subjectKey contextKey = "token_subject"

// tokenIssuer is the iss claim of every token this service signs.
const tokenIssuer = "morsecast"

// Claims holds the JWT claims for API clients.
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateToken creates a signed HS256 token for subject valid for ttl.
func GenerateToken(secret []byte, subject string, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("token subject is required")
	}
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    tokenIssuer,
			Subject:   subject,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// RequireAuth validates bearer tokens signed with secret and stores the
// token subject in the request context. A nil secret disables the check.
func RequireAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || tokenString == "" {
				writeError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				slog.Debug("api auth: invalid jwt", "error", err)
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			if claims.Subject == "" || claims.Issuer != tokenIssuer {
				writeError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext returns the authenticated token subject, or "" when the
// request was not authenticated.
func SubjectFromContext(ctx context.Context) string {
	sub, _ := ctx.Value(subjectKey).(string)
	return sub
}
