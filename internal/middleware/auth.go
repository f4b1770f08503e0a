// Package middleware provides the HTTP middleware for the community
// platform API.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/ViveCali/community_layer/internal/errors"
	"github.com/ViveCali/community_layer/internal/httputil"
	"github.com/ViveCali/community_layer/pkg/logger"
	"github.com/ViveCali/community_layer/services/session"
	"github.com/ViveCali/community_layer/supabase/client"
)

// contextKey is a private type for context keys.
type contextKey string

const (
	userIDKey    contextKey = "user_id"
	userEmailKey contextKey = "user_email"
	tokenKey     contextKey = "access_token"
)

// UserID returns the authenticated user ID from the context.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// UserEmail returns the authenticated email from the context.
func UserEmail(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(userEmailKey).(string)
	return email, ok
}

// AccessToken returns the bearer token from the context.
func AccessToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	return token, ok
}

// TokenVerifier resolves a bearer token to an identity.
type TokenVerifier interface {
	GetUser(ctx context.Context, accessToken string) (*client.User, error)
}

// Auth authenticates requests with Supabase-issued JWTs. Tokens are
// verified locally with the project JWT secret when configured, with
// a remote lookup as fallback.
type Auth struct {
	jwtSecret []byte
	verifier  TokenVerifier
	roles     session.RoleStore
	log       *logger.Logger
}

// NewAuth constructs the auth middleware.
func NewAuth(jwtSecret string, verifier TokenVerifier, roles session.RoleStore, log *logger.Logger) *Auth {
	var secret []byte
	if jwtSecret != "" {
		secret = []byte(jwtSecret)
	}
	return &Auth{jwtSecret: secret, verifier: verifier, roles: roles, log: log}
}

// RequireAuth rejects requests without a valid bearer token and
// injects the identity into the request context.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			httputil.WriteError(w, apperrors.Auth("missing bearer token"))
			return
		}

		userID, email, err := a.verify(r.Context(), token)
		if err != nil {
			a.log.WithError(err).Debug("token rejected")
			httputil.WriteError(w, apperrors.Auth("invalid token"))
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		ctx = context.WithValue(ctx, userEmailKey, email)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects authenticated requests whose identity does not
// hold the admin role. Must run after RequireAuth.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r.Context())
		if !ok {
			httputil.WriteError(w, apperrors.Auth("not authenticated"))
			return
		}

		role, err := a.roles.GetRole(r.Context(), userID)
		if err != nil && !apperrors.IsKind(err, apperrors.KindNotFound) {
			httputil.WriteError(w, err)
			return
		}
		if role != session.RoleAdmin {
			httputil.WriteError(w, apperrors.Forbidden("admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Auth) verify(ctx context.Context, token string) (userID, email string, err error) {
	if len(a.jwtSecret) > 0 {
		claims := jwt.MapClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return a.jwtSecret, nil
		})
		if err != nil {
			return "", "", fmt.Errorf("jwt parse: %w", err)
		}
		if !parsed.Valid {
			return "", "", fmt.Errorf("jwt invalid")
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			return "", "", fmt.Errorf("jwt has no subject")
		}
		mail, _ := claims["email"].(string)
		return sub, mail, nil
	}

	if a.verifier == nil {
		return "", "", fmt.Errorf("no verification method configured")
	}
	user, err := a.verifier.GetUser(ctx, token)
	if err != nil {
		return "", "", err
	}
	return user.ID, user.Email, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
