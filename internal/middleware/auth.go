package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"wastejobs-backend/pkg/utils"
)

type contextKey string

const UserContextKey contextKey = "user"

// UserClaims identifies the caller. UserID is the identity provider's
// opaque subject.
type UserClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// ParseToken validates an HS256 token and extracts the caller. The subject
// comes from "sub", falling back to "user_id".
func ParseToken(tokenString, secret string) (UserClaims, error) {
	if secret == "" {
		return UserClaims{}, eris.New("auth: jwt secret not configured")
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return UserClaims{}, eris.Wrap(err, "auth: invalid token")
	}
	if !token.Valid {
		return UserClaims{}, eris.New("auth: invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return UserClaims{}, eris.New("auth: unexpected claims type")
	}

	user := UserClaims{}
	if sub, _ := claims.GetSubject(); sub != "" {
		user.UserID = sub
	} else if id, ok := claims["user_id"].(string); ok {
		user.UserID = id
	}
	if user.UserID == "" {
		return UserClaims{}, eris.New("auth: token has no subject")
	}
	user.Email, _ = claims["email"].(string)
	return user, nil
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// Auth validates the bearer token and adds the caller to the request context.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := BearerToken(r)
			if !ok {
				utils.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}

			user, err := ParseToken(tokenString, secret)
			if err != nil {
				zap.L().Debug("auth: rejected token",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				utils.RespondError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func WithUser(ctx context.Context, user UserClaims) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(r *http.Request) (UserClaims, bool) {
	userClaims, ok := r.Context().Value(UserContextKey).(UserClaims)
	return userClaims, ok
}
