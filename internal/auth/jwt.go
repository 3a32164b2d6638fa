package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"botforge/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const userIDKey contextKey = "userID"
const roleKey contextKey = "role"

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SecretKey string
	TokenTTL  time.Duration
}

// NewJWTConfig creates a new JWT config
func NewJWTConfig(secretKey string, tokenTTL time.Duration) *JWTConfig {
	if secretKey == "" {
		secretKey = "default-secret-key-change-in-production" // Default for development
	}
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &JWTConfig{SecretKey: secretKey, TokenTTL: tokenTTL}
}

// IssueToken creates a signed session token for a user
func (c *JWTConfig) IssueToken(userID string, role model.Role) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(c.TokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(c.SecretKey))
}

// Middleware authenticates Bearer tokens. Requests without an
// Authorization header pass through anonymously; individual routes
// decide whether a session is required.
func (c *JWTConfig) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(c.SecretKey), nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			http.Error(w, "Invalid token claims", http.StatusUnauthorized)
			return
		}

		userID, _ := claims["sub"].(string)
		role, _ := claims["role"].(string)

		ctx := r.Context()
		if userID != "" {
			ctx = context.WithValue(ctx, userIDKey, userID)
		}
		if role != "" {
			ctx = context.WithValue(ctx, roleKey, model.Role(role))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route subtree on an authenticated session holding
// one of the given roles. Unauthenticated requests get 401, wrong roles 403.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == "" {
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}
			role := GetRole(r.Context())
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, "Insufficient role", http.StatusForbidden)
		})
	}
}

// GetUserID extracts the authenticated user ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(userIDKey).(string); ok {
		return userID
	}
	return ""
}

// GetRole extracts the authenticated role from context
func GetRole(ctx context.Context) model.Role {
	if role, ok := ctx.Value(roleKey).(model.Role); ok {
		return role
	}
	return ""
}
