package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/senyabanana/tender-engine/internal/models"
	"github.com/senyabanana/tender-engine/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const principalKey contextKey = "principal"

// Claims - содержимое токена: sub - ID пользователя, role - его роль.
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// NewToken выпускает HS256 токен для пользователя.
func NewToken(secret []byte, principal models.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: principal.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken проверяет подпись и срок действия токена и возвращает пользователя.
func ParseToken(secret []byte, tokenString string) (models.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return models.Principal{}, errors.New("invalid or expired token")
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return models.Principal{}, errors.New("invalid user ID in token")
	}
	if !claims.Role.Valid() {
		return models.Principal{}, errors.New("invalid role in token")
	}
	return models.Principal{ID: claims.Subject, Role: claims.Role}, nil
}

// Middleware проверяет Bearer токен и кладёт пользователя в контекст запроса.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.SendErrorResponse(w, models.NewUnauthenticatedError("missing Authorization header"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				utils.SendErrorResponse(w, models.NewUnauthenticatedError("invalid Authorization header format"))
				return
			}

			principal, err := ParseToken(secret, parts[1])
			if err != nil {
				utils.SendErrorResponse(w, models.NewUnauthenticatedError(err.Error()))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// WithPrincipal возвращает контекст с пользователем.
func WithPrincipal(ctx context.Context, principal models.Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// PrincipalFromContext достаёт пользователя из контекста.
func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	principal, ok := ctx.Value(principalKey).(models.Principal)
	return principal, ok
}
