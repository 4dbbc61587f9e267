// Package middleware содержит HTTP middleware сервиса лояльности.
package middleware

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	accountIDKey contextKey = "accountID"
	branchIDKey  contextKey = "branchID"
)

const (
	authCookieName = "auth_token"
	authCookieTTL  = 30 * 24 * time.Hour
	tokenIssuer    = "cafe-loyalty"
)

// Role роль владельца токена доступа.
type Role string

const (
	// RoleCustomer клиент программы лояльности.
	RoleCustomer Role = "customer"
	// RoleBranch терминал кассира в филиале.
	RoleBranch Role = "branch"
)

// Claims содержимое токена доступа. Subject хранит идентификатор клиента или филиала.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware выпускает и проверяет подписанные токены доступа (JWT, HS256).
// Клиенты передают токен в cookie, терминалы филиалов в заголовке Authorization.
type AuthMiddleware struct {
	secretKey []byte
	now       func() time.Time
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
// При пустом ключе генерируется случайный, и токены не переживают перезапуск.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
	}

	return &AuthMiddleware{
		secretKey: key,
		now:       time.Now,
	}
}

// IssueToken выпускает токен доступа для роли role и идентификатора id.
func (a *AuthMiddleware) IssueToken(role Role, id int64, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(id, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// SetAuthCookie устанавливает cookie авторизации клиента.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, accountID int64) error {
	value, err := a.IssueToken(RoleCustomer, accountID, authCookieTTL)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    value,
		Path:     "/",
		Expires:  a.now().Add(authCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// RequireCustomer пропускает только запросы с действующей cookie клиента
// и кладёт идентификатор клиента в контекст запроса.
func (a *AuthMiddleware) RequireCustomer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(authCookieName)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		id, err := a.parse(cookie.Value, RoleCustomer)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), accountIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireBranch пропускает только запросы терминалов филиалов с заголовком
// "Authorization: Bearer <token>".
func (a *AuthMiddleware) RequireBranch(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		id, err := a.parse(raw, RoleBranch)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), branchIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

var errWrongRole = errors.New("token role mismatch")

func (a *AuthMiddleware) parse(raw string, role Role) (int64, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return 0, err
	}

	if claims.Role != role {
		return 0, errWrongRole
	}

	return strconv.ParseInt(claims.Subject, 10, 64)
}

// GetAccountIDFromContext извлекает идентификатор клиента из контекста запроса.
func GetAccountIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(accountIDKey).(int64)
	return id, ok
}

// GetBranchIDFromContext извлекает идентификатор филиала из контекста запроса.
func GetBranchIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(branchIDKey).(int64)
	return id, ok
}
