// Package middleware содержит HTTP middleware маркетплейса.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"
)

type contextKey string

const partyIDKey contextKey = "partyID"

const (
	authCookieName = "auth_token"
	authCookieTTL  = 365 * 24 * time.Hour
	bearerPrefix   = "Bearer "
)

// AuthMiddleware проверяет подписанный токен стороны. Токены выпускает сервис
// идентификации с тем же секретом; сюда попадает только непрозрачный идентификатор.
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware создаёт новый экземпляр AuthMiddleware с указанным секретным ключом.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
	}
}

// Middleware извлекает токен из cookie или заголовка Authorization
// и добавляет идентификатор стороны в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		partyID, ok := a.ParseToken(token)
		if !ok {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), partyIDKey, partyID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix))
	}
	if cookie, err := r.Cookie(authCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// SetAuthCookie устанавливает cookie авторизации для указанной стороны.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, partyID string) {
	cookie := &http.Cookie{
		Name:     authCookieName,
		Value:    a.IssueToken(partyID),
		Path:     "/",
		Expires:  time.Now().Add(authCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

// IssueToken подписывает идентификатор стороны: "<id>.<hex hmac-sha256>".
func (a *AuthMiddleware) IssueToken(partyID string) string {
	return partyID + "." + a.sign(partyID)
}

// ParseToken проверяет подпись токена и возвращает идентификатор стороны.
func (a *AuthMiddleware) ParseToken(token string) (string, bool) {
	idx := strings.LastIndex(token, ".")
	if idx <= 0 || idx == len(token)-1 {
		return "", false
	}

	partyID, signature := token[:idx], token[idx+1:]
	if !hmac.Equal([]byte(signature), []byte(a.sign(partyID))) {
		return "", false
	}

	return partyID, true
}

func (a *AuthMiddleware) sign(partyID string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(partyID))
	return hex.EncodeToString(mac.Sum(nil))
}

// GetPartyIDFromContext извлекает идентификатор стороны из контекста запроса.
func GetPartyIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(partyIDKey).(string)
	return id, ok && id != ""
}

// WithPartyID возвращает контекст с идентификатором стороны.
func WithPartyID(ctx context.Context, partyID string) context.Context {
	return context.WithValue(ctx, partyIDKey, partyID)
}
