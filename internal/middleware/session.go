// Package middleware содержит HTTP middleware сайта наград.
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

	"github.com/mmeshcher/rewards-site/internal/session"
)

type contextKey string

const sessionKey contextKey = "session"

const (
	sessionCookieName = "session_token"
	sessionCookieTTL  = 365 * 24 * time.Hour
)

// SessionMiddleware связывает запрос с сессией посетителя по подписанному cookie.
type SessionMiddleware struct {
	secretKey []byte
	registry  *session.Registry
	onCreate  func(r *http.Request, s *session.Session)
}

// NewSessionMiddleware создаёт middleware с указанным секретным ключом.
// onCreate вызывается для каждой вновь созданной сессии и может быть nil.
func NewSessionMiddleware(secret string, registry *session.Registry, onCreate func(r *http.Request, s *session.Session)) *SessionMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &SessionMiddleware{
		secretKey: key,
		registry:  registry,
		onCreate:  onCreate,
	}
}

// Middleware находит сессию по cookie или создаёт её и добавляет в контекст запроса.
// Новый идентификатор выдаётся, только если cookie нет или подпись неверна.
func (m *SessionMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			sess    *session.Session
			created bool
		)

		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			if id, ok := m.parseCookie(cookie.Value); ok {
				// Сессия с подписанным идентификатором могла пропасть после перезапуска
				// или очистки реестра: восстанавливаем её под тем же идентификатором.
				sess, created = m.registry.CreateWithID(id)
			}
		}

		if sess == nil {
			sess = m.registry.Create()
			created = true
			m.SetSessionCookie(w, sess.ID)
		}

		ctx := context.WithValue(r.Context(), sessionKey, sess)
		if created && m.onCreate != nil {
			m.onCreate(r.WithContext(ctx), sess)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetSessionCookie устанавливает cookie сессии для указанного идентификатора.
func (m *SessionMiddleware) SetSessionCookie(w http.ResponseWriter, id string) {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    m.sign(id),
		Path:     "/",
		Expires:  time.Now().Add(sessionCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	http.SetCookie(w, cookie)
}

func (m *SessionMiddleware) sign(id string) string {
	mac := hmac.New(sha256.New, m.secretKey)
	mac.Write([]byte(id))
	return id + "." + hex.EncodeToString(mac.Sum(nil))
}

func (m *SessionMiddleware) parseCookie(value string) (string, bool) {
	id, signature, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}

	_, expected, _ := strings.Cut(m.sign(id), ".")
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return "", false
	}

	return id, true
}

// GetSessionFromContext извлекает сессию из контекста запроса.
func GetSessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*session.Session)
	return s, ok
}
