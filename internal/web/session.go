package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CookieName is the cookie carrying the signed session token.
const CookieName = "meal_planner_session"

type sessionKey struct{}

// SessionID returns the session ID stored on the request context by the
// session middleware.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// sessionCookies issues and verifies HS256 session tokens. The token
// subject is the session ID; no planner data is put in the cookie.
type sessionCookies struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func newSessionCookies(secret []byte, ttl time.Duration, logger *zap.Logger) *sessionCookies {
	return &sessionCookies{secret: secret, ttl: ttl, now: time.Now, logger: logger}
}

func (s *sessionCookies) issue(id string) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, expires, nil
}

// verify returns the session ID and expiry held by a token.
func (s *sessionCookies) verify(raw string) (string, time.Time, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", time.Time{}, err
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", time.Time{}, errors.New("session subject is not a UUID")
	}
	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	return claims.Subject, expires, nil
}

// Middleware attaches a session ID to every request. A missing, invalid
// or half-expired token is replaced, keeping the ID when it is still
// valid.
func (s *sessionCookies) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		var expires time.Time
		if c, err := r.Cookie(CookieName); err == nil {
			id, expires, err = s.verify(c.Value)
			if err != nil {
				s.logger.Debug("discarding session cookie", zap.Error(err))
				id = ""
			}
		}

		if id == "" || expires.Sub(s.now()) < s.ttl/2 {
			if id == "" {
				id = uuid.NewString()
			}
			token, exp, err := s.issue(id)
			if err != nil {
				s.logger.Error("failed to issue session", zap.Error(err))
				http.Error(w, "session unavailable", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    token,
				Path:     "/",
				Expires:  exp,
				MaxAge:   int(s.ttl.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	})
}
