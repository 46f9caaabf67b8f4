package auth

import (
	"context"
	"net/http"
	"strings"
	"time"
)

type ctxKey string

const tokenKey ctxKey = "chores_token"

// TokenHeader is the header the chores API reads its credential from.
const TokenHeader = "token"

type Middleware struct {
	now func() time.Time
}

func New() Middleware {
	return Middleware{now: time.Now}
}

// Wrap reads the chores token from the request, rejects it early when it is
// an expired JWT and stores it in the request context.
func (m Middleware) Wrap(next http.HandlerFunc) http.HandlerFunc {
	now := m.now
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		token := TokenFromRequest(r)
		if err := CheckExpiry(token, now()); err != nil {
			http.Error(w, "token expired", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), tokenKey, token)
		next(w, r.WithContext(ctx))
	}
}

// TokenFromRequest prefers the token header and falls back to a bearer
// Authorization header.
func TokenFromRequest(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get(TokenHeader)); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

func TokenFromContext(ctx context.Context) string {
	v, _ := ctx.Value(tokenKey).(string)
	return v
}
