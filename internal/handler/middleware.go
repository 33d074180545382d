package handler

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/msomdec/field-review/internal/domain"
	"github.com/msomdec/field-review/internal/service"
)

type contextKey string

const staffContextKey contextKey = "staff"

const authCookie = "auth_token"

// StaffFromContext extracts the authenticated staff member from the request
// context. Returns nil if nobody is authenticated.
func StaffFromContext(ctx context.Context) *domain.Staff {
	staff, _ := ctx.Value(staffContextKey).(*domain.Staff)
	return staff
}

// RequireAuth is middleware that protects routes requiring authentication.
// It reads the platform token from the auth_token cookie or a Bearer
// header and injects the staff member into the request context. Returns 401
// for unauthenticated requests.
func RequireAuth(auth *service.AuthService, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		staff, err := authenticateRequest(r, auth)
		if err != nil {
			if wantsJSON(r) || r.Method != http.MethodGet {
				writeError(w, http.StatusUnauthorized, "Not authenticated.")
				return
			}
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), staffContextKey, staff)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func authenticateRequest(r *http.Request, auth *service.AuthService) (*domain.Staff, error) {
	token := ""
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, value, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			token = strings.TrimSpace(value)
		}
	}
	if token == "" {
		cookie, err := r.Cookie(authCookie)
		if err != nil {
			return nil, err
		}
		token = cookie.Value
	}
	if token == "" {
		return nil, errors.New("empty token")
	}
	return auth.ValidateToken(token)
}

// RateLimit throttles a route per staff member. It must run inside
// RequireAuth.
func RateLimit(limiter *service.TokenBucket, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if staff := StaffFromContext(r.Context()); staff != nil {
			key = "staff:" + staff.ID
		}
		ok, wait := limiter.Allow(key)
		if !ok {
			if wait > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			}
			writeError(w, http.StatusTooManyRequests, "Too many uploads. Please wait a moment and try again.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders sets conservative browser security headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
