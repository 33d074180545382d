package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/msomdec/field-review/internal/handler"
	"github.com/msomdec/field-review/internal/service"
)

func TestRequireAuth_Cookie(t *testing.T) {
	env := newTestEnv(t)

	var gotStaff string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if staff := handler.StaffFromContext(r.Context()); staff != nil {
			gotStaff = staff.DisplayName
		}
		w.WriteHeader(http.StatusOK)
	})

	req := env.authorize(httptest.NewRequest(http.MethodGet, "/protected", nil))
	w := httptest.NewRecorder()
	handler.RequireAuth(env.auth, inner).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if gotStaff != "Pat" {
		t.Fatalf("expected staff 'Pat', got %q", gotStaff)
	}
}

func TestRequireAuth_BearerHeader(t *testing.T) {
	env := newTestEnv(t)

	called := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = handler.StaffFromContext(r.Context()) != nil
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+env.token)
	handler.RequireAuth(env.auth, inner).ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Fatal("expected bearer token to authenticate")
	}
}

func TestRequireAuth_MissingOrInvalid(t *testing.T) {
	env := newTestEnv(t)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("inner handler should not be called")
	})

	for name, req := range map[string]*http.Request{
		"no cookie": httptest.NewRequest(http.MethodGet, "/protected", nil),
		"bad token": func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/protected", nil)
			r.AddCookie(&http.Cookie{Name: "auth_token", Value: "garbage"})
			return r
		}(),
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.RequireAuth(env.auth, inner).ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestRateLimit_Returns429(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	limiter := service.NewTokenBucket(ctx, 0.5, 1)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := handler.RequireAuth(env.auth, handler.RateLimit(limiter, inner))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, env.authorize(httptest.NewRequest(http.MethodPost, "/reviews/1/images", nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, env.authorize(httptest.NewRequest(http.MethodPost, "/reviews/1/images", nil)))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "2" {
		t.Fatalf("expected Retry-After 2, got %q", w.Header().Get("Retry-After"))
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := handler.SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing nosniff header")
	}
}
