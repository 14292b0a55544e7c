package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/timekeepco/timekeep/internal/config"
	"github.com/timekeepco/timekeep/internal/logging"
	"github.com/timekeepco/timekeep/internal/service"
)

type stubProbe struct {
	err error
}

func (s stubProbe) Probe(context.Context) error { return s.err }

func newTestRouter(t *testing.T, health HealthService) http.Handler {
	t.Helper()
	auth := newAuthService(t)
	return NewRouter(logging.Discard(), RouterDependencies{
		Health:  health,
		Compare: NewCompareHandlers(logging.Discard(), service.NewComparisonService(logging.Discard()), config.CompareConfig{MaxUploadBytes: 1 << 20}),
		Auth:    NewAuthHandlers(logging.Discard(), auth, false),
		Pages:   NewPageHandlers(logging.Discard(), auth),
	})
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, HealthChecks{"users": stubProbe{}})
	if rec := serve(router, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	router = newTestRouter(t, HealthChecks{"graph": stubProbe{err: errors.New("unreachable")}})
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "graph: unreachable") {
		t.Fatalf("expected failing dependency in body, got %s", rec.Body.String())
	}
}

func TestRouterServesViewer(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/static/main.js") {
		t.Fatalf("expected viewer page to load main.js")
	}

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/static/main.js", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected static asset, got %d", rec.Code)
	}

	if rec := serve(router, httptest.NewRequest(http.MethodGet, "/nope", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestRouterHistoryDisabled(t *testing.T) {
	router := newTestRouter(t, nil)

	if rec := serve(router, httptest.NewRequest(http.MethodGet, "/api/runs", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestAppPagesRequireSession(t *testing.T) {
	router := newTestRouter(t, nil)

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/app/", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/app/login" {
		t.Fatalf("expected redirect to /app/login, got %d %s", rec.Code, rec.Header().Get("Location"))
	}

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/app/login", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected login page, got %d", rec.Code)
	}

	rec = serve(router, jsonRequest(http.MethodPost, "/api/signup", aliceSignup))
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup failed: %d", rec.Code)
	}
	rec = serve(router, jsonRequest(http.MethodPost, "/api/login", `{"username":"alice","password":"correct horse"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d", rec.Code)
	}
	cookie := sessionCookie(t, rec)

	req := httptest.NewRequest(http.MethodGet, "/app/", nil)
	req.AddCookie(cookie)
	rec = serve(router, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected home page, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/app/signup", nil)
	req.AddCookie(cookie)
	rec = serve(router, req)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/app/" {
		t.Fatalf("expected redirect to /app/, got %d %s", rec.Code, rec.Header().Get("Location"))
	}
}

func TestSignupBodyLimit(t *testing.T) {
	router := newTestRouter(t, nil)

	body := `{"username":"` + strings.Repeat("a", maxJSONBodyBytes) + `"}`
	rec := serve(router, jsonRequest(http.MethodPost, "/api/signup", body))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	router := NewRouter(logging.Discard(), RouterDependencies{AllowedOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodOptions, "/compare", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := serve(router, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("expected allowed origin header")
	}

	req = httptest.NewRequest(http.MethodOptions, "/compare", nil)
	req.Header.Set("Origin", "http://evil.example")
	if rec := serve(router, req); rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}
}
