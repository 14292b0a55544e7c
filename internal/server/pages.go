package server

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/timekeepco/timekeep/internal/session"
)

//go:embed web
var webFS embed.FS

// SessionChecker resolves a session token.
type SessionChecker interface {
	CheckSession(ctx context.Context, token string) (session.Claims, error)
}

// PageHandlers serves the embedded viewer and ShipKeep pages.
type PageHandlers struct {
	logger   *slog.Logger
	sessions SessionChecker
	files    fs.FS
}

// NewPageHandlers constructs PageHandlers over the embedded web assets.
func NewPageHandlers(logger *slog.Logger, sessions SessionChecker) *PageHandlers {
	files, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err)
	}
	return &PageHandlers{logger: logger, sessions: sessions, files: files}
}

func (h *PageHandlers) staticHandler() http.Handler {
	static, err := fs.Sub(h.files, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(static)))
}

func (h *PageHandlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	h.servePage(w, r, "index.html")
}

func (h *PageHandlers) handleApp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet, http.MethodHead)
		return
	}
	loggedIn := h.loggedIn(r)

	switch r.URL.Path {
	case "/app/", "/app/home":
		if !loggedIn {
			http.Redirect(w, r, "/app/login", http.StatusFound)
			return
		}
		h.servePage(w, r, "app/home.html")
	case "/app/login", "/app/signup":
		if loggedIn {
			http.Redirect(w, r, "/app/", http.StatusFound)
			return
		}
		h.servePage(w, r, "app"+r.URL.Path[len("/app"):]+".html")
	default:
		http.NotFound(w, r)
	}
}

func (h *PageHandlers) loggedIn(r *http.Request) bool {
	if h.sessions == nil {
		return false
	}
	token := session.TokenFromRequest(r)
	if token == "" {
		return false
	}
	_, err := h.sessions.CheckSession(r.Context(), token)
	return err == nil
}

func (h *PageHandlers) servePage(w http.ResponseWriter, r *http.Request, name string) {
	body, err := fs.ReadFile(h.files, name)
	if err != nil {
		h.logger.Error("embedded page missing", "page", name, "error", err)
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(body)
	}
}
