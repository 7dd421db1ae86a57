// Package httphandler is the HTTP driving adapter: REST endpoints for auth and
// bookmark commands, plus the websocket live view.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ericfisherdev/linkdeck/internal/application"
	"github.com/ericfisherdev/linkdeck/internal/domain/model"
	"github.com/ericfisherdev/linkdeck/internal/domain/port/driven"
)

// Handler serves the REST API, the OAuth redirect flow, and the websocket
// bookmark stream.
type Handler struct {
	sessions   *application.SessionManager
	commands   *application.CommandService
	health     *application.HealthService
	store      driven.BookmarkStore
	feed       driven.ChangeFeed
	secret     []byte
	sessionTTL time.Duration
	logger     *slog.Logger
}

// NewHandler creates a Handler. secret signs session cookies; sessionTTL must
// match the SessionManager's so cookie and server-side session expire together.
func NewHandler(
	sessions *application.SessionManager,
	commands *application.CommandService,
	health *application.HealthService,
	store driven.BookmarkStore,
	feed driven.ChangeFeed,
	secret []byte,
	sessionTTL time.Duration,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		sessions:   sessions,
		commands:   commands,
		health:     health,
		store:      store,
		feed:       feed,
		secret:     secret,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// NewRouter returns the routing tree with logging and recovery applied.
func NewRouter(h *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(recoveryMiddleware(logger))
	r.Use(loggingMiddleware(logger))

	r.Get("/auth/login", h.Login)
	r.Get("/auth/callback", h.Callback)
	r.Post("/auth/logout", h.Logout)

	r.Get("/api/v1/session", h.Session)
	r.Get("/api/v1/health", h.Health)

	r.Group(func(r chi.Router) {
		r.Use(h.requireSession)
		r.Get("/api/v1/bookmarks", h.ListBookmarks)
		r.Post("/api/v1/bookmarks", h.CreateBookmark)
		r.Delete("/api/v1/bookmarks/{id}", h.DeleteBookmark)
		r.Get("/api/v1/bookmarks/ws", h.StreamBookmarks)
	})

	return r
}

// Login starts the OAuth flow: the anti-forgery state goes into a short-lived
// cookie and the user is redirected to the provider.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	redirectURL, state := h.sessions.BeginSignIn()
	setStateCookie(w, state)
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// Callback completes the OAuth flow: state is checked against the cookie, the
// code is exchanged, and the resulting session is bound to a signed cookie.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	// Single-use: the state cookie is cleared no matter how validation goes,
	// before anything is written.
	clearStateCookie(w)

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		writeError(w, http.StatusBadRequest, "state mismatch")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	identity, sessionID, err := h.sessions.CompleteSignIn(r.Context(), code)
	if err != nil {
		h.logger.Error("sign-in failed", "error", err)
		writeError(w, http.StatusBadGateway, "sign-in failed")
		return
	}

	expiresAt := time.Now().UTC().Add(h.sessionTTL)
	token, err := mintSessionToken(h.secret, sessionID, expiresAt)
	if err != nil {
		h.logger.Error("session token mint failed", "user", identity.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	setSessionCookie(w, token, expiresAt)
	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout ends the session. Safe to call when already signed out.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := sessionIDFromRequest(r, h.secret); ok {
		if err := h.sessions.SignOut(r.Context(), sessionID); err != nil {
			h.logger.Error("sign-out failed", "session", sessionID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
	}

	clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Session reports the caller's sign-in state. Always 200; an absent or expired
// session yields signed_in=false rather than an error, so the page can probe
// without special-casing.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDFromRequest(r, h.secret)
	if !ok {
		writeJSON(w, http.StatusOK, SessionResponse{SignedIn: false})
		return
	}

	identity, ok := h.sessions.IdentityFor(r.Context(), sessionID)
	if !ok {
		clearSessionCookie(w)
		writeJSON(w, http.StatusOK, SessionResponse{SignedIn: false})
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{SignedIn: true, User: toUserResponse(identity)})
}

// ListBookmarks returns the caller's bookmarks, newest first.
func (h *Handler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	bookmarks, err := h.store.ListByOwner(r.Context(), identity.ID)
	if err != nil {
		h.logger.Error("failed to list bookmarks", "owner", identity.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toBookmarkResponses(bookmarks))
}

// CreateBookmark stores a new bookmark for the caller and publishes the change.
func (h *Handler) CreateBookmark(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req CreateBookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	b, err := h.commands.Create(r.Context(), identity, req.Title, req.URL)
	if err != nil {
		var mutErr *model.MutationError
		if errors.As(err, &mutErr) && !errors.Is(err, model.ErrNotSignedIn) {
			writeError(w, http.StatusBadRequest, mutErr.Err.Error())
			return
		}
		h.logger.Error("failed to create bookmark", "owner", identity.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toBookmarkResponse(b))
}

// DeleteBookmark removes one of the caller's bookmarks and publishes the
// change. The REST path has no synchronizer to patch; websocket sessions fold
// the published deleted event.
func (h *Handler) DeleteBookmark(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.commands.Delete(r.Context(), nil, identity, id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "bookmark not found")
			return
		}
		h.logger.Error("failed to delete bookmark", "owner", identity.ID, "bookmark", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health probes the service's dependencies and reports per-component status.
// Degraded dependencies yield a 503 so load balancers can act on it.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ok, statuses := h.health.Check(r.Context())

	components := make([]ComponentResponse, 0, len(statuses))
	for _, s := range statuses {
		status := "ok"
		if !s.OK {
			status = "unavailable"
		}
		components = append(components, ComponentResponse{
			Name:   s.Name,
			Status: status,
			Detail: s.Detail,
		})
	}

	resp := HealthResponse{
		Status:     "ok",
		Time:       time.Now().UTC().Format(time.RFC3339),
		Components: components,
	}
	code := http.StatusOK
	if !ok {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, resp)
}
