package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/linkdeck/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// BookmarkResponse is the JSON representation of a bookmark.
type BookmarkResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
}

// CreateBookmarkRequest is the JSON body for the create bookmark endpoint.
type CreateBookmarkRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// SessionResponse is the JSON representation of the caller's sign-in state.
// User is present only when SignedIn is true.
type SessionResponse struct {
	SignedIn bool          `json:"signed_in"`
	User     *UserResponse `json:"user,omitempty"`
}

// UserResponse is the JSON representation of a signed-in identity.
type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status     string              `json:"status"`
	Time       string              `json:"time"`
	Components []ComponentResponse `json:"components"`
}

// ComponentResponse is the health view of one dependency.
type ComponentResponse struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// toBookmarkResponse converts a domain Bookmark to its JSON representation.
// The owner is implied by the authenticated session and never serialized.
func toBookmarkResponse(b model.Bookmark) BookmarkResponse {
	return BookmarkResponse{
		ID:        b.ID,
		Title:     b.Title,
		URL:       b.URL,
		CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// toBookmarkResponses converts a snapshot, preserving order and mapping a nil
// slice to an empty JSON array.
func toBookmarkResponses(bookmarks []model.Bookmark) []BookmarkResponse {
	resp := make([]BookmarkResponse, 0, len(bookmarks))
	for _, b := range bookmarks {
		resp = append(resp, toBookmarkResponse(b))
	}
	return resp
}

// toUserResponse converts a domain Identity to its JSON representation.
func toUserResponse(identity model.Identity) *UserResponse {
	return &UserResponse{
		ID:    identity.ID,
		Email: identity.Email,
		Name:  identity.Name,
	}
}
