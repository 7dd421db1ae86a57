package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestProvider spins up an httptest server standing in for both the OAuth
// token endpoint and the GitHub API, and returns a provider pointed at it.
func newTestProvider(t *testing.T, mux *http.ServeMux) *AuthProvider {
	t.Helper()

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p, err := NewAuthProviderWithEndpoints(
		"client-id", "client-secret",
		"http://localhost/auth/callback",
		srv.URL+"/login/oauth/authorize",
		srv.URL+"/login/oauth/access_token",
		srv.URL+"/",
	)
	require.NoError(t, err)

	return p
}

func TestAuthCodeURL_CarriesState(t *testing.T) {
	p := newTestProvider(t, http.NewServeMux())

	u := p.AuthCodeURL("state-123")

	assert.Contains(t, u, "state=state-123")
	assert.Contains(t, u, "client_id=client-id")
}

func TestExchange_Success(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login/oauth/access_token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gho_test","token_type":"bearer"}`))
	})
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gho_test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42,"email":"octo@example.com","name":"Octo Cat"}`))
	})

	p := newTestProvider(t, mux)

	identity, err := p.Exchange(context.Background(), "code-abc")
	require.NoError(t, err)
	assert.Equal(t, "42", identity.ID)
	assert.Equal(t, "octo@example.com", identity.Email)
	assert.Equal(t, "Octo Cat", identity.Name)
}

func TestExchange_FallsBackToPrimaryEmail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login/oauth/access_token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gho_test","token_type":"bearer"}`))
	})
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":42,"name":"Octo Cat"}`))
	})
	mux.HandleFunc("GET /user/emails", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"email":"alt@example.com","primary":false},{"email":"primary@example.com","primary":true}]`))
	})

	p := newTestProvider(t, mux)

	identity, err := p.Exchange(context.Background(), "code-abc")
	require.NoError(t, err)
	assert.Equal(t, "primary@example.com", identity.Email)
}

func TestExchange_TokenEndpointFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login/oauth/access_token", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	p := newTestProvider(t, mux)

	_, err := p.Exchange(context.Background(), "code-abc")
	require.Error(t, err)
}
