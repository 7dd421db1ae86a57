// Package github implements the AuthProvider port using GitHub OAuth and the
// go-github library.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	gh "github.com/google/go-github/v82/github"
	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"

	"github.com/ericfisherdev/linkdeck/internal/domain/model"
	"github.com/ericfisherdev/linkdeck/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AuthProvider = (*AuthProvider)(nil)

// AuthProvider implements the driven.AuthProvider port: the standard OAuth
// authorization-code flow against GitHub, followed by an identity lookup with
// the exchanged token.
type AuthProvider struct {
	oauth *oauth2.Config
	// newClient builds the API client for an exchanged token. Overridable in
	// tests to point at an httptest server.
	newClient func(token string) *gh.Client
}

// NewAuthProvider creates a provider for the given OAuth app credentials.
// redirectURL must match the callback URL registered with the OAuth app.
func NewAuthProvider(clientID, clientSecret, redirectURL string) *AuthProvider {
	return &AuthProvider{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     oauthgithub.Endpoint,
		},
		newClient: func(token string) *gh.Client {
			return gh.NewClient(nil).WithAuthToken(token)
		},
	}
}

// NewAuthProviderWithEndpoints creates a provider with custom OAuth and API
// endpoints. This constructor is intended for testing against httptest servers.
func NewAuthProviderWithEndpoints(clientID, clientSecret, redirectURL, authURL, tokenURL, apiBaseURL string) (*AuthProvider, error) {
	base, err := url.Parse(apiBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing API base URL: %w", err)
	}

	return &AuthProvider{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
		newClient: func(token string) *gh.Client {
			client := gh.NewClient(&http.Client{
				Transport: &tokenTransport{token: token},
			})
			client.BaseURL = base
			return client
		},
	}, nil
}

// AuthCodeURL returns GitHub's authorize URL carrying the anti-forgery state.
func (p *AuthProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for the signed-in user's identity.
// Failures are wrapped as AuthError so callers can report them without
// touching session state.
func (p *AuthProvider) Exchange(ctx context.Context, code string) (model.Identity, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return model.Identity{}, &model.AuthError{Op: "exchange", Err: err}
	}

	client := p.newClient(token.AccessToken)

	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return model.Identity{}, &model.AuthError{Op: "fetch user", Err: err}
	}

	identity := model.Identity{
		ID:    strconv.FormatInt(user.GetID(), 10),
		Email: user.GetEmail(),
		Name:  user.GetName(),
	}

	// The public profile email can be unset; fall back to the primary address
	// from the emails endpoint (requires the user:email scope).
	if identity.Email == "" {
		emails, _, err := client.Users.ListEmails(ctx, nil)
		if err != nil {
			return model.Identity{}, &model.AuthError{Op: "fetch emails", Err: err}
		}
		for _, e := range emails {
			if e.GetPrimary() {
				identity.Email = e.GetEmail()
				break
			}
		}
	}

	return identity, nil
}

// tokenTransport adds a bearer token to requests; used by the test
// constructor where WithAuthToken would fight the custom base URL.
type tokenTransport struct {
	token string
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.token)
	return http.DefaultTransport.RoundTrip(clone)
}
