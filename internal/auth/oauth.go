package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// googleUserInfoURL is the OpenID Connect userinfo endpoint.
const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleUser is the portion of Google's userinfo response we care about.
//
// Docs: https://developers.google.com/identity/openid-connect/openid-connect#obtainuserinfo
type GoogleUser struct {
	Sub           string `json:"sub"` // stable Google account ID, becomes User.GoogleID
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleProvider wraps golang.org/x/oauth2 for the Google Authorization Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. The server redirects the user to Google with our ClientID and scopes.
//  2. The user approves the request on Google's consent screen.
//  3. Google redirects back to the callback URL with a short-lived "code".
//  4. The server exchanges the code for an access token (server-to-server).
//  5. The server calls the userinfo endpoint with that token.
//
// The resulting GoogleUser feeds the same SSO login used by the SPA's
// POST /auth/sso/google, so both entry points create or log in users the
// same way.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewGoogleProvider creates a GoogleProvider with the given credentials.
// callbackURL must match an "Authorized redirect URI" of the OAuth client
// exactly, e.g. "http://localhost:8080/api/auth/google/callback".
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
}

// AuthURL returns the consent screen URL. state is a random value the
// caller also stores in a short-lived cookie; the callback must present the
// same value or it is rejected (CSRF protection).
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for the user's Google profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// The returned client adds "Authorization: Bearer <token>" to every request.
	client := p.config.Client(ctx, oauthToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building userinfo request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling Google userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Google userinfo returned status %d", resp.StatusCode)
	}

	var gUser GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&gUser); err != nil {
		return nil, fmt.Errorf("auth: decoding Google userinfo: %w", err)
	}

	if gUser.Sub == "" || gUser.Email == "" {
		return nil, fmt.Errorf("auth: Google returned an incomplete profile")
	}

	return &gUser, nil
}
