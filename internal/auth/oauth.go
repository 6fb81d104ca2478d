package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GitHubProfile is the provider identity the resolver works with: the /user
// response fields we keep plus the email chosen from /user/emails.
//
// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type GitHubProfile struct {
	ID        int64  `json:"id"`         // GitHub's numeric user ID — stable, never changes
	Login     string `json:"login"`      // GitHub username
	Name      string `json:"name"`       // Display name (may be empty)
	Email     string `json:"email"`      // Profile email — often empty, see FetchProfile
	AvatarURL string `json:"avatar_url"`
}

// githubEmail is one entry of the /user/emails response.
type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code
// flow. The code-for-token exchange happens server-to-server using the client
// secret — the provider access token never reaches the browser.
type GitHubProvider struct {
	config *oauth2.Config
	apiURL string // overridable for tests
}

// NewGitHubProvider creates a GitHubProvider. callbackURL must exactly match
// the "Authorization callback URL" configured on the GitHub OAuth App.
//
// Scopes requested:
//   - "read:user"  — public profile (ID, login, name, avatar)
//   - "user:email" — email addresses, including ones hidden from the profile
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		apiURL: "https://api.github.com",
	}
}

// AuthURL returns the GitHub authorization URL the client should send the
// user to. The state value is echoed back on the callback; callers are
// expected to verify it to defeat CSRF on the OAuth flow.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the one-time authorization code for a provider access
// token. A provider rejection here means the code is bad (expired, replayed,
// or forged) — the caller surfaces this as an upstream auth failure.
//
// One retry with a short backoff covers transient network failures; a
// provider-side rejection is never retried because the code is single-use.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
		}
		if _, ok := err.(*oauth2.RetrieveError); ok {
			// GitHub answered and said no — retrying won't help.
			return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("auth: exchanging OAuth code: %w", ctx.Err())
		case <-time.After(200 * time.Millisecond):
		}
		token, err = p.config.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
		}
	}
	return token, nil
}

// FetchProfile calls the GitHub API with the exchanged token and assembles a
// GitHubProfile.
//
// EMAIL SELECTION:
// The /user profile email is empty whenever the user hides it, so we call
// /user/emails (which the user:email scope unlocks) and pick, in order:
//  1. the address marked primary
//  2. the first address in the list
//  3. whatever the profile email field says (possibly empty)
//
// A failure of the /user/emails call alone is not fatal — the profile email
// fallback still applies.
func (p *GitHubProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*GitHubProfile, error) {
	// oauth2.Config.Client returns an *http.Client that injects the
	// Authorization header on every request.
	client := p.config.Client(ctx, token)

	var profile GitHubProfile
	if err := p.getJSON(ctx, client, p.apiURL+"/user", &profile); err != nil {
		return nil, fmt.Errorf("auth: fetching GitHub profile: %w", err)
	}
	if profile.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}

	var emails []githubEmail
	if err := p.getJSON(ctx, client, p.apiURL+"/user/emails", &emails); err == nil {
		if picked := pickEmail(emails); picked != "" {
			profile.Email = picked
		}
	}

	return &profile, nil
}

// pickEmail applies the primary-then-first selection rule. Returns "" when
// the list is empty so the caller keeps the profile email.
func pickEmail(emails []githubEmail) string {
	for _, e := range emails {
		if e.Primary {
			return e.Email
		}
	}
	if len(emails) > 0 {
		return emails[0].Email
	}
	return ""
}

// getJSON performs a GET with one retry on transport errors and decodes the
// JSON response into out.
func (p *GitHubProvider) getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
		resp, err = client.Get(url)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s returned status %d", url, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", url, err)
	}
	return nil
}
