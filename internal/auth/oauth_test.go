package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

// newFakeGitHubAPI spins up an httptest server answering /user and
// /user/emails, and a provider pointed at it.
func newFakeGitHubAPI(t *testing.T, emails []githubEmail) *GitHubProvider {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(GitHubProfile{
			ID:        999,
			Login:     "nova",
			Name:      "Nova",
			Email:     "profile@x.com",
			AvatarURL: "https://avatars.githubusercontent.com/u/999",
		})
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		if emails == nil {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		json.NewEncoder(w).Encode(emails)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := NewGitHubProvider("client-id", "client-secret", "http://localhost/callback")
	p.apiURL = srv.URL
	return p
}

func TestAuthURL_CarriesState(t *testing.T) {
	p := NewGitHubProvider("client-id", "client-secret", "http://localhost/callback")

	url := p.AuthURL("state-xyz")
	if !strings.Contains(url, "state=state-xyz") {
		t.Errorf("AuthURL() = %q, missing state parameter", url)
	}
	if !strings.Contains(url, "client_id=client-id") {
		t.Errorf("AuthURL() = %q, missing client_id", url)
	}
}

func TestFetchProfile_PrimaryEmailWins(t *testing.T) {
	p := newFakeGitHubAPI(t, []githubEmail{
		{Email: "secondary@x.com", Primary: false},
		{Email: "primary@x.com", Primary: true, Verified: true},
	})

	profile, err := p.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "tok"})
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}

	if profile.ID != 999 || profile.Login != "nova" {
		t.Errorf("profile = %+v", profile)
	}
	if profile.Email != "primary@x.com" {
		t.Errorf("profile.Email = %q, want the primary address", profile.Email)
	}
}

func TestFetchProfile_FirstEmailWhenNoPrimary(t *testing.T) {
	p := newFakeGitHubAPI(t, []githubEmail{
		{Email: "first@x.com"},
		{Email: "second@x.com"},
	})

	profile, err := p.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "tok"})
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if profile.Email != "first@x.com" {
		t.Errorf("profile.Email = %q, want the first listed address", profile.Email)
	}
}

// A failing /user/emails call falls back to the profile email instead of
// failing the whole login.
func TestFetchProfile_EmailsEndpointFailureFallsBack(t *testing.T) {
	p := newFakeGitHubAPI(t, nil)

	profile, err := p.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "tok"})
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if profile.Email != "profile@x.com" {
		t.Errorf("profile.Email = %q, want the profile fallback", profile.Email)
	}
}

func TestFetchProfile_EmptyEmailListKeepsProfileEmail(t *testing.T) {
	p := newFakeGitHubAPI(t, []githubEmail{})

	profile, err := p.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "tok"})
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if profile.Email != "profile@x.com" {
		t.Errorf("profile.Email = %q, want the profile email kept", profile.Email)
	}
}

func TestFetchProfile_InvalidUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(GitHubProfile{ID: 0})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := NewGitHubProvider("client-id", "client-secret", "http://localhost/callback")
	p.apiURL = srv.URL

	if _, err := p.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "tok"}); err == nil {
		t.Fatal("FetchProfile() should reject a user with ID 0")
	}
}
