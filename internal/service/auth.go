// Package service contains the business logic layer: identity resolution,
// refresh session management, the course catalog and enrollment creation.
//
// Services receive repository interfaces and auth primitives, never HTTP
// types or concrete sqlite stores. Handlers translate service errors into
// responses; services translate provider/store failures into the apperror
// taxonomy.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/tahmid/coursehub/internal/apperror"
	"github.com/tahmid/coursehub/internal/auth"
	"github.com/tahmid/coursehub/internal/model"
	"github.com/tahmid/coursehub/internal/repository"
)

// GitHubClient is the slice of auth.GitHubProvider the resolver needs.
// An interface so tests can fake the provider without network calls.
type GitHubClient interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, token *oauth2.Token) (*auth.GitHubProfile, error)
}

// AuthService resolves a GitHub OAuth code into a local user account.
type AuthService struct {
	users  repository.UserRepository
	github GitHubClient
	logger *slog.Logger
}

func NewAuthService(users repository.UserRepository, github GitHubClient, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		github: github,
		logger: logger,
	}
}

// AuthURL returns the GitHub authorization URL for the given state value.
func (s *AuthService) AuthURL(state string) string {
	return s.github.AuthURL(state)
}

// ResolveGitHub exchanges the one-time OAuth code for a verified identity and
// upserts the local account. Returns the user and whether this was their
// first login.
//
// Two distinct upstream failure points:
//   - the code exchange (provider rejected the code, or is unreachable)
//   - the profile/email fetch after a successful exchange
//
// Both wrap apperror.ErrUpstream; the provider detail lands in the log only.
// Role and status are never touched for returning users — the provider does
// not control authorization. LastLogin is set on every resolve. A non-active
// account is refused after the upsert with the generic unauthorized error.
func (s *AuthService) ResolveGitHub(ctx context.Context, code string) (*model.User, bool, error) {
	if code == "" {
		return nil, false, apperror.ValidationFailed("code", "OAuth code is required")
	}

	token, err := s.github.Exchange(ctx, code)
	if err != nil {
		s.logger.Error("github code exchange failed", slog.String("error", err.Error()))
		return nil, false, apperror.Upstream("github exchange", err)
	}

	profile, err := s.github.FetchProfile(ctx, token)
	if err != nil {
		s.logger.Error("github profile fetch failed", slog.String("error", err.Error()))
		return nil, false, apperror.Upstream("github profile", err)
	}

	isNew := false
	if _, err := s.users.FindByGitHubID(ctx, profile.ID); err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, false, fmt.Errorf("service/auth: looking up github user %d: %w", profile.ID, err)
		}
		isNew = true
	}

	user := &model.User{
		GitHubID:  profile.ID,
		Username:  profile.Login,
		Name:      profile.Name,
		Email:     profile.Email,
		AvatarURL: profile.AvatarURL,
		// Defaults apply on insert only; the store keeps existing role/status
		// for returning users.
		Role:   model.RoleLearner,
		Status: model.StatusActive,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, false, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", profile.ID, err)
	}

	// Blocked accounts can prove who they are to GitHub all they like; they
	// don't get credentials here. Same generic rejection as any other
	// credential failure.
	if user.Status != model.StatusActive {
		s.logger.Warn("login rejected: account not active",
			slog.String("userID", user.ID),
			slog.String("status", string(user.Status)),
		)
		return nil, false, apperror.Unauthorized()
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
		slog.Bool("newUser", isNew),
	)

	return user, isNew, nil
}

// GetUserByID returns the user for the given internal ID. Used by /api/me
// after the middleware has verified the access token.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}
