package services

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"arenacli/internal/apierror"
	"arenacli/internal/httpclient"
	"arenacli/pkg/logging"
)

// AuthService talks to the backend's /auth routes.
type AuthService struct {
	base
}

// NewAuthService creates an AuthService without retries.
func NewAuthService(client *httpclient.Client) *AuthService {
	return &AuthService{base: base{client: client}}
}

// ValidateToken asks the backend whether the current bearer token is valid.
func (s *AuthService) ValidateToken(ctx context.Context) (*TokenValidation, error) {
	v, err := httpclient.Do[TokenValidation](ctx, s.client, "/auth/validate", httpclient.RequestOptions{})
	if err != nil {
		logging.Debug("AuthService", "Token validation failed: %v", err)
		return nil, err
	}
	return &v, nil
}

// Logout tells the backend to drop the session for token. The token is
// passed explicitly because the caller usually clears it locally first.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	opts := httpclient.RequestOptions{Method: http.MethodPost}
	if token != "" {
		opts.Headers = map[string]string{"Authorization": "Bearer " + token}
	}
	_, err := s.client.Request(ctx, "/auth/logout", opts)
	return err
}

// Me returns the authenticated user.
func (s *AuthService) Me(ctx context.Context) (*User, error) {
	u, err := httpclient.Do[User](ctx, s.client, "/auth/me", httpclient.RequestOptions{Retry: s.retry})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ExchangeDiscordCode completes a Discord login at the backend callback route.
func (s *AuthService) ExchangeDiscordCode(ctx context.Context, code, state string) (*LoginResult, error) {
	res, err := httpclient.Do[LoginResult](ctx, s.client, "/auth/discord/callback", httpclient.RequestOptions{
		Query: url.Values{"code": {code}, "state": {state}},
	})
	if err != nil {
		logging.Warn("AuthService", "Discord code exchange failed: %v", err)
		return nil, err
	}
	if !res.Success || res.Token == "" {
		return nil, apierror.New(apierror.DiscordOAuthError, http.StatusBadGateway, "backend returned no session token", nil)
	}
	return &res, nil
}

// LinkDiscord attaches a Discord identity to the current user. No new
// session token is issued.
func (s *AuthService) LinkDiscord(ctx context.Context, code, state string) (*User, error) {
	type linkResponse struct {
		Success bool  `json:"success"`
		User    *User `json:"user"`
	}
	res, err := httpclient.Do[linkResponse](ctx, s.client, "/auth/discord/link", httpclient.RequestOptions{
		Method: http.MethodPost,
		Body:   map[string]string{"code": code, "state": state},
	})
	if err != nil {
		logging.Warn("AuthService", "Discord account link failed: %v", err)
		return nil, err
	}
	if res.User == nil {
		return nil, errors.New("backend returned no user for linked account")
	}
	return res.User, nil
}
