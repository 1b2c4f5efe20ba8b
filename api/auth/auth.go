/* auth.go
 * Contains the methods for the /auth endpoints. Login, register and oauth persist the returned token
 * pair in the credential store; logout revokes the refresh token then clears the store
 * Authors: Zachary Bower
 */

package auth

import (
	"context"
	"fmt"

	"arena-bot/api/client"
	"arena-bot/api/creds"
	"arena-bot/api/shared"
)

// AuthResponse is the payload returned by login, register and oauth-login
type AuthResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         *shared.User `json:"user,omitempty"`
}

// ProfileUpdate carries the editable profile fields for PUT /auth/profile
type ProfileUpdate struct {
	DisplayName  string `json:"display_name,omitempty"`
	AvatarAnimal string `json:"avatar_animal,omitempty"`
	AvatarColor  string `json:"avatar_color,omitempty"`
}

// Service wraps the /auth endpoints
type Service struct {
	C     *client.Client
	Creds creds.Store
}

// NewService creates an auth service over the given client. The credential store must be
// the same one the client reads, otherwise logins will not take effect
func NewService(c *client.Client, store creds.Store) *Service {
	return &Service{C: c, Creds: store}
}

// Login authenticates with username and password and stores the returned token pair
// Preconditions: Receives strings containing username and password
// Postconditions: Credential store holds the new pair, returns the auth response or an error if it occurs
func (s *Service) Login(ctx context.Context, username string, password string) (AuthResponse, error) {
	var res AuthResponse
	err := s.C.Post(ctx, "/auth/login", map[string]string{"username": username, "password": password}, &res)
	if err != nil {
		return AuthResponse{}, err
	}
	if err := s.storeTokens(res); err != nil {
		return AuthResponse{}, err
	}
	return res, nil
}

// Register creates a new account and stores the returned token pair
func (s *Service) Register(ctx context.Context, username string, email string, password string) (AuthResponse, error) {
	var res AuthResponse
	err := s.C.Post(ctx, "/auth/register", map[string]string{"username": username, "email": email, "password": password}, &res)
	if err != nil {
		return AuthResponse{}, err
	}
	if err := s.storeTokens(res); err != nil {
		return AuthResponse{}, err
	}
	return res, nil
}

// OAuthLogin exchanges a provider credential (e.g. a Google id token) for an arena session
func (s *Service) OAuthLogin(ctx context.Context, provider string, credential string) (AuthResponse, error) {
	var res AuthResponse
	err := s.C.Post(ctx, "/auth/oauth-login", map[string]string{"provider": provider, "credential": credential}, &res)
	if err != nil {
		return AuthResponse{}, err
	}
	if err := s.storeTokens(res); err != nil {
		return AuthResponse{}, err
	}
	return res, nil
}

// Logout revokes the stored refresh token on the backend and clears the local store.
// The store is cleared even when the revoke call fails; the session is gone either way
func (s *Service) Logout(ctx context.Context) error {
	_, refresh := s.Creds.Tokens()
	var callErr error
	if refresh != "" {
		callErr = s.C.Post(ctx, "/auth/logout", map[string]string{"refreshToken": refresh}, nil)
	}
	if err := s.Creds.Clear(); err != nil {
		return err
	}
	return callErr
}

// Me fetches the authenticated user's profile
func (s *Service) Me(ctx context.Context) (shared.User, error) {
	var res struct {
		User shared.User `json:"user"`
	}
	if err := s.C.Get(ctx, "/auth/me", &res); err != nil {
		return shared.User{}, err
	}
	return res.User, nil
}

// UpdateProfile updates display name and avatar settings
func (s *Service) UpdateProfile(ctx context.Context, update ProfileUpdate) error {
	return s.C.Put(ctx, "/auth/profile", update, nil)
}

// ChangePassword replaces the account password
func (s *Service) ChangePassword(ctx context.Context, currentPassword string, newPassword string) error {
	return s.C.Post(ctx, "/auth/change-password", map[string]string{
		"currentPassword": currentPassword,
		"newPassword":     newPassword,
	}, nil)
}

// DeleteAccount permanently removes the account and clears the local session
func (s *Service) DeleteAccount(ctx context.Context) error {
	if err := s.C.Delete(ctx, "/auth/delete-account", nil); err != nil {
		return err
	}
	return s.Creds.Clear()
}

// Leaderboard fetches the global rating leaderboard
func (s *Service) Leaderboard(ctx context.Context) ([]shared.LeaderboardEntry, error) {
	var res struct {
		Leaderboard []shared.LeaderboardEntry `json:"leaderboard"`
	}
	if err := s.C.Get(ctx, "/auth/leaderboard", &res); err != nil {
		return nil, err
	}
	return res.Leaderboard, nil
}

// ForgotPassword requests a password reset email
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	return s.C.Post(ctx, "/auth/forgot-password", map[string]string{"email": email}, nil)
}

// ResetPassword completes a password reset using the emailed token
func (s *Service) ResetPassword(ctx context.Context, token string, newPassword string) error {
	return s.C.Post(ctx, "/auth/reset-password", map[string]string{"token": token, "newPassword": newPassword}, nil)
}

func (s *Service) storeTokens(res AuthResponse) error {
	if res.AccessToken == "" || res.RefreshToken == "" {
		return fmt.Errorf("auth response missing tokens")
	}
	return s.Creds.SetTokens(res.AccessToken, res.RefreshToken)
}
