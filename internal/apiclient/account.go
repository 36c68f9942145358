package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"tellme/internal/core"
)

const (
	loginPath         = "/accounts/login/"
	registerPath      = "/accounts/register/"
	profilePath       = "/accounts/profile/"
	passwordResetPath = "/accounts/password-reset/"
)

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrMissingEmail       = errors.New("email is required")
)

// RegisterRequest is the sign-up form. Vendors also send their contact
// address and the provider flag.
type RegisterRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Mobile     string `json:"mobile,omitempty"`
	Password   string `json:"password"`
	Phone      string `json:"phone,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Pincode    string `json:"pincode,omitempty"`
	IsProvider bool   `json:"is_provider,omitempty"`
}

// Profile is the signed-in customer's account
type Profile struct {
	ID       core.ID `json:"id,omitempty"`
	Username string  `json:"username"`
	Email    string  `json:"email,omitempty"`
	Phone    string  `json:"phone"`
	City     string  `json:"city"`
	State    string  `json:"state"`
	Pincode  string  `json:"pincode"`

	IsProvider bool `json:"is_provider,omitempty"`
}

// Login exchanges email and password for a credential pair and stores it
func (c *Client) Login(ctx context.Context, email, password string) (*core.Credentials, error) {
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	var creds core.Credentials
	err := c.DoJSON(ctx, Request{
		Method: http.MethodPost,
		Path:   loginPath,
		JSON:   map[string]string{"email": email, "password": password},
	}, &creds)
	if err != nil {
		return nil, fmt.Errorf("failed to login: %w", err)
	}
	if !creds.HasAccess() {
		return nil, fmt.Errorf("failed to login: %w", errEmptyAccess)
	}

	c.tokens.Set(ctx, creds)
	c.logger.Info("logged in", "has_refresh", creds.HasRefresh())
	return &creds, nil
}

// Register creates an account and signs in. When the registration response
// carries no tokens the client logs in with the same email and password.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*core.Credentials, error) {
	if req.Email == "" || req.Password == "" {
		return nil, ErrMissingCredentials
	}

	var creds core.Credentials
	err := c.DoJSON(ctx, Request{Method: http.MethodPost, Path: registerPath, JSON: req}, &creds)
	if err != nil {
		return nil, fmt.Errorf("failed to register: %w", err)
	}

	if creds.HasAccess() {
		c.tokens.Set(ctx, creds)
		c.logger.Info("registered", "username", req.Username)
		return &creds, nil
	}

	c.logger.Info("registered, signing in", "username", req.Username)
	return c.Login(ctx, req.Email, req.Password)
}

// RegisterVendor creates a provider account and signs in. The vendor
// creates its provider profile afterwards.
func (c *Client) RegisterVendor(ctx context.Context, req RegisterRequest) (*core.Credentials, error) {
	req.IsProvider = true
	return c.Register(ctx, req)
}

// PasswordReset asks the backend to mail a reset link to email
func (c *Client) PasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrMissingEmail
	}

	err := c.DoJSON(ctx, Request{
		Method: http.MethodPost,
		Path:   passwordResetPath,
		JSON:   map[string]string{"email": email},
		Auth:   AuthNone,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to request password reset: %w", err)
	}
	c.logger.Info("password reset requested")
	return nil
}

// Logout forgets the stored credentials. The backend keeps no session state.
func (c *Client) Logout(ctx context.Context) {
	c.tokens.Clear(ctx)
	c.logger.Info("logged out")
}

// Profile returns the signed-in customer's profile
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var profile Profile
	if err := c.DoJSON(ctx, Request{Method: http.MethodGet, Path: profilePath, Auth: AuthRequired}, &profile); err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

// UpdateProfile sends only the editable fields that differ between current
// and desired. Nothing is sent when they match; current is returned as is.
func (c *Client) UpdateProfile(ctx context.Context, current, desired Profile) (*Profile, error) {
	changes := ProfileChanges(current, desired)
	if len(changes) == 0 {
		return &current, nil
	}

	var updated Profile
	err := c.DoJSON(ctx, Request{Method: http.MethodPut, Path: profilePath, JSON: changes, Auth: AuthRequired}, &updated)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return &updated, nil
}

// ProfileChanges returns the editable fields of desired that differ from current
func ProfileChanges(current, desired Profile) map[string]string {
	changes := make(map[string]string)
	fields := []struct {
		name     string
		old, new string
	}{
		{"username", current.Username, desired.Username},
		{"phone", current.Phone, desired.Phone},
		{"city", current.City, desired.City},
		{"state", current.State, desired.State},
		{"pincode", current.Pincode, desired.Pincode},
	}
	for _, f := range fields {
		if f.old != f.new {
			changes[f.name] = f.new
		}
	}
	return changes
}
