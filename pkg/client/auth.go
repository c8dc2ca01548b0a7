package client

import (
	"context"
	"net/http"

	"tourdesk/pkg/model"
)

// AuthClient talks to the auth endpoints. It never attaches tokens on its
// own; Profile takes the access token explicitly.
type AuthClient struct {
	httpClient *HttpClient
}

func NewAuthClient(httpClient *HttpClient) *AuthClient {
	return &AuthClient{httpClient: httpClient}
}

func (c *AuthClient) Login(ctx context.Context, username, password string) (*model.LoginResponse, error) {
	var resp model.LoginResponse
	creds := model.Credentials{Username: username, Password: password}
	if err := c.httpClient.Do(ctx, http.MethodPost, "/api/auth/login/", creds, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *AuthClient) Refresh(ctx context.Context, refresh string) (string, error) {
	var resp model.RefreshResponse
	if err := c.httpClient.Do(ctx, http.MethodPost, "/api/auth/refresh/", model.RefreshRequest{Refresh: refresh}, &resp); err != nil {
		return "", err
	}
	return resp.Access, nil
}

func (c *AuthClient) Logout(ctx context.Context, refresh string) error {
	return c.httpClient.Do(ctx, http.MethodPost, "/api/auth/logout/", model.RefreshRequest{Refresh: refresh}, nil)
}

func (c *AuthClient) Profile(ctx context.Context, access string) (*model.User, error) {
	var user model.User
	err := c.httpClient.WithAuthorizer(staticToken(access)).Do(ctx, http.MethodGet, "/api/auth/profile/", nil, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// staticToken authorizes with a fixed token and never refreshes.
type staticToken string

func (t staticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

func (t staticToken) ForceRefresh(context.Context, string) (string, error) {
	return string(t), nil
}
