package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"example.com/lifeplanner/internal/session"
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// AuthRenewer exchanges renewal tokens at POST /auth/refresh. It deliberately
// does not go through Client.Do: the renewal call carries no bearer header and
// must never recurse into the renewal protocol itself.
type AuthRenewer struct {
	baseURL    string
	httpClient *http.Client
}

// NewAuthRenewer constructs a renewer for the given backend.
func NewAuthRenewer(baseURL string, httpClient *http.Client) *AuthRenewer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &AuthRenewer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Renew implements session.Renewer.
func (r *AuthRenewer) Renew(ctx context.Context, refreshToken string) (session.TokenPair, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return session.TokenPair{}, fmt.Errorf("encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/auth/refresh", bytes.NewReader(body))
	if err != nil {
		return session.TokenPair{}, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return session.TokenPair{}, fmt.Errorf("refresh call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return session.TokenPair{}, decodeError(resp)
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return session.TokenPair{}, fmt.Errorf("decode refresh response: %w", err)
	}
	if payload.AccessToken == "" || payload.RefreshToken == "" {
		return session.TokenPair{}, fmt.Errorf("refresh response missing tokens")
	}
	return session.TokenPair{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
	}, nil
}

// Login authenticates with email and password and installs the issued pair in
// the session manager.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var resp tokenResponse
	err := c.Do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp, WithoutAuth())
	if err != nil {
		return err
	}
	return c.manager.SetTokens(session.TokenPair{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	})
}

// Logout tells the backend to drop the session, then clears local credentials
// regardless of the call's outcome.
func (c *Client) Logout(ctx context.Context) {
	if err := c.Do(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		c.logger.Printf("logout call failed: %v", err)
	}
	c.manager.Clear()
}
