package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AuthMode selects how the run obtains its bearer credential.
type AuthMode string

const (
	// AuthModePassword exchanges a username and password for a token.
	AuthModePassword AuthMode = "password"
	// AuthModeToken uses a pre-acquired bearer token as-is.
	AuthModeToken AuthMode = "token"
)

// ParseAuthMode validates an auth mode selector.
func ParseAuthMode(s string) (AuthMode, error) {
	switch AuthMode(s) {
	case AuthModePassword, AuthModeToken:
		return AuthMode(s), nil
	default:
		return "", fmt.Errorf("unknown auth mode %q: use %q or %q", s, AuthModePassword, AuthModeToken)
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ExchangeToken performs the password-grant token exchange against the vault
// at baseURL and returns the bearer token. The token endpoint sits outside
// the versioned API root.
func ExchangeToken(ctx context.Context, baseURL, username, password string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)

	endpoint := strings.TrimSuffix(baseURL, "/") + "/oauth2/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	hc := &http.Client{Timeout: 30 * time.Second}
	resp, err := hc.Do(req)
	if err != nil {
		return "", &AuthError{Body: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &AuthError{StatusCode: resp.StatusCode, Body: "read response: " + err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &AuthError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return "", &AuthError{StatusCode: resp.StatusCode, Body: "parse response: " + err.Error()}
	}
	if tr.AccessToken == "" {
		return "", &AuthError{StatusCode: resp.StatusCode, Body: "token response has no access_token"}
	}
	return tr.AccessToken, nil
}
