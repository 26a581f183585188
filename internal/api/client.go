// Package api implements the Crop Sathi REST client. It performs
// authenticated and unauthenticated requests against the backend and
// normalizes error responses into a single error shape. Retry and timeout
// policy belong to the injected http.Client, not here.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// TokenProvider supplies the current bearer token. An empty string means
// no session is active.
type TokenProvider interface {
	Token() string
}

// TokenFunc adapts a plain function to TokenProvider.
type TokenFunc func() string

// Token implements TokenProvider.
func (f TokenFunc) Token() string { return f() }

// Client talks to the Crop Sathi backend.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenProvider
}

// Opts holds parameters for creating a Client.
type Opts struct {
	BaseURL string
	// HTTPClient overrides the transport. Defaults to a 30s-timeout client.
	HTTPClient *http.Client
	// Tokens supplies bearer tokens for authenticated requests. Optional;
	// without it every authenticated call fails with ErrAuthRequired.
	Tokens TokenProvider
}

// New creates a Client.
func New(opts Opts) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("api: base URL is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("api: parse base URL: %w", err)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    httpClient,
		tokens:  opts.Tokens,
	}, nil
}

// token returns the current bearer token, or "" when none is available.
func (c *Client) token() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

// Do performs one request. body (when non-nil) is JSON-encoded; out (when
// non-nil) receives the decoded success body. requiresAuth with no token
// fails with ErrAuthRequired before any I/O. Non-2xx responses become
// *RequestError; transport failures are wrapped and remain inspectable
// via errors.As.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, requiresAuth bool) error {
	var tok string
	if requiresAuth {
		tok = c.token()
		if tok == "" {
			return ErrAuthRequired
		}
	}

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("api: build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read %s %s response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RequestError{
			Status:  resp.StatusCode,
			Message: errorDetail(data, resp.StatusCode),
		}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("api: decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// PasswordToken exchanges phone number and password for a bearer token via
// the backend's form-encoded token endpoint (OAuth2 password grant).
func (c *Client) PasswordToken(ctx context.Context, phone, password string) (string, error) {
	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.baseURL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	tok, err := conf.PasswordCredentialsToken(ctx, phone, password)
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			return "", &RequestError{
				Status:  rerr.Response.StatusCode,
				Message: errorDetail(rerr.Body, rerr.Response.StatusCode),
			}
		}
		return "", fmt.Errorf("api: token exchange: %w", err)
	}
	return tok.AccessToken, nil
}

// CurrentUser fetches the profile of the token's owner.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.Do(ctx, http.MethodGet, "/users/me/", nil, &u, true); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser registers a new user.
func (c *Client) CreateUser(ctx context.Context, name, phone, password string) (*User, error) {
	payload := map[string]string{
		"name":         name,
		"phone_number": phone,
		"password":     password,
	}
	var u User
	if err := c.Do(ctx, http.MethodPost, "/users/", payload, &u, false); err != nil {
		return nil, err
	}
	return &u, nil
}

// RecoverPassword requests a password recovery message for the phone
// number. The returned message is a success message even when the phone is
// unknown; the backend deliberately does not reveal which numbers exist.
func (c *Client) RecoverPassword(ctx context.Context, phone string) (string, error) {
	var msg messageResponse
	if err := c.Do(ctx, http.MethodPost, "/password-recovery/"+url.PathEscape(phone), nil, &msg, false); err != nil {
		return "", err
	}
	return msg.Msg, nil
}

// ResetPassword completes a password reset using a recovery token.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	payload := map[string]string{
		"token":        token,
		"new_password": newPassword,
	}
	var msg messageResponse
	if err := c.Do(ctx, http.MethodPost, "/reset-password/", payload, &msg, false); err != nil {
		return "", err
	}
	return msg.Msg, nil
}

// CreateAdvisory submits the advisory request and returns the computed
// advisory bundle.
func (c *Client) CreateAdvisory(ctx context.Context, input FarmerInput) (*Advisory, error) {
	var resp advisoryResponse
	if err := c.Do(ctx, http.MethodPost, "/advisory/", input, &resp, true); err != nil {
		return nil, err
	}
	return &resp.Advisory, nil
}

// History fetches the user's past advisories in server order.
func (c *Client) History(ctx context.Context) ([]HistoryItem, error) {
	var items []HistoryItem
	if err := c.Do(ctx, http.MethodGet, "/advisories/history", nil, &items, true); err != nil {
		return nil, err
	}
	return items, nil
}

// MarketPrice fetches the market price series for a crop.
func (c *Client) MarketPrice(ctx context.Context, crop string) (*MarketPrice, error) {
	var mp MarketPrice
	if err := c.Do(ctx, http.MethodGet, "/market-price/"+url.PathEscape(crop), nil, &mp, false); err != nil {
		return nil, err
	}
	return &mp, nil
}

// AppConfig fetches the crop/soil taxonomy for the advisory form.
func (c *Client) AppConfig(ctx context.Context) (*AppConfig, error) {
	var cfg AppConfig
	if err := c.Do(ctx, http.MethodGet, "/config", nil, &cfg, false); err != nil {
		return nil, err
	}
	return &cfg, nil
}
