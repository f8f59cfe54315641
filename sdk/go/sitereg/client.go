// Package sitereg provides the Go client for the BRIDGE site Registration API.
//
// Registration is a two-step exchange: the client first trades OIDC
// client credentials for a bearer token at the token endpoint, then
// POSTs the site name and public key to the Registration API. A fresh
// token is fetched for every registration call; nothing is cached and
// nothing is retried.
package sitereg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config holds the fixed client configuration. All four fields are
// required; they cannot be changed after construction.
type Config struct {
	// APIURL is the Registration API base URL. A trailing slash is
	// stripped.
	APIURL string

	// OIDCTokenURL is the OAuth2 token endpoint used for the
	// client-credentials exchange.
	OIDCTokenURL string

	OIDCClientID     string
	OIDCClientSecret string
}

// Client is a Registration API client.
type Client struct {
	cfg        Config
	httpClient *http.Client
	metadata   *Metadata
	log        *zap.Logger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithTimeout bounds both the token fetch and the registration call.
// The default is 10 seconds.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetadata attaches collected host metadata to the client. The
// metadata is logged but not yet part of the registration payload.
func WithMetadata(m Metadata) ClientOption {
	return func(c *Client) { c.metadata = &m }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient creates a new Registration API client from cfg.
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	switch {
	case cfg.APIURL == "":
		return nil, fmt.Errorf("sitereg: APIURL is required")
	case cfg.OIDCTokenURL == "":
		return nil, fmt.Errorf("sitereg: OIDCTokenURL is required")
	case cfg.OIDCClientID == "":
		return nil, fmt.Errorf("sitereg: OIDCClientID is required")
	case cfg.OIDCClientSecret == "":
		return nil, fmt.Errorf("sitereg: OIDCClientSecret is required")
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// RegistrationRequest is the registration payload. It carries exactly
// the site name and public key; nothing else is transmitted.
type RegistrationRequest struct {
	SiteName  string `json:"site_name"`
	PublicKey string `json:"public_key"`
}

// RegistrationResponse is the identity assigned by the Registration API.
type RegistrationResponse struct {
	ID        int64     `json:"id"`
	SiteName  string    `json:"site_name"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by"`

	// GithubRepoURL is the site's provisioned configuration repository,
	// when the API assigns one.
	GithubRepoURL string `json:"github_repo_url,omitempty"`
}

func (r *RegistrationResponse) validate() error {
	if r.ID == 0 {
		return fmt.Errorf("missing required field: id")
	}
	if r.SiteName == "" {
		return fmt.Errorf("missing required field: site_name")
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("missing required field: created_at")
	}
	if r.CreatedBy == "" {
		return fmt.Errorf("missing required field: created_by")
	}
	return nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// fetchAccessToken performs the client-credentials exchange and returns
// the bearer token. Called once per registration; tokens are never
// reused across calls.
func (c *Client) fetchAccessToken(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.OIDCClientID},
		"client_secret": {c.cfg.OIDCClientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OIDCTokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("token request failed",
			zap.String("token_url", c.cfg.OIDCTokenURL),
			zap.Error(err))
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Error("token endpoint rejected credentials",
			zap.Int("status", resp.StatusCode),
			zap.String("client_id", c.cfg.OIDCClientID))
		return "", &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", &AuthError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Reason:     "malformed token response",
		}
	}
	if tok.AccessToken == "" {
		return "", &AuthError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Reason:     "token response has no access_token",
		}
	}
	return tok.AccessToken, nil
}

// RegisterSite registers a site and returns the assigned identity.
//
// Success is strictly HTTP 201. Any other status, other 2xx codes
// included, is returned as an *APIError carrying the status and raw
// body. Transport failures are returned unmodified. Calling twice
// creates two registration attempts; the client makes no idempotency
// guarantee.
func (c *Client) RegisterSite(ctx context.Context, siteName, publicKey string) (*RegistrationResponse, error) {
	token, err := c.fetchAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	if c.metadata != nil {
		c.log.Debug("host metadata collected",
			zap.String("hostname", c.metadata.Hostname),
			zap.String("os", c.metadata.OS),
			zap.String("instance_id", c.metadata.InstanceID))
	}

	payload, err := json.Marshal(RegistrationRequest{
		SiteName:  siteName,
		PublicKey: publicKey,
	})
	if err != nil {
		return nil, err
	}

	endpoint := c.cfg.APIURL + "/register"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("registration request failed",
			zap.String("url", endpoint),
			zap.String("site_name", siteName),
			zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusCreated {
		c.log.Error("registration API error",
			zap.String("url", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out RegistrationResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if err := out.validate(); err != nil {
		return nil, &DecodeError{Err: err}
	}

	c.log.Info("site registered",
		zap.Int64("id", out.ID),
		zap.String("site_name", out.SiteName))
	return &out, nil
}
