package sitereg_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/edencehealth/BRIDGE-Node/sdk/go/sitereg"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// newTokenServer returns a token endpoint that checks the
// client-credentials form and issues the given token.
func newTokenServer(t *testing.T, clientID, clientSecret, token string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		if r.PostForm.Get("client_id") != clientID || r.PostForm.Get("client_secret") != clientSecret {
			writeJSON(w, 401, map[string]string{"error": "invalid_client"})
			return
		}
		writeJSON(w, 200, map[string]any{
			"access_token": token,
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
}

func registrationJSON(id int64, siteName string) map[string]any {
	return map[string]any{
		"id":         id,
		"site_name":  siteName,
		"created_at": "2024-03-18T09:30:00Z",
		"created_by": "svc-registration",
	}
}

func newClient(t *testing.T, apiURL, tokenURL string, opts ...sitereg.ClientOption) *sitereg.Client {
	t.Helper()
	c, err := sitereg.NewClient(sitereg.Config{
		APIURL:           apiURL,
		OIDCTokenURL:     tokenURL,
		OIDCClientID:     "site-client",
		OIDCClientSecret: "site-secret",
	}, opts...)
	require.NoError(t, err)
	return c
}

// --- NewClient ---

func TestNewClient_RequiresConfig(t *testing.T) {
	cases := []sitereg.Config{
		{OIDCTokenURL: "t", OIDCClientID: "i", OIDCClientSecret: "s"},
		{APIURL: "a", OIDCClientID: "i", OIDCClientSecret: "s"},
		{APIURL: "a", OIDCTokenURL: "t", OIDCClientSecret: "s"},
		{APIURL: "a", OIDCTokenURL: "t", OIDCClientID: "i"},
	}
	for _, cfg := range cases {
		_, err := sitereg.NewClient(cfg)
		assert.Error(t, err)
	}
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	tokenSrv := newTokenServer(t, "site-client", "site-secret", "tok")
	defer tokenSrv.Close()

	var gotPath string
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		writeJSON(w, 201, registrationJSON(1, "alpha"))
	}))
	defer apiSrv.Close()

	c := newClient(t, apiSrv.URL+"/", tokenSrv.URL)
	_, err := c.RegisterSite(context.Background(), "alpha", "PUBKEY123")
	require.NoError(t, err)
	assert.Equal(t, "/register", gotPath)
}

// --- happy path ---

func TestRegisterSite_OK(t *testing.T) {
	tokenSrv := newTokenServer(t, "site-client", "site-secret", "tok-abc")
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))
		writeJSON(w, 201, map[string]any{
			"id":              42,
			"site_name":       "clinic-east",
			"created_at":      "2024-03-18T09:30:00Z",
			"created_by":      "svc-registration",
			"github_repo_url": "https://github.com/edencehealth/site-clinic-east",
		})
	}))
	defer apiSrv.Close()

	c := newClient(t, apiSrv.URL, tokenSrv.URL)
	resp, err := c.RegisterSite(context.Background(), "clinic-east", "ssh-ed25519 AAAA...")
	require.NoError(t, err)
	assert.Equal(t, int64(42), resp.ID)
	assert.Equal(t, "clinic-east", resp.SiteName)
	assert.Equal(t, time.Date(2024, 3, 18, 9, 30, 0, 0, time.UTC), resp.CreatedAt.UTC())
	assert.Equal(t, "svc-registration", resp.CreatedBy)
	assert.Equal(t, "https://github.com/edencehealth/site-clinic-east", resp.GithubRepoURL)
}

func TestRegisterSite_PayloadIsExactlyTwoFields(t *testing.T) {
	tokenSrv := newTokenServer(t, "site-client", "site-secret", "tok")
	defer tokenSrv.Close()

	var gotBody []byte
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		writeJSON(w, 201, registrationJSON(1, "alpha"))
	}))
	defer apiSrv.Close()

	c := newClient(t, apiSrv.URL, tokenSrv.URL,
		sitereg.WithMetadata(sitereg.CollectMetadata()))
	_, err := c.RegisterSite(context.Background(), "alpha", "PUBKEY123")
	require.NoError(t, err)

	// Exact bytes: two fields, no metadata, nothing extra.
	assert.Equal(t, `{"site_name":"alpha","public_key":"PUBKEY123"}`,
		strings.TrimSpace(string(gotBody)))
}

// --- token endpoint failures ---

func TestRegisterSite_TokenRejected_RegistrationNeverCalled(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 401, map[string]string{"error": "invalid_client"})
	}))
	defer tokenSrv.Close()

	var registrationCalls int
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		registrationCalls++
		writeJSON(w, 201, registrationJSON(1, "alpha"))
	}))
	defer apiSrv.Close()

	c := newClient(t, apiSrv.URL, tokenSrv.URL)
	_, err := c.RegisterSite(context.Background(), "alpha", "PUBKEY123")

	var authErr *sitereg.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 401, authErr.StatusCode)
	assert.Zero(t, registrationCalls, "registration endpoint must not be called after auth failure")
}

func TestRegisterSite_TokenResponseMissingAccessToken(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]string{"token_type": "Bearer"})
	}))
	defer tokenSrv.Close()

	c := newClient(t, "http://127.0.0.1:1", tokenSrv.URL)
	_, err := c.RegisterSite(context.Background(), "alpha", "PUBKEY123")

	var authErr *sitereg.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Reason, "access_token")
}

func TestRegisterSite_TokenResponseNotJSON(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		_, _ = w.Write([]byte("<html>proxy error</html>"))
	}))
	defer tokenSrv.Close()

	c := newClient(t, "http://127.0.0.1:1", tokenSrv.URL)
	_, err := c.RegisterSite(context.Background(), "alpha", "PUBKEY123")

	var authErr *sitereg.AuthError
	assert.ErrorAs(t, err, &authErr)
}

// --- registration endpoint failures ---

func TestRegisterSite_NonCreatedStatus(t *testing.T) {
	tokenSrv := newTokenServer(t, "site-client", "site-secret", "tok")
	defer tokenSrv.Close()

	cases := []struct {
		status int
		body   string
	}{
		{400, `{"error":{"code":"INVALID_BODY","message":"bad payload"}}`},
		{409, `{"error":{"code":"DUPLICATE_SITE","message":"site exists"}}`},
		{500, "internal server error"},
		{200, `{"id":1}`}, // 2xx but not 201 is still an API error
	}
	for _, tc := range cases {
		apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))

		c := newClient(t, apiSrv.URL, tokenSrv.URL)
		_, err := c.RegisterSite(context.Background(), "alpha", "PUBKEY123")

		var apiErr *sitereg.APIError
		require.ErrorAs(t, err, &apiErr, "status %d", tc.status)
		assert.Equal(t, tc.status, apiErr.StatusCode)
		assert.Equal(t, tc.body, apiErr.Body)
		apiSrv.Close()
	}
}

func TestRegisterSite_Unreachable_IsTransportError(t *testing.T) {
	tokenSrv := newTokenServer(t, "site-client", "site-secret", "tok")
	defer tokenSrv.Close()

	c := newClient(t, "http://127.0.0.1:1", tokenSrv.URL) // nothing listening
	_, err := c.RegisterSite(context.Background(), "alpha", "PUBKEY123")
	require.Error(t, err)

	var urlErr *url.Error
	assert.ErrorAs(t, err, &urlErr, "should surface the transport error unmodified")

	var apiErr *sitereg.APIError
	assert.False(t, errors.As(err, &apiErr), "transport failures are not API errors")
}

func TestRegisterSite_TokenEndpointUnreachable(t *testing.T) {
	c := newClient(t, "http://127.0.0.1:1", "http://127.0.0.1:1")
	_, err := c.RegisterSite(context.Background(), "alpha", "PUBKEY123")
	require.Error(t, err)

	var urlErr *url.Error
	assert.ErrorAs(t, err, &urlErr)
}

// --- malformed 201 bodies ---

func TestRegisterSite_MalformedBody(t *testing.T) {
	tokenSrv := newTokenServer(t, "site-client", "site-secret", "tok")
	defer tokenSrv.Close()

	cases := []string{
		"not json at all",
		`{"id":"forty-two"}`,                 // wrong type
		`{}`,                                 // missing everything
		`{"id":7,"site_name":"alpha"}`,       // missing created_at/created_by
		`{"site_name":"alpha","created_at":"2024-03-18T09:30:00Z","created_by":"x"}`, // missing id
	}
	for _, body := range cases {
		apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(201)
			_, _ = w.Write([]byte(body))
		}))

		c := newClient(t, apiSrv.URL, tokenSrv.URL)
		_, err := c.RegisterSite(context.Background(), "alpha", "PUBKEY123")

		var decErr *sitereg.DecodeError
		assert.ErrorAs(t, err, &decErr, "body %q", body)
		apiSrv.Close()
	}
}

// --- metadata ---

func TestCollectMetadata(t *testing.T) {
	m := sitereg.CollectMetadata()
	assert.NotEmpty(t, m.OS)
	_, err := uuid.Parse(m.InstanceID)
	assert.NoError(t, err)

	// Fresh identifier on every collection.
	assert.NotEqual(t, m.InstanceID, sitereg.CollectMetadata().InstanceID)
}
