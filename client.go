package authclient

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

	goerrors "github.com/goliatone/go-errors"
)

const (
	endpointLogin    = "auth/login"
	endpointSession  = "auth/session"
	endpointMe       = "auth/me"
	endpointSignOut  = "auth/signout"
	endpointCallback = "auth/callback"
)

// APIClient talks to the backend auth endpoints. Authenticated calls attach
// Authorization: Bearer <access_token>; a 401 from any endpoint surfaces as
// ErrUnauthorized so the lifecycle can clear local state.
type APIClient struct {
	baseURL string
	http    *http.Client
	logger  Logger
}

var _ API = (*APIClient)(nil)

// APIClientOption customizes APIClient construction.
type APIClientOption func(*APIClient)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(client *http.Client) APIClientOption {
	return func(c *APIClient) {
		if client != nil {
			c.http = client
		}
	}
}

// WithAPILogger overrides the default logger.
func WithAPILogger(logger Logger) APIClientOption {
	return func(c *APIClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewAPIClient returns a client for the backend at cfg.GetBaseURL().
func NewAPIClient(cfg Config, opts ...APIClientOption) *APIClient {
	timeout := 10 * time.Second
	if cfg.GetRequestTimeout() > 0 {
		timeout = time.Duration(cfg.GetRequestTimeout()) * time.Millisecond
	}

	c := &APIClient{
		baseURL: strings.TrimRight(cfg.GetBaseURL(), "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// LoginURL asks the backend for the external login URL, parameterized by
// the callback address the provider should redirect back to.
func (c *APIClient) LoginURL(ctx context.Context, redirectTo string) (string, error) {
	query := url.Values{}
	query.Set("redirectTo", redirectTo)

	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodGet, endpointLogin, query, nil, "", &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", ErrLoginInitiation.WithMetadata(map[string]any{
			"reason": "no redirect URL in response",
		})
	}
	return out.URL, nil
}

// Session revalidates the held session against the backend.
func (c *APIClient) Session(ctx context.Context, accessToken string) (*SessionResponse, error) {
	out := &SessionResponse{}
	if err := c.do(ctx, http.MethodGet, endpointSession, nil, nil, accessToken, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Me fetches the current profile and admin status.
func (c *APIClient) Me(ctx context.Context, accessToken string) (*MeResponse, error) {
	out := &MeResponse{}
	if err := c.do(ctx, http.MethodGet, endpointMe, nil, nil, accessToken, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SignOut invalidates the session remotely. Callers clear local state
// regardless of the outcome.
func (c *APIClient) SignOut(ctx context.Context, accessToken string) error {
	out := &SignOutResponse{}
	return c.do(ctx, http.MethodPost, endpointSignOut, nil, nil, accessToken, out)
}

// ExchangeCode trades an authorization code for a full login payload.
func (c *APIClient) ExchangeCode(ctx context.Context, code string) (*LoginResponse, error) {
	query := url.Values{}
	query.Set("code", code)

	out := &LoginResponse{}
	if err := c.do(ctx, http.MethodGet, endpointCallback, query, nil, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

// PasswordLogin exchanges email/password for a login payload.
func (c *APIClient) PasswordLogin(ctx context.Context, email, password string) (*LoginResponse, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}

	out := &LoginResponse{}
	if err := c.do(ctx, http.MethodPost, endpointLogin, nil, body, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *APIClient) do(ctx context.Context, method, endpoint string, query url.Values, body any, bearer string, out any) error {
	target := fmt.Sprintf("%s/%s", c.baseURL, endpoint)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "backend request failed").
			WithTextCode(textCodeBackendUnavailable).
			WithMetadata(map[string]any{"endpoint": endpoint})
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized.WithMetadata(map[string]any{"endpoint": endpoint})
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return c.errorFromResponse(endpoint, res)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to decode backend response").
			WithMetadata(map[string]any{"endpoint": endpoint})
	}
	return nil
}

func (c *APIClient) errorFromResponse(endpoint string, res *http.Response) error {
	detail := struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}{}

	if data, err := io.ReadAll(io.LimitReader(res.Body, 4096)); err == nil {
		// Best effort; a non-JSON error body still maps to a status error.
		_ = json.Unmarshal(data, &detail)
	}

	message := detail.Error
	if message == "" {
		message = detail.Message
	}
	if message == "" {
		message = res.Status
	}

	return goerrors.New(message, goerrors.CategoryOperation).
		WithTextCode(textCodeBackendUnavailable).
		WithMetadata(map[string]any{
			"endpoint": endpoint,
			"status":   res.StatusCode,
		})
}
