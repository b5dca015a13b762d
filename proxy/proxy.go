// Package proxy exposes thin server routes that front the backend auth
// API for browser clients: login URL retrieval, password login, OAuth code
// exchange and sign-out, plus a bearer-forwarding passthrough for protected
// resources.
package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"

	"github.com/goliatone/go-authclient"
)

// Config configures the proxy controller.
type Config struct {
	// BackendBaseURL is the upstream auth API.
	BackendBaseURL string

	// PathPrefix for the auth routes (default: "/api/auth").
	PathPrefix string

	// RootRedirect is where failed callbacks land (default: "/").
	RootRedirect string

	// RequestTimeout bounds upstream calls (default: 10s).
	RequestTimeout time.Duration

	// Logger is optional.
	Logger authclient.Logger
}

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// Controller forwards auth requests to the backend. It holds no session
// state of its own; the browser-side store remains the single owner of
// client auth state.
type Controller struct {
	cfg    Config
	http   *http.Client
	logger authclient.Logger
}

// New returns a proxy controller for the backend at cfg.BackendBaseURL.
func New(cfg Config) *Controller {
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = "/api/auth"
	}
	if cfg.RootRedirect == "" {
		cfg.RootRedirect = "/"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = authclient.DefaultLogger()
	}

	return &Controller{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.RequestTimeout},
		logger: logger,
	}
}

// RegisterRoutes registers the auth proxy routes.
func (c *Controller) RegisterRoutes(app RouteRegistrar, mw ...router.MiddlewareFunc) {
	prefix := strings.TrimRight(c.cfg.PathPrefix, "/")

	app.Get(prefix+"/login", c.LoginURL, mw...)
	app.Post(prefix+"/login", c.PasswordLogin, mw...)
	app.Get(prefix+"/callback", c.Callback, mw...)
	app.Post(prefix+"/signout", c.SignOut, mw...)
}

// NewServer mounts the proxy on a fresh fiber app behind go-router's fiber
// adapter.
func NewServer(cfg Config) (router.Server[*fiber.App], *Controller) {
	ctrl := New(cfg)

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName: "auth-proxy",
		}))
	})

	ctrl.RegisterRoutes(srv.Router())
	return srv, ctrl
}

// LoginURL forwards the external login URL request.
func (c *Controller) LoginURL(ctx router.Context) error {
	query := url.Values{}
	if redirectTo := ctx.Query("redirectTo", ""); redirectTo != "" {
		query.Set("redirectTo", redirectTo)
	}

	res, err := c.forward(ctx.Context(), http.MethodGet, "auth/login", query, nil, "")
	if err != nil {
		c.logger.Error("login url request failed: %v", err)
		return ctx.JSON(http.StatusBadGateway, map[string]string{
			"error": "failed to reach auth backend",
		})
	}
	return sendRaw(ctx, res)
}

// PasswordLogin forwards an email/password exchange.
func (c *Controller) PasswordLogin(ctx router.Context) error {
	res, err := c.forward(ctx.Context(), http.MethodPost, "auth/login", nil, ctx.Body(), "")
	if err != nil {
		c.logger.Error("password login request failed: %v", err)
		return ctx.JSON(http.StatusBadGateway, map[string]string{
			"error": "failed to reach auth backend",
		})
	}
	return sendRaw(ctx, res)
}

// Callback exchanges an OAuth authorization code for a login payload. A
// missing code or a failed exchange redirects back to the root with an
// error flag instead of surfacing a bare error page.
func (c *Controller) Callback(ctx router.Context) error {
	code := ctx.Query("code", "")
	if code == "" {
		return ctx.Redirect(c.cfg.RootRedirect+"?error=missing_code", http.StatusTemporaryRedirect)
	}

	query := url.Values{}
	query.Set("code", code)

	res, err := c.forward(ctx.Context(), http.MethodGet, "auth/callback", query, nil, "")
	if err != nil || res.status < 200 || res.status > 299 {
		if err != nil {
			c.logger.Error("callback exchange failed: %v", err)
		} else {
			c.logger.Error("callback exchange rejected upstream: status=%d", res.status)
		}
		return ctx.Redirect(c.cfg.RootRedirect+"?error=callback_failed", http.StatusTemporaryRedirect)
	}

	return sendRaw(ctx, res)
}

// SignOut forwards the remote invalidation. The browser clears local state
// regardless of what happens here.
func (c *Controller) SignOut(ctx router.Context) error {
	res, err := c.forward(ctx.Context(), http.MethodPost, "auth/signout", nil, nil, bearerFrom(ctx))
	if err != nil {
		c.logger.Warn("sign-out forward failed: %v", err)
		return ctx.JSON(http.StatusBadGateway, map[string]string{
			"error": "failed to reach auth backend",
		})
	}
	return sendRaw(ctx, res)
}

// Passthrough returns a handler that forwards the request to backendPath,
// preserving method, query, body and bearer token. Mount it behind
// JWKSGuard for protected resources.
func (c *Controller) Passthrough(backendPath string) router.HandlerFunc {
	return func(ctx router.Context) error {
		query := url.Values{}
		for key, val := range ctx.Queries() {
			query.Set(key, val)
		}

		var body []byte
		if ctx.Method() != http.MethodGet {
			body = ctx.Body()
		}

		res, err := c.forward(ctx.Context(), ctx.Method(), backendPath, query, body, bearerFrom(ctx))
		if err != nil {
			c.logger.Error("passthrough to %s failed: %v", backendPath, err)
			return ctx.JSON(http.StatusBadGateway, map[string]string{
				"error": "failed to reach backend",
			})
		}
		return sendRaw(ctx, res)
	}
}

// upstream is a forwarded backend response.
type upstream struct {
	status      int
	contentType string
	body        []byte
}

func (c *Controller) forward(ctx context.Context, method, path string, query url.Values, body []byte, bearer string) (*upstream, error) {
	target := fmt.Sprintf("%s/%s", strings.TrimRight(c.cfg.BackendBaseURL, "/"), path)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
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
		return nil, err
	}
	defer res.Body.Close()

	out, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	return &upstream{
		status:      res.StatusCode,
		contentType: res.Header.Get("Content-Type"),
		body:        out,
	}, nil
}

func bearerFrom(ctx router.Context) string {
	header := ctx.GetString("Authorization", "")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// sendRaw relays an upstream response as-is, keeping its Content-Type so
// non-JSON payloads are not mislabeled.
func sendRaw(ctx router.Context, res *upstream) error {
	contentType := res.contentType
	if contentType == "" {
		contentType = "application/json"
	}
	ctx.SetHeader("Content-Type", contentType)
	return ctx.Status(res.status).Send(res.body)
}
