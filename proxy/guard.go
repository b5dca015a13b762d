package proxy

import (
	"net/http"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// GuardContextKey is where validated claims are stored on the request
// context locals.
const GuardContextKey = "auth_claims"

// GuardConfig configures the JWKS bearer guard.
type GuardConfig struct {
	// JWKSURL is the key set endpoint, e.g. https://issuer/.well-known/jwks.json.
	JWKSURL string

	// Keyfunc overrides JWKS resolution with an explicit key function.
	// When set, JWKSURL is ignored. Useful with static keys in tests.
	Keyfunc jwt.Keyfunc

	// ErrorHandler runs on missing or invalid tokens. Defaults to a 401
	// JSON response.
	ErrorHandler func(ctx router.Context, err error) error
}

// JWKSGuard returns middleware that rejects requests lacking a bearer
// token verifiable against the configured signing keys. Validated claims
// are stored under GuardContextKey for downstream handlers.
func JWKSGuard(cfg GuardConfig) (router.MiddlewareFunc, error) {
	keyFn := cfg.Keyfunc
	if keyFn == nil {
		if cfg.JWKSURL == "" {
			return nil, goerrors.New("jwks guard requires JWKSURL or Keyfunc", goerrors.CategoryBadInput).
				WithTextCode("INVALID_GUARD_CONFIG")
		}
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  5 * time.Minute,
			RefreshTimeout:    10 * time.Second,
			RefreshUnknownKID: true,
		})
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to load JWKS").
				WithMetadata(map[string]any{"jwks_url": cfg.JWKSURL})
		}
		keyFn = jwks.Keyfunc
	}

	onError := cfg.ErrorHandler
	if onError == nil {
		onError = func(ctx router.Context, err error) error {
			return ctx.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid or missing token",
			})
		}
	}

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			raw := bearerFrom(ctx)
			if raw == "" {
				return onError(ctx, goerrors.New("missing or malformed authorization header", goerrors.CategoryAuth))
			}

			token, err := jwt.Parse(raw, keyFn)
			if err != nil {
				return onError(ctx, goerrors.Wrap(err, goerrors.CategoryAuth, "token validation failed"))
			}

			if claims, ok := token.Claims.(jwt.MapClaims); ok {
				ctx.Locals(GuardContextKey, map[string]any(claims))
			}

			return ctx.Next()
		}
	}, nil
}
