package authclient

import (
	"os"

	"github.com/codingconcepts/env"
	"github.com/joho/godotenv"

	goerrors "github.com/goliatone/go-errors"
)

// EnvConfig implements Config from environment variables. A .env file is
// loaded when present.
type EnvConfig struct {
	BaseURL            string `env:"AUTH_API_BASE_URL" required:"true"`
	Origin             string `env:"AUTH_ORIGIN" default:"http://localhost:3000"`
	StorageKey         string `env:"AUTH_STORAGE_KEY" default:"auth-storage"`
	HydrationTimeoutMS int    `env:"AUTH_HYDRATION_TIMEOUT_MS" default:"100"`
	RequestTimeoutMS   int    `env:"AUTH_REQUEST_TIMEOUT_MS" default:"10000"`
	CallbackPath       string `env:"AUTH_CALLBACK_PATH" default:"/callback"`
	LandingPath        string `env:"AUTH_LANDING_PATH" default:"/dashboard"`
	RootPath           string `env:"AUTH_ROOT_PATH" default:"/"`
}

var _ Config = (*EnvConfig)(nil)

// LoadEnvConfig reads the environment (and an optional .env file) into an
// EnvConfig.
func LoadEnvConfig() (*EnvConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "error loading .env file")
	}

	cfg := &EnvConfig{}
	if err := env.Set(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "error loading auth config")
	}
	return cfg, nil
}

func (c *EnvConfig) GetBaseURL() string       { return c.BaseURL }
func (c *EnvConfig) GetOrigin() string        { return c.Origin }
func (c *EnvConfig) GetStorageKey() string    { return c.StorageKey }
func (c *EnvConfig) GetHydrationTimeout() int { return c.HydrationTimeoutMS }
func (c *EnvConfig) GetRequestTimeout() int   { return c.RequestTimeoutMS }
func (c *EnvConfig) GetCallbackPath() string  { return c.CallbackPath }
func (c *EnvConfig) GetLandingPath() string   { return c.LandingPath }
func (c *EnvConfig) GetRootPath() string      { return c.RootPath }
