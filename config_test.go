package authclient_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authclient "github.com/goliatone/go-authclient"
)

func TestLoadEnvConfigDefaults(t *testing.T) {
	t.Setenv("AUTH_API_BASE_URL", "http://api.test")

	cfg, err := authclient.LoadEnvConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://api.test", cfg.GetBaseURL())
	assert.Equal(t, "http://localhost:3000", cfg.GetOrigin())
	assert.Equal(t, "auth-storage", cfg.GetStorageKey())
	assert.Equal(t, 100, cfg.GetHydrationTimeout())
	assert.Equal(t, 10000, cfg.GetRequestTimeout())
	assert.Equal(t, "/callback", cfg.GetCallbackPath())
	assert.Equal(t, "/dashboard", cfg.GetLandingPath())
	assert.Equal(t, "/", cfg.GetRootPath())
}

func TestLoadEnvConfigOverrides(t *testing.T) {
	t.Setenv("AUTH_API_BASE_URL", "https://api.example.com")
	t.Setenv("AUTH_ORIGIN", "https://app.example.com")
	t.Setenv("AUTH_HYDRATION_TIMEOUT_MS", "250")
	t.Setenv("AUTH_LANDING_PATH", "/home")

	cfg, err := authclient.LoadEnvConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.GetBaseURL())
	assert.Equal(t, "https://app.example.com", cfg.GetOrigin())
	assert.Equal(t, 250, cfg.GetHydrationTimeout())
	assert.Equal(t, "/home", cfg.GetLandingPath())
}

func TestLoadEnvConfigRequiresBaseURL(t *testing.T) {
	// register the restore, then remove the variable entirely
	t.Setenv("AUTH_API_BASE_URL", "")
	os.Unsetenv("AUTH_API_BASE_URL")

	_, err := authclient.LoadEnvConfig()
	require.Error(t, err)
}
