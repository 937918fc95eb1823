package authclient_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authclient "github.com/goliatone/go-auth-client"
)

func TestLoadConfigFrom_Defaults(t *testing.T) {
	cfg, err := authclient.LoadConfigFrom(map[string]string{
		"AUTH_API_URL": "https://x8ki-letl-twmt.n7.xano.io/api:auth/",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://x8ki-letl-twmt.n7.xano.io/api:auth", cfg.BaseURL())
	assert.Equal(t, "https://x8ki-letl-twmt.n7.xano.io", cfg.OriginOrDefault())
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "/login", cfg.LoginPath)
	assert.Equal(t, "/", cfg.SiteRoot)
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.Signup.AllowWithoutInvite)
	assert.Equal(t, 8, cfg.Signup.MinPasswordLength)
	assert.Equal(t, 2*time.Second, cfg.Signup.RedirectDelay)
}

func TestLoadConfigFrom_Overrides(t *testing.T) {
	cfg, err := authclient.LoadConfigFrom(map[string]string{
		"AUTH_API_URL":                "http://localhost:8080/api",
		"AUTH_ORIGIN":                 "https://site.example",
		"AUTH_REQUEST_TIMEOUT":        "3s",
		"AUTH_LOGIN_PATH":             "/sign-in",
		"APP_ENV":                     "production",
		"SIGNUP_ALLOW_WITHOUT_INVITE": "true",
		"SIGNUP_MIN_PASSWORD_LENGTH":  "12",
		"SIGNUP_REDIRECT_DELAY":       "500ms",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://site.example", cfg.OriginOrDefault())
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "/sign-in", cfg.LoginPath)
	assert.Equal(t, "production", cfg.Environment)
	assert.True(t, cfg.Signup.AllowWithoutInvite)
	assert.Equal(t, 12, cfg.Signup.MinPasswordLength)
	assert.Equal(t, 500*time.Millisecond, cfg.Signup.RedirectDelay)
}

func TestLoadConfigFrom_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"missing url":  {},
		"relative url": {"AUTH_API_URL": "/api:auth"},
		"bad scheme":   {"AUTH_API_URL": "ftp://files.example/api"},
		"bad duration": {"AUTH_API_URL": "https://api.example", "AUTH_REQUEST_TIMEOUT": "soon"},
		"password len": {"AUTH_API_URL": "https://api.example", "SIGNUP_MIN_PASSWORD_LENGTH": "-1"},
		"redirect":     {"AUTH_API_URL": "https://api.example", "SIGNUP_REDIRECT_DELAY": "-2s"},
	}

	for name, environ := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := authclient.LoadConfigFrom(environ)
			require.Error(t, err)

			var rich *goerrors.Error
			require.ErrorAs(t, err, &rich)
			assert.Equal(t, authclient.CategoryConfiguration, rich.Category)
			assert.Equal(t, authclient.TextCodeMissingConfig, rich.TextCode)
		})
	}
}

func TestLoadConfig_ReadsDotenvAndToleratesMissingFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("AUTH_API_URL=https://from-dotenv.example/api\n"), 0o600))

	// godotenv never overrides variables that are already set
	t.Setenv("AUTH_API_URL", "")
	require.NoError(t, os.Unsetenv("AUTH_API_URL"))

	cfg, err := authclient.LoadConfig(filepath.Join(dir, "missing.env"), file)
	require.NoError(t, err)
	assert.Equal(t, "https://from-dotenv.example/api", cfg.BaseURL())
}

func TestDefaultConfig(t *testing.T) {
	cfg := authclient.DefaultConfig("https://api.example/")
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "https://api.example", cfg.BaseURL())
	assert.Equal(t, "/login", cfg.LoginPath)
}

func TestConfig_ValidateChecksSignupSettings(t *testing.T) {
	cfg := authclient.DefaultConfig("https://api.example.com")
	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.Signup.Validate())

	cfg.Signup.MinPasswordLength = -3
	err := cfg.Validate()
	require.Error(t, err)
	assert.Error(t, cfg.Signup.Validate())

	var rich *goerrors.Error
	require.ErrorAs(t, err, &rich)
	assert.Equal(t, authclient.CategoryConfiguration, rich.Category)
	assert.Equal(t, authclient.TextCodeMissingConfig, rich.TextCode)

	cfg.Signup.MinPasswordLength = 0
	assert.Error(t, cfg.Validate(), "zero is only accepted once defaults apply")
}
