package authclient

import (
	"errors"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
)

// Config is injected into every controller. There is no built in
// endpoint, an empty APIBaseURL fails fast.
type Config struct {
	APIBaseURL     string        `env:"AUTH_API_URL"`
	Origin         string        `env:"AUTH_ORIGIN"`
	RequestTimeout time.Duration `env:"AUTH_REQUEST_TIMEOUT" envDefault:"10s"`
	LoginPath      string        `env:"AUTH_LOGIN_PATH" envDefault:"/login"`
	SiteRoot       string        `env:"AUTH_SITE_ROOT" envDefault:"/"`
	StorageDSN     string        `env:"AUTH_STORAGE_DSN" envDefault:"file:authclient.db?cache=shared"`
	Debug          bool          `env:"AUTH_DEBUG"`
	Environment    string        `env:"APP_ENV" envDefault:"development"`
	Signup         SignupConfig  `envPrefix:"SIGNUP_"`
}

// SignupConfig holds the signup page settings
type SignupConfig struct {
	AllowWithoutInvite bool          `env:"ALLOW_WITHOUT_INVITE"`
	MinPasswordLength  int           `env:"MIN_PASSWORD_LENGTH" envDefault:"8"`
	RedirectDelay      time.Duration `env:"REDIRECT_DELAY" envDefault:"2s"`
}

// Validate checks the signup settings, it runs as part of Config.Validate.
func (s SignupConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.MinPasswordLength,
			validation.Required.Error("SIGNUP_MIN_PASSWORD_LENGTH is required"),
			validation.Min(1),
		),
		validation.Field(&s.RedirectDelay, validation.Min(time.Duration(0))),
	)
}

// DefaultConfig returns a config with every default applied and the given
// API base URL.
func DefaultConfig(apiBaseURL string) Config {
	cfg := Config{APIBaseURL: apiBaseURL}
	return cfg.withDefaults()
}

// LoadConfig reads dotenv files (missing ones are skipped) and then the
// process environment.
func LoadConfig(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, goerrors.Wrap(err, CategoryConfiguration, "unable to load "+file).
				WithTextCode(TextCodeMissingConfig)
		}
	}
	return parseConfig(env.Options{})
}

// LoadConfigFrom parses the given variables instead of the process environment.
func LoadConfigFrom(environ map[string]string) (Config, error) {
	return parseConfig(env.Options{Environment: environ})
}

func parseConfig(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, goerrors.Wrap(err, CategoryConfiguration, "unable to parse configuration").
			WithTextCode(TextCodeMissingConfig)
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate returns a configuration failure when the API base URL is
// missing or not an absolute http(s) URL.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.APIBaseURL,
			validation.Required.Error("AUTH_API_URL is required"),
			is.RequestURL.Error("AUTH_API_URL must be an absolute URL"),
		),
		validation.Field(&c.RequestTimeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Signup),
	)
	if err != nil {
		rich := goerrors.FromOzzoValidation(err, "invalid client configuration")
		rich.Category = CategoryConfiguration
		return rich.WithTextCode(TextCodeMissingConfig)
	}

	u, perr := url.Parse(c.APIBaseURL)
	if perr != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return configurationError("AUTH_API_URL must use http or https: %q", c.APIBaseURL)
	}
	return nil
}

// BaseURL is the API URL without a trailing slash
func (c Config) BaseURL() string {
	return strings.TrimRight(c.APIBaseURL, "/")
}

// OriginOrDefault returns Origin, falling back to the API URL origin.
func (c Config) OriginOrDefault() string {
	if c.Origin != "" {
		return c.Origin
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Host == "" {
		return c.APIBaseURL
	}
	return u.Scheme + "://" + u.Host
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.LoginPath == "" {
		c.LoginPath = "/login"
	}
	if c.SiteRoot == "" {
		c.SiteRoot = "/"
	}
	if c.StorageDSN == "" {
		c.StorageDSN = "file:authclient.db?cache=shared"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Signup.MinPasswordLength == 0 {
		c.Signup.MinPasswordLength = 8
	}
	if c.Signup.RedirectDelay == 0 {
		c.Signup.RedirectDelay = 2 * time.Second
	}
	return c
}
