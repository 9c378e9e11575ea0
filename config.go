package authclient

import (
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

const (
	StoreDriverMemory = "memory"
	StoreDriverBolt   = "bolt"
	StoreDriverSQLite = "sqlite"
)

// Config holds client options, loaded from the environment.
type Config struct {
	IdentityURL  string        `env:"AUTHCLIENT_IDENTITY_URL" envDefault:"http://localhost:8572"`
	PolicyURL    string        `env:"AUTHCLIENT_POLICY_URL"`
	StoreDriver  string        `env:"AUTHCLIENT_STORE" envDefault:"bolt"`
	StorePath    string        `env:"AUTHCLIENT_STORE_PATH" envDefault:"authclient.db"`
	Namespace    string        `env:"AUTHCLIENT_NAMESPACE"`
	HTTPTimeout  time.Duration `env:"AUTHCLIENT_HTTP_TIMEOUT" envDefault:"10s"`
	RefreshSkew  time.Duration `env:"AUTHCLIENT_REFRESH_SKEW" envDefault:"30s"`
	LogoutBudget time.Duration `env:"AUTHCLIENT_LOGOUT_TIMEOUT" envDefault:"5s"`
}

// LoadConfig parses the environment into a Config and validates it.
func LoadConfig() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse environment config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate will run validation rules
func (c Config) Validate() error {
	pathRules := []validation.Rule{}
	if c.StoreDriver != StoreDriverMemory {
		pathRules = append(pathRules, validation.Required)
	}

	if verr := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&c,
			validation.Field(&c.IdentityURL, validation.Required, is.URL),
			validation.Field(&c.PolicyURL, is.URL),
			validation.Field(&c.StoreDriver, validation.Required, validation.In(
				StoreDriverMemory,
				StoreDriverBolt,
				StoreDriverSQLite,
			)),
			validation.Field(&c.StorePath, pathRules...),
			validation.Field(&c.HTTPTimeout, validation.Min(time.Duration(0))),
			validation.Field(&c.RefreshSkew, validation.Min(time.Duration(0))),
		)
	}, "invalid client configuration"); verr != nil {
		return verr
	}
	return nil
}

// GetPolicyURL falls back to the identity URL when no policy URL is set.
func (c Config) GetPolicyURL() string {
	if c.PolicyURL != "" {
		return c.PolicyURL
	}
	return c.IdentityURL
}

// ControllerOptions translates the config into controller options.
func (c Config) ControllerOptions() []ControllerOption {
	opts := []ControllerOption{
		WithRefreshSkew(c.RefreshSkew),
		WithLogoutTimeout(c.LogoutBudget),
	}
	if c.Namespace != "" {
		opts = append(opts, WithStoreKeys(NamespacedStoreKeys(c.Namespace)))
	}
	return opts
}
