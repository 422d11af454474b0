package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
)

type Config interface {
	EnvConfig
	HTTPConfig
	PaymentConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetDataFolder() string
	GetBackendURL() string
	GetAPIBaseURL() string
	GetOriginURL() string
	GetStoreSecret() string
}

type HTTPConfig interface {
	GetRequestTimeout() time.Duration
}

type mainConfig struct {
	EnvVars
	Payment
}

// New reads the configuration from the process environment. Call godotenv
// before New if values should also come from a .env file.
func New() (Config, error) {
	var vars EnvVars
	if err := cleanenv.ReadEnv(&vars); err != nil {
		return nil, errors.Wrap(err, "[config.New] failed to read environment")
	}
	var payment Payment
	if err := cleanenv.ReadEnv(&payment); err != nil {
		return nil, errors.Wrap(err, "[config.New] failed to read payment settings")
	}
	if err := payment.validate(); err != nil {
		return nil, errors.Wrap(err, "[config.New]")
	}
	return mainConfig{EnvVars: vars, Payment: payment}, nil
}
