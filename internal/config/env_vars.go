package config

import (
	"strings"
	"time"
)

const (
	DefaultBackendURL = "https://vet-crm-fc39.onrender.com"
	apiPath           = "/api"
)

// EnvVars holds the settings read from the environment.
type EnvVars struct {
	AppName        string        `env:"APP_NAME" env-default:"VetFlow"`
	Env            string        `env:"ENV" env-default:"DEV"`
	LogLevel       string        `env:"LOG_LEVEL" env-default:"info"`
	DataFolder     string        `env:"FOLDER" env-default:"./data"`
	BackendURL     string        `env:"VETFLOW_BACKEND_URL"`
	OriginURL      string        `env:"ORIGIN_URL" env-default:"http://localhost:3000"`
	StoreSecret    string        `env:"VETFLOW_STORE_SECRET"`
	RequestTimeout time.Duration `env:"HTTP_TIMEOUT" env-default:"15s"`
}

var _ EnvConfig = EnvVars{}
var _ HTTPConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return e.Env
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

func (e EnvVars) GetDataFolder() string {
	return e.DataFolder
}

// GetBackendURL returns the backend root without a trailing slash.
// Deployment platforms sometimes export unset variables as the literal
// strings "undefined" or "null"; those fall back to the default URL.
func (e EnvVars) GetBackendURL() string {
	raw := strings.TrimSpace(e.BackendURL)
	switch strings.ToLower(raw) {
	case "", "undefined", "null":
		raw = DefaultBackendURL
	}
	return strings.TrimRight(raw, "/")
}

// GetAPIBaseURL returns the backend URL with the /api prefix every endpoint lives under
func (e EnvVars) GetAPIBaseURL() string {
	return e.GetBackendURL() + apiPath
}

func (e EnvVars) GetOriginURL() string {
	return strings.TrimRight(e.OriginURL, "/")
}

func (e EnvVars) GetStoreSecret() string {
	return e.StoreSecret
}

func (e EnvVars) GetRequestTimeout() time.Duration {
	return e.RequestTimeout
}
