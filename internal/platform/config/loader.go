package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultPath = "config.yaml"

// Loader reads configuration from a yaml file with .env overrides.
type Loader struct {
	useDotEnv bool
	path      string
}

// NewLoader creates a loader reading from CONFIG_PATH or ./config.yaml.
func NewLoader() *Loader {
	return &Loader{useDotEnv: true}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the configuration file location (useful for tests).
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load merges defaults, the yaml file and environment overrides.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		_ = godotenv.Load()
	}

	path := l.path
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = defaultPath
	}

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		path = ""
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &Result{Config: cfg, Path: path}, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("WEB_URL"); v != "" {
		cfg.Web.URL = v
	}
	if v := os.Getenv("IAP_API_KEY_IOS"); v != "" {
		cfg.IAP.APIKeyIOS = v
	}
	if v := os.Getenv("IAP_API_KEY_ANDROID"); v != "" {
		cfg.IAP.APIKeyAndroid = v
	}
	if v := os.Getenv("IAP_BACKEND_BASE_URL"); v != "" {
		cfg.IAP.Backend.BaseURL = v
	}
	if v := os.Getenv("IAP_SDK_BASE_URL"); v != "" {
		cfg.IAP.SDKBaseURL = v
	}
	if v := os.Getenv("PUSH_TOKEN"); v != "" {
		cfg.Push.Token = v
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	if cfg.Web.URL == "" && cfg.Web.StaticDir == "" {
		return fmt.Errorf("web.url or web.static_dir must be set")
	}
	if cfg.Push.MaxRetries < 0 {
		return fmt.Errorf("push.max_retries must not be negative")
	}
	return nil
}
