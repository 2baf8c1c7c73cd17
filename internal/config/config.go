package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	toml "github.com/pelletier/go-toml/v2"
)

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Config is the resolved minicart configuration.
type Config struct {
	StoreURL       string        `validate:"required,url"`
	RequestTimeout time.Duration `validate:"gt=0"`
	PollInterval   time.Duration `validate:"gte=0"`
	CoalesceWindow time.Duration `validate:"min=100ms"`

	CacheBackend string `validate:"oneof=file redis"`
	CacheDir     string `validate:"required_if=CacheBackend file"`
	RedisURL     string `validate:"required_if=CacheBackend redis"`
	RedisChannel string
	SignalAddr   string `validate:"omitempty,hostname_port"`

	LogPath   string
	LogLevel  string `validate:"oneof=trace debug info warn error"`
	LogFormat string `validate:"oneof=json console"`
	Theme     string

	TracingEndpoint    string  `validate:"omitempty,url"`
	TracingSampleRatio float64 `validate:"gte=0,lte=1"`
}

const (
	envPrefix = "MINICART_"

	defaultConfigPath     = "~/.config/minicart/config.toml"
	defaultStoreURL       = "http://localhost:8080"
	defaultRequestTimeout = 5 * time.Second
	defaultPollInterval   = 30 * time.Second
	defaultCoalesceWindow = 400 * time.Millisecond
	defaultCacheDir       = "~/.cache/minicart"
	defaultRedisChannel   = "minicart:cart-changed"
	defaultLogPath        = "~/.local/state/minicart/minicart.log"
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
	defaultTheme          = "Nightfox"
	defaultSampleRatio    = 1.0
)

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		StoreURL:           defaultStoreURL,
		RequestTimeout:     defaultRequestTimeout,
		PollInterval:       defaultPollInterval,
		CoalesceWindow:     defaultCoalesceWindow,
		CacheBackend:       CacheFile,
		CacheDir:           mustExpand(defaultCacheDir),
		RedisChannel:       defaultRedisChannel,
		LogPath:            mustExpand(defaultLogPath),
		LogLevel:           defaultLogLevel,
		LogFormat:          defaultLogFormat,
		Theme:              defaultTheme,
		TracingSampleRatio: defaultSampleRatio,
	}
}

type fileConfig struct {
	StoreURL           string   `toml:"store_url"`
	RequestTimeout     string   `toml:"request_timeout"`
	PollInterval       string   `toml:"poll_interval"`
	CoalesceWindow     string   `toml:"coalesce_window"`
	CacheBackend       string   `toml:"cache_backend"`
	CacheDir           string   `toml:"cache_dir"`
	RedisURL           string   `toml:"redis_url"`
	RedisChannel       string   `toml:"redis_channel"`
	SignalAddr         string   `toml:"signal_addr"`
	LogPath            string   `toml:"log_path"`
	LogLevel           string   `toml:"log_level"`
	LogFormat          string   `toml:"log_format"`
	Theme              string   `toml:"theme"`
	TracingEndpoint    string   `toml:"tracing_endpoint"`
	TracingSampleRatio *float64 `toml:"tracing_sample_ratio"`
}

// Load reads the TOML file at path (default ~/.config/minicart/config.toml),
// overlays MINICART_* environment variables, including any from a .env file
// in the working directory, and validates the result. A missing file is not
// an error.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	var raw fileConfig
	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := overlayEnv(&raw); err != nil {
		return Config{}, err
	}

	cfg, err := raw.resolve()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// overlayEnv replaces file values with MINICART_<KEY> variables.
func overlayEnv(raw *fileConfig) error {
	_ = godotenv.Load()

	k := koanf.New(".")
	provider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(provider, nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	for key, dst := range map[string]*string{
		"store_url":        &raw.StoreURL,
		"request_timeout":  &raw.RequestTimeout,
		"poll_interval":    &raw.PollInterval,
		"coalesce_window":  &raw.CoalesceWindow,
		"cache_backend":    &raw.CacheBackend,
		"cache_dir":        &raw.CacheDir,
		"redis_url":        &raw.RedisURL,
		"redis_channel":    &raw.RedisChannel,
		"signal_addr":      &raw.SignalAddr,
		"log_path":         &raw.LogPath,
		"log_level":        &raw.LogLevel,
		"log_format":       &raw.LogFormat,
		"theme":            &raw.Theme,
		"tracing_endpoint": &raw.TracingEndpoint,
	} {
		if k.Exists(key) {
			*dst = k.String(key)
		}
	}
	if k.Exists("tracing_sample_ratio") {
		ratio := k.Float64("tracing_sample_ratio")
		raw.TracingSampleRatio = &ratio
	}
	return nil
}

func (raw fileConfig) resolve() (Config, error) {
	cfg := Default()

	cfg.StoreURL = valueOrDefault(raw.StoreURL, cfg.StoreURL)
	cfg.CacheBackend = strings.ToLower(valueOrDefault(raw.CacheBackend, cfg.CacheBackend))
	cfg.RedisURL = strings.TrimSpace(raw.RedisURL)
	cfg.RedisChannel = valueOrDefault(raw.RedisChannel, cfg.RedisChannel)
	cfg.SignalAddr = strings.TrimSpace(raw.SignalAddr)
	cfg.LogLevel = strings.ToLower(valueOrDefault(raw.LogLevel, cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(valueOrDefault(raw.LogFormat, cfg.LogFormat))
	cfg.Theme = valueOrDefault(raw.Theme, cfg.Theme)
	cfg.TracingEndpoint = strings.TrimSpace(raw.TracingEndpoint)
	if raw.TracingSampleRatio != nil {
		cfg.TracingSampleRatio = *raw.TracingSampleRatio
	}

	if dir := strings.TrimSpace(raw.CacheDir); dir != "" {
		cfg.CacheDir = mustExpand(dir)
	}
	if logPath := strings.TrimSpace(raw.LogPath); logPath != "" {
		cfg.LogPath = mustExpand(logPath)
	}

	var err error
	if cfg.RequestTimeout, err = parseDuration("request_timeout", raw.RequestTimeout, cfg.RequestTimeout); err != nil {
		return Config{}, err
	}
	if cfg.PollInterval, err = parseDuration("poll_interval", raw.PollInterval, cfg.PollInterval); err != nil {
		return Config{}, err
	}
	if cfg.CoalesceWindow, err = parseDuration("coalesce_window", raw.CoalesceWindow, cfg.CoalesceWindow); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid config: %s fails %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return defaultConfigPath
}

func parseDuration(key, value string, fallback time.Duration) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func valueOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
