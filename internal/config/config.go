package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the client settings read from config.toml.
type Config struct {
	BaseURL        string
	PollInterval   time.Duration
	RequestTimeout time.Duration
	LogFile        string
	LogLevel       string
	Breaker        BreakerConfig
}

// BreakerConfig tunes the circuit breaker in front of the products API.
type BreakerConfig struct {
	ConsecutiveFailures int
	OpenTimeout         time.Duration
}

const (
	defaultConfigPath      = "~/.config/stockroom/config.toml"
	defaultBaseURL         = "http://localhost:3000/products"
	defaultLogFile         = "~/.local/share/stockroom/stockroom.log"
	defaultLogLevel        = "info"
	defaultPollInterval    = 5 * time.Second
	defaultRequestTimeout  = 5 * time.Second
	defaultBreakerFailures = 5
	defaultBreakerTimeout  = 10 * time.Second
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		BaseURL:        defaultBaseURL,
		PollInterval:   defaultPollInterval,
		RequestTimeout: defaultRequestTimeout,
		LogFile:        mustExpand(defaultLogFile),
		LogLevel:       defaultLogLevel,
		Breaker: BreakerConfig{
			ConsecutiveFailures: defaultBreakerFailures,
			OpenTimeout:         defaultBreakerTimeout,
		},
	}
}

// Load locates and parses the config file, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		BaseURL        string `toml:"base_url"`
		PollInterval   int    `toml:"poll_interval"`
		RequestTimeout int    `toml:"request_timeout"`
		LogFile        string `toml:"log_file"`
		LogLevel       string `toml:"log_level"`
		Breaker        struct {
			ConsecutiveFailures int `toml:"consecutive_failures"`
			OpenTimeout         int `toml:"open_timeout"`
		} `toml:"breaker"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.BaseURL); v != "" {
		cfg.BaseURL = v
	}
	if raw.PollInterval > 0 {
		cfg.PollInterval = time.Duration(raw.PollInterval) * time.Second
	}
	if raw.RequestTimeout > 0 {
		cfg.RequestTimeout = time.Duration(raw.RequestTimeout) * time.Second
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.ToLower(strings.TrimSpace(raw.LogLevel)); v != "" {
		cfg.LogLevel = v
	}
	// A negative failure count disables the breaker.
	if raw.Breaker.ConsecutiveFailures != 0 {
		cfg.Breaker.ConsecutiveFailures = raw.Breaker.ConsecutiveFailures
	}
	if raw.Breaker.OpenTimeout > 0 {
		cfg.Breaker.OpenTimeout = time.Duration(raw.Breaker.OpenTimeout) * time.Second
	}

	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return ExpandPath(defaultConfigPath)
	}
	return ExpandPath(path)
}

func mustExpand(path string) string {
	expanded, err := ExpandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath trims path, expands a leading ~ to the home directory and
// makes the result absolute.
func ExpandPath(path string) (string, error) {
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
