// Package config loads YAML configuration files with environment variable
// expansion.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by LoadFirst when no candidate file exists.
var ErrNotFound = errors.New("config file not found")

// Validator is implemented by configurations that check themselves after
// loading.
type Validator interface {
	Validate() error
}

// Load reads filename into target. `$VAR` and `${VAR}` are replaced by the
// environment; `${VAR:-fallback}` uses fallback when VAR is unset or empty.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	if err := yaml.Unmarshal([]byte(os.Expand(string(data), lookupEnv)), target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}

// LoadFirst loads the first candidate that exists and returns its path.
// Empty candidates are skipped.
func LoadFirst[T any](target *T, candidates ...string) (string, error) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, err := os.Stat(c); errors.Is(err, os.ErrNotExist) {
			continue
		}
		return c, Load(c, target)
	}
	return "", fmt.Errorf("%w: tried %s", ErrNotFound, strings.Join(nonEmpty(candidates), ", "))
}

// UserFile returns <user config dir>/<app>/config.yaml, or "" when the
// platform has no user config directory.
func UserFile(app string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, app, "config.yaml")
}

func lookupEnv(name string) string {
	key, fallback, hasFallback := strings.Cut(name, ":-")
	if v := os.Getenv(key); v != "" || !hasFallback {
		return v
	}
	return fallback
}

func nonEmpty(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
