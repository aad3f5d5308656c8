package config

import (
	"os"
	"path/filepath"
	"strings"
)

const configFileName = "config.yaml"

var configDirOverride string

// SetConfigDir overrides the config directory. An empty dir restores the
// default.
func SetConfigDir(dir string) {
	configDirOverride = strings.TrimSpace(dir)
}

// ConfigDir returns the hypebot config directory (~/.hypebot).
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return expandDir(configDirOverride)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".hypebot"), nil
}

// ConfigPath returns the default YAML config path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// StoragePath returns the store location, resolving relative paths against
// the config directory.
func (c *Config) StoragePath() (string, error) {
	p := strings.TrimSpace(c.Storage.Path)
	if p == "~" || strings.HasPrefix(p, "~/") || filepath.IsAbs(p) {
		return expandDir(p)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, p), nil
}

func expandDir(dir string) (string, error) {
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if dir == "~" {
			return home, nil
		}
		return filepath.Join(home, dir[2:]), nil
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir), nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}
