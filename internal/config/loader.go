package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"arenacli/pkg/logging"
)

const (
	userConfigDir  = ".config/arena"
	configFileName = "config.yaml"
)

// test hooks
var (
	osUserHomeDir = os.UserHomeDir
	lookupEnv     = os.LookupEnv
)

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// GetDefaultConfigPath returns ~/.config/arena.
func GetDefaultConfigPath() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

func GetDefaultConfigPathOrPanic() string {
	path, err := GetDefaultConfigPath()
	if err != nil {
		panic(err)
	}
	return path
}

// LoadConfig reads configPath/config.yaml over the defaults, applies the
// environment override and validates the result. A missing file is not an
// error.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig(filepath.Join(configPath, stateDirName))

	// #nosec G304 -- the path is chosen by the user
	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		return Config{}, NewConfigurationError(configFilePath, "io", "failed to read configuration", err.Error())
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			cfgErr := NewConfigurationError(configFilePath, "parse", "malformed YAML", err.Error())
			if m := yamlLinePattern.FindStringSubmatch(err.Error()); m != nil {
				cfgErr.LineNumber, _ = strconv.Atoi(m[1])
			}
			cfgErr.Suggestions = []string{"Check indentation and that durations are quoted strings such as \"5m\""}
			return Config{}, cfgErr
		}
		logging.Debug("ConfigLoader", "Loaded configuration from %s", configFilePath)
	}

	applyEnv(&config)

	dir, err := expandHome(config.Storage.Dir)
	if err != nil {
		return Config{}, NewConfigurationError(configFilePath, "validation", "invalid storage.dir", err.Error())
	}
	config.Storage.Dir = dir

	if err := Validate(config); err != nil {
		cfgErr := NewConfigurationError(configFilePath, "validation", "invalid configuration", err.Error())
		return Config{}, cfgErr
	}
	return config, nil
}

func applyEnv(config *Config) {
	if v, ok := BaseURLFromEnv(); ok {
		logging.Debug("ConfigLoader", "Using %s from environment", EnvBaseURL)
		config.API.BaseURL = v
	}
}

// BaseURLFromEnv returns the ARENA_API_URL override, if set.
func BaseURLFromEnv() (string, bool) {
	v, ok := lookupEnv(EnvBaseURL)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
