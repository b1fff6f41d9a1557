package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config interface {
	EnvConfig
	APIConfig
	SecurityConfig
	StorageConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	API
	Security
	Storage
}

// New returns a configuration backed by environment variables only.
func New() Config {
	return mainConfig{}
}

// Load returns a configuration that reads the YAML file at path and lets
// environment variables override it. An empty path behaves like New.
func Load(path string) (Config, error) {
	if path == "" {
		return New(), nil
	}
	fc, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	return mainConfig{
		EnvVars:  EnvVars{file: fc},
		API:      API{file: fc},
		Security: Security{file: fc},
		Storage:  Storage{file: fc},
	}, nil
}

// FileConfig mirrors the optional YAML configuration file.
type FileConfig struct {
	Server struct {
		Port    string `yaml:"port"`
		AppName string `yaml:"app_name"`
		Env     string `yaml:"env"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	API struct {
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		RenewOnExpiry  *bool  `yaml:"renew_on_expiry"`
		CacheTTLSecs   int    `yaml:"cache_ttl_seconds"`
	} `yaml:"api"`
	Security struct {
		MaxSessionAgeMinutes int    `yaml:"max_session_age_minutes"`
		CredentialKey        string `yaml:"credential_key"`
	} `yaml:"security"`
	Storage struct {
		DatabasePath string `yaml:"database_path"`
	} `yaml:"storage"`
}

func loadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("[config Load] read config file: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("[config Load] parse config file: %w", err)
	}
	return &fc, nil
}
