package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	envVar         = "ENV"
	logLevelEnvVar = "LOG_LEVEL"

	// ConfigPathEnvVar names the optional YAML configuration file.
	ConfigPathEnvVar = "PIGMY_CONFIG_PATH"
)

type EnvVars struct {
	file *FileConfig
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, e.fromFile(func(fc *FileConfig) string { return fc.Server.Port }, "8080"))
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return GetEnv(appNameVar, e.fromFile(func(fc *FileConfig) string { return fc.Server.AppName }, "Pigmy Pro"))
}

func (e EnvVars) GetEnv() string {
	return GetEnv(envVar, e.fromFile(func(fc *FileConfig) string { return fc.Server.Env }, "DEV"))
}

func (e EnvVars) GetLogLevel() string {
	return GetEnv(logLevelEnvVar, e.fromFile(func(fc *FileConfig) string { return fc.Log.Level }, "info"))
}

func (e EnvVars) fromFile(get func(*FileConfig) string, defaultValue string) string {
	return fileString(e.file, get, defaultValue)
}

func fileString(fc *FileConfig, get func(*FileConfig) string, defaultValue string) string {
	if fc == nil {
		return defaultValue
	}
	if v := get(fc); v != "" {
		return v
	}
	return defaultValue
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
