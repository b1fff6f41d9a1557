package config

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

const (
	maxSessionAgeEnvVar = "MAX_SESSION_AGE_MINUTES"
	credentialKeyEnvVar = "CREDENTIAL_KEY"
)

type SecurityConfig interface {
	GetMaxSessionAge() time.Duration
	GetCredentialKey() ([]byte, error)
}

type Security struct {
	file *FileConfig
}

var _ SecurityConfig = Security{}

// GetMaxSessionAge bounds how long a login session cookie lives (the
// auth_token cookie mirror always uses one day).
func (s Security) GetMaxSessionAge() time.Duration {
	fileMins := 0
	if s.file != nil {
		fileMins = s.file.Security.MaxSessionAgeMinutes
	}
	if mins, err := strconv.Atoi(GetEnv(maxSessionAgeEnvVar, "")); err == nil && mins > 0 {
		return time.Duration(mins) * time.Minute
	}
	if fileMins > 0 {
		return time.Duration(fileMins) * time.Minute
	}
	return 24 * time.Hour
}

// GetCredentialKey returns the 32 byte key used to seal stored tokens.
// A nil key with a nil error means tokens are stored unsealed.
func (s Security) GetCredentialKey() ([]byte, error) {
	raw := GetEnv(credentialKeyEnvVar, fileString(s.file, func(fc *FileConfig) string { return fc.Security.CredentialKey }, ""))
	if raw == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("[config GetCredentialKey] %s must be hex encoded: %w", credentialKeyEnvVar, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("[config GetCredentialKey] %s must be 32 bytes, got %d", credentialKeyEnvVar, len(key))
	}
	return key, nil
}
