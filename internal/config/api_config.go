package config

import (
	"strconv"
	"time"

	"github.com/jrsteele09/pigmy-admin/internal/utils"
)

const (
	apiBaseURLEnvVar   = "API_BASE_URL"
	apiTimeoutEnvVar   = "API_TIMEOUT_SECONDS"
	apiRenewEnvVar     = "API_RENEW_ON_EXPIRY"
	apiCacheTTLEnvVar  = "API_CACHE_TTL_SECONDS"
	defaultAPITimeout  = 30 * time.Second
	defaultAPICacheTTL = 15 * time.Second

	// MaxUploadBytes is the largest collection file accepted for upload (5 MiB).
	MaxUploadBytes = 5 * 1024 * 1024
)

type APIConfig interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
	GetRenewOnAuthFailure() bool
	GetCacheTTL() time.Duration
	GetMaxUploadBytes() int64
}

type API struct {
	file *FileConfig
}

var _ APIConfig = API{}

func (a API) GetAPIBaseURL() string {
	return GetEnv(apiBaseURLEnvVar, fileString(a.file, func(fc *FileConfig) string { return fc.API.BaseURL }, "http://localhost:5000/api"))
}

func (a API) GetRequestTimeout() time.Duration {
	fileSecs := 0
	if a.file != nil {
		fileSecs = a.file.API.TimeoutSeconds
	}
	return secondsSetting(apiTimeoutEnvVar, fileSecs, defaultAPITimeout)
}

// GetRenewOnAuthFailure reports whether a rejected credential gets one
// silent renewal attempt before the session is torn down.
func (a API) GetRenewOnAuthFailure() bool {
	if v, err := strconv.ParseBool(GetEnv(apiRenewEnvVar, "")); err == nil {
		return v
	}
	if a.file == nil {
		return true
	}
	return utils.ValueOr(a.file.API.RenewOnExpiry, true)
}

func (a API) GetCacheTTL() time.Duration {
	fileSecs := 0
	if a.file != nil {
		fileSecs = a.file.API.CacheTTLSecs
	}
	return secondsSetting(apiCacheTTLEnvVar, fileSecs, defaultAPICacheTTL)
}

func (API) GetMaxUploadBytes() int64 {
	return MaxUploadBytes
}

func secondsSetting(envVar string, fileSecs int, defaultValue time.Duration) time.Duration {
	if secs, err := strconv.Atoi(GetEnv(envVar, "")); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if fileSecs > 0 {
		return time.Duration(fileSecs) * time.Second
	}
	return defaultValue
}
