package patsanstha

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failed call.
type Kind int

const (
	KindNetwork Kind = iota + 1 // No connectivity
	KindTimeout                 // Exceeded the request deadline
	KindAuth                    // Credential rejected; the session is already cleared
	KindClient                  // 4xx other than an auth rejection
	KindServer                  // 5xx
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindAuth:
		return "auth"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	}
	return "unknown"
}

// Sentinels for errors.Is against *Error.
var (
	ErrNetwork = errors.New("network failure")
	ErrTimeout = errors.New("timeout failure")
	ErrAuth    = errors.New("auth failure")
	ErrClient  = errors.New("client failure")
	ErrServer  = errors.New("server failure")

	ErrNoFileContent = errors.New("No file content received from server")
)

const (
	msgNetwork        = "Network error. Please check your internet connection."
	msgTimeout        = "Request timeout. Please try again."
	msgSessionExpired = "Session expired. Please login again."
)

// Error is the normalized failure returned for every unsuccessful call.
// Message is always human readable.
type Error struct {
	Kind    Kind
	Status  int // HTTP status, zero for transport failures
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrAuth:
		return e.Kind == KindAuth
	case ErrClient:
		return e.Kind == KindClient
	case ErrServer:
		return e.Kind == KindServer
	}
	return false
}

// Retryable reports whether the failure is transient.
func (e *Error) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindTimeout || e.Kind == KindServer
}

// fallbackFunc produces the message used when the backend supplied none.
type fallbackFunc func(status int) string

func genericFallback(status int) string {
	return fmt.Sprintf("HTTP Error: %d", status)
}

func uploadFallback(status int) string {
	return fmt.Sprintf("File upload failed! status: %d", status)
}

func downloadFallback(status int) string {
	return fmt.Sprintf("Download failed! status: %d", status)
}

// newHTTPError builds the error for a non-2xx response. The message prefers
// the body's "message", then its "error", then the fallback.
func newHTTPError(status int, body []byte, fallback fallbackFunc) *Error {
	kind := KindClient
	if status >= 500 {
		kind = KindServer
	}
	message := backendMessage(body)
	if message == "" {
		message = fallback(status)
	}
	return &Error{Kind: kind, Status: status, Message: message}
}

func backendMessage(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, field := range []string{"message", "error"} {
		if s, ok := payload[field].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// isAuthRejection reports whether a failed response means the credential
// was rejected: a 401, or a message naming a token together with expiry or
// invalidity.
func isAuthRejection(status int, message string) bool {
	if status == 401 {
		return true
	}
	if status < 400 {
		return false
	}
	m := strings.ToLower(message)
	return containsAny(m, "token", "jwt") && containsAny(m, "expired", "invalid")
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
