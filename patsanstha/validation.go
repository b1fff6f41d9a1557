package patsanstha

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jrsteele09/pigmy-admin/internal/config"
	"github.com/jrsteele09/pigmy-admin/internal/errors"
	"github.com/jrsteele09/pigmy-admin/models"
)

// ValidationError is a failure caught before any network call. Its message
// is meant for the user; the sentinel is reachable through errors.Is.
type ValidationError struct {
	Err     error
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(sentinel error, format string, args ...any) error {
	return &ValidationError{Err: sentinel, Message: fmt.Sprintf(format, args...)}
}

// Validator holds the client-side checks applied to user input.
type Validator struct {
	maxUploadBytes int64
}

// NewValidator creates a Validator with the standard upload ceiling.
func NewValidator() *Validator {
	return &Validator{maxUploadBytes: config.MaxUploadBytes}
}

// ValidateLoginCredentials requires both fields.
func (v *Validator) ValidateLoginCredentials(mobileNumber, password string) error {
	if strings.TrimSpace(mobileNumber) == "" {
		return invalid(errors.ErrInvalidInput, "Mobile number is required")
	}
	if password == "" {
		return invalid(errors.ErrInvalidInput, "Password is required")
	}
	return nil
}

// ValidateAgentInput checks a new agent. Every field is required.
func (v *Validator) ValidateAgentInput(input models.AgentInput) error {
	if strings.TrimSpace(input.AgentName) == "" {
		return invalid(errors.ErrInvalidInput, "Agent name is required")
	}
	if strings.TrimSpace(input.AgentNo) == "" {
		return invalid(errors.ErrInvalidInput, "Agent number is required")
	}
	if err := v.validateMobileNumber(input.MobileNumber); err != nil {
		return err
	}
	if input.Password == "" {
		return invalid(errors.ErrInvalidInput, "Password is required")
	}
	return nil
}

// ValidateAgentUpdate checks an edit. The password may be left empty.
func (v *Validator) ValidateAgentUpdate(agentNo string, update models.AgentUpdate) error {
	if strings.TrimSpace(agentNo) == "" {
		return invalid(errors.ErrInvalidInput, "Agent number is required")
	}
	if strings.TrimSpace(update.AgentName) == "" {
		return invalid(errors.ErrInvalidInput, "Agent name is required")
	}
	return v.validateMobileNumber(update.MobileNumber)
}

// ValidateUpload accepts only .txt files no larger than the upload ceiling.
func (v *Validator) ValidateUpload(filename string, size int64) error {
	if !strings.EqualFold(filepath.Ext(filename), ".txt") {
		return invalid(errors.ErrInvalidFileType, "Please select a .txt file")
	}
	if size > v.maxUploadBytes {
		return invalid(errors.ErrFileTooLarge, "File size too large. Maximum size allowed is %s", humanize.IBytes(uint64(v.maxUploadBytes)))
	}
	return nil
}

func (v *Validator) validateMobileNumber(number string) error {
	if len(number) != 10 {
		return invalid(errors.ErrInvalidInput, "Mobile number must be 10 digits")
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return invalid(errors.ErrInvalidInput, "Mobile number must contain digits only")
		}
	}
	return nil
}

// ValidateUpload applies the standard upload guard.
func ValidateUpload(filename string, size int64) error {
	return NewValidator().ValidateUpload(filename, size)
}
