// Package apperr classifies failures by origin so transports can decide how
// much to expose and callers can decide whether a retry makes sense.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks caller input that failed a constraint.
	ErrValidation = errors.New("validation failed")

	// ErrConfiguration marks a missing or unusable provider setting.
	ErrConfiguration = errors.New("configuration error")

	// ErrUpstreamText marks a failure of the text-generation provider.
	ErrUpstreamText = errors.New("text provider error")

	// ErrUpstreamImage marks a failure of the image-generation provider.
	ErrUpstreamImage = errors.New("image provider error")
)

// ValidationError is returned before any provider is contacted.
type ValidationError struct {
	Field   string
	Reason  string
	Allowed []string
}

func (e *ValidationError) Error() string {
	if len(e.Allowed) > 0 {
		return fmt.Sprintf("%s. Must be one of: %s", e.Reason, strings.Join(e.Allowed, ", "))
	}
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ConfigurationError reports the provider and setting that are missing. It
// never carries the setting's value.
type ConfigurationError struct {
	Provider string
	Setting  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provider '%s': %s is not configured", e.Provider, e.Setting)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// ProviderKind tells which stage of generation an upstream failure belongs to.
type ProviderKind string

const (
	KindText  ProviderKind = "text"
	KindImage ProviderKind = "image"
)

// ProviderError represents a non-success or malformed answer from an
// upstream provider. StatusCode is zero for transport failures.
type ProviderError struct {
	Kind       ProviderKind
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s provider '%s' error (status %d): %s", e.Kind, e.Provider, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s provider '%s' error: %s", e.Kind, e.Provider, msg)
}

// Is matches the sentinel of the provider kind in addition to the wrapped cause.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrUpstreamText:
		return e.Kind == KindText
	case ErrUpstreamImage:
		return e.Kind == KindImage
	}
	return false
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err was caused by caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsUpstream reports whether err originated at a provider.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstreamText) || errors.Is(err, ErrUpstreamImage)
}

// IsRetryable reports whether repeating the same request could succeed.
// Only provider rate limits, server errors and transport failures qualify.
func IsRetryable(err error) bool {
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		return false
	}
	return providerErr.StatusCode == 0 || providerErr.StatusCode == 429 || providerErr.StatusCode >= 500
}
