// Package errors provides standardized error handling for the notification
// dispatch engine.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Configuration-shape errors: recovered locally by falling back to
	// defaults, never surfaced to the caller.
	ErrCodePreferencesMalformed ErrorCode = "PREFERENCES_MALFORMED"

	// Schema-evolution errors: the dependent feature is disabled for the
	// remainder of the call and dispatch proceeds degraded.
	ErrCodeSubscriptionsUnavailable ErrorCode = "SUBSCRIPTIONS_UNAVAILABLE"
	ErrCodeDedupUnavailable         ErrorCode = "DEDUP_UNAVAILABLE"

	// Per-channel terminal states, recorded on delivery rows.
	ErrCodeMissingContact ErrorCode = "MISSING_CONTACT"
	ErrCodeSendFailed     ErrorCode = "SEND_FAILED"

	// Unrecoverable: propagated to the caller as a failed dispatch.
	ErrCodeRecipientResolutionFailed ErrorCode = "RECIPIENT_RESOLUTION_FAILED"
	ErrCodeStorageUnavailable        ErrorCode = "STORAGE_UNAVAILABLE"
	ErrCodeInvalidDispatchInput      ErrorCode = "INVALID_DISPATCH_INPUT"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is lets errors.Is match two StandardErrors by code.
func (e *StandardError) Is(target error) bool {
	var other *StandardError
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// CodeOf extracts the ErrorCode from an error chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// ==========================
// 2. Error Constructors
// ==========================

// NewPreferencesMalformedError marks a stored settings document that failed
// schema validation or decoding.
func NewPreferencesMalformedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePreferencesMalformed,
		Message:   "Stored notification preferences document is malformed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubscriptionsUnavailableError marks a subscription store that is not
// provisioned or structurally unusable.
func NewSubscriptionsUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubscriptionsUnavailable,
		Message:   "Subscription store unavailable, resolving explicit recipients only",
		Details:   errDetails(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDedupUnavailableError marks dedup-key storage that is not provisioned.
func NewDedupUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDedupUnavailable,
		Message:   "Deduplication storage unavailable, dedup disabled for this dispatch",
		Details:   errDetails(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSendFailedError marks an external channel send failure. Recorded, never
// propagated.
func NewSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSendFailed,
		Message:   fmt.Sprintf("Send via %s failed", channel),
		Details:   errDetails(err),
		Retryable: true,
		Metadata:  map[string]interface{}{"channel": channel},
		Timestamp: time.Now().UTC(),
	}
}

// NewRecipientResolutionFailedError marks a dispatch that cannot even compute
// its recipient set.
func NewRecipientResolutionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecipientResolutionFailed,
		Message:   "Could not resolve dispatch recipients",
		Details:   errDetails(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageUnavailableError marks fully unavailable durable storage.
func NewStorageUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageUnavailable,
		Message:   "Notification storage unavailable",
		Details:   errDetails(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidDispatchInputError marks caller input that fails validation.
func NewInvalidDispatchInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidDispatchInput,
		Message:   "Invalid dispatch input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 3. Error Classification
// ==========================

// GetErrorCategory groups codes for logging and metrics labels.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodePreferencesMalformed:
		return "configuration"
	case ErrCodeSubscriptionsUnavailable, ErrCodeDedupUnavailable:
		return "schema_evolution"
	case ErrCodeMissingContact:
		return "missing_contact"
	case ErrCodeSendFailed:
		return "external_send"
	case ErrCodeRecipientResolutionFailed, ErrCodeStorageUnavailable:
		return "unrecoverable"
	case ErrCodeInvalidDispatchInput:
		return "validation"
	default:
		return "internal"
	}
}

// IsDegradable reports whether a code only disables a feature rather than
// failing the dispatch.
func IsDegradable(code ErrorCode) bool {
	return code == ErrCodeSubscriptionsUnavailable || code == ErrCodeDedupUnavailable ||
		code == ErrCodePreferencesMalformed
}
