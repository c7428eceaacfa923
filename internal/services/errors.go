package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Recoverable markers: the failure is specific to one document.
	ErrExternalTool = errors.New("external tool error")
	ErrValidation   = errors.New("validation error")
	ErrTimeout      = errors.New("timeout")
	ErrTransient    = errors.New("transient failure")

	// Fatal markers: the failure will recur for every document.
	ErrConfiguration = errors.New("configuration error")
	ErrUnavailable   = errors.New("tool unavailable")
)

// Kind classifies an error for logging and run reports.
type Kind string

const (
	KindExternalTool  Kind = "external_tool"
	KindValidation    Kind = "validation"
	KindTimeout       Kind = "timeout"
	KindTransient     Kind = "transient"
	KindConfiguration Kind = "configuration"
	KindUnavailable   Kind = "unavailable"
	KindUnknown       Kind = "unknown"
)

var markerKinds = []struct {
	marker error
	kind   Kind
}{
	{ErrConfiguration, KindConfiguration},
	{ErrUnavailable, KindUnavailable},
	{ErrValidation, KindValidation},
	{ErrTimeout, KindTimeout},
	{ErrExternalTool, KindExternalTool},
	{ErrTransient, KindTransient},
}

// ServiceError carries the stage context recorded by Wrap.
type ServiceError struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Hint      string
	Cause     error
}

func (e *ServiceError) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%v: %s: %v", e.Marker, detail, e.Cause)
	}
	return fmt.Sprintf("%v: %s", e.Marker, detail)
}

// Unwrap exposes both the marker and the cause to errors.Is / errors.As.
func (e *ServiceError) Unwrap() []error {
	out := []error{e.Marker}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// Wrap builds an error that includes stage context while tagging it with the
// provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &ServiceError{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// WithHint attaches an operator hint to an error produced by Wrap.
func WithHint(err error, hint string) error {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		svcErr.Hint = strings.TrimSpace(hint)
	}
	return err
}

// ErrorDetails is the structured view of an error used in log records.
type ErrorDetails struct {
	Kind      Kind
	Operation string
	Message   string
	Hint      string
	Cause     error
}

// Details extracts structured information from err.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: KindOf(err)}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		details.Operation = svcErr.Operation
		details.Message = svcErr.Message
		details.Hint = svcErr.Hint
		details.Cause = svcErr.Cause
	}
	if details.Message == "" {
		details.Message = err.Error()
	}
	return details
}

// KindOf returns the classification of err.
func KindOf(err error) Kind {
	for _, mk := range markerKinds {
		if errors.Is(err, mk.marker) {
			return mk.kind
		}
	}
	return KindUnknown
}

// IsFatal reports whether err must halt the whole run. Unclassified errors
// are fatal: nothing guarantees they are confined to one document.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch KindOf(err) {
	case KindValidation, KindTimeout, KindExternalTool, KindTransient:
		return false
	default:
		return true
	}
}

// IsRecoverable reports whether err only affects the current document.
func IsRecoverable(err error) bool {
	return err != nil && !IsFatal(err)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
