package services

import (
	"context"
	"errors"
	"strings"

	"natranscript/internal/history"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNetwork       = errors.New("network error")
	ErrParse         = errors.New("parse error")
	ErrCodec         = errors.New("codec error")
	ErrRecognition   = errors.New("recognition error")
	ErrAuthorization = errors.New("authorization error")
	ErrExternalTool  = errors.New("external tool error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Error is a classified failure carrying the stage, operation, and an
// operator-facing message. It matches both its marker and the wrapped cause
// under errors.Is.
type Error struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	if e.Err != nil {
		return e.Marker.Error() + ": " + detail + ": " + e.Err.Error()
	}
	return e.Marker.Error() + ": " + detail
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &Error{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Err:       err,
	}
}

// Details returns the operator-facing message of the outermost classified
// error, falling back to the raw error text.
func Details(err error) string {
	if err == nil {
		return ""
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return buildDetail(svcErr.Stage, svcErr.Operation, svcErr.Message)
	}
	return err.Error()
}

// Hint suggests the next thing an operator should check for a failure.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "run was interrupted; rerun to resume from scratch"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "raise the matching *_timeout_seconds setting or check connectivity"
	case errors.Is(err, ErrAuthorization):
		return "verify the speech subscription key and token endpoint"
	case errors.Is(err, ErrNetwork):
		return "check network connectivity and the configured URLs"
	case errors.Is(err, ErrParse):
		return "confirm the feed URL returns RSS with enclosure elements"
	case errors.Is(err, ErrCodec):
		return "confirm the downloaded file is valid audio and ffmpeg supports it"
	case errors.Is(err, ErrExternalTool):
		return "run 'natranscript doctor' to verify external tools"
	case errors.Is(err, ErrRecognition):
		return "check the recognition locale, mode, and service status"
	case errors.Is(err, ErrConfiguration):
		return "review the configuration file or run 'natranscript config init'"
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return "check the command arguments"
	default:
		return "see logs for details"
	}
}

// FailureStatus maps a stage error to the run status recorded in history.
func FailureStatus(err error) history.Status {
	if errors.Is(err, context.Canceled) {
		return history.StatusCancelled
	}
	return history.StatusFailed
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
