package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTransport     = errors.New("transport failure")
	ErrNotAccessible = errors.New("source not accessible")
	ErrMalformed     = errors.New("malformed response")
	ErrEmptyDataset  = errors.New("empty dataset")
	ErrWriteFailed   = errors.New("remote write failed")
	ErrWriteUnknown  = errors.New("remote write outcome unknown")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Describe maps an error to the short phrase used in user-facing diagnostics.
func Describe(err error) string {
	switch {
	case err == nil:
		return "no error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, ErrNotAccessible):
		return "source is not publicly accessible"
	case errors.Is(err, ErrMalformed):
		return "source returned an unreadable response"
	case errors.Is(err, ErrEmptyDataset):
		return "source has no movies"
	case errors.Is(err, ErrTransport):
		return "source is unreachable"
	case errors.Is(err, ErrWriteFailed):
		return "remote write failed"
	case errors.Is(err, ErrWriteUnknown):
		return "remote write outcome unknown"
	case errors.Is(err, ErrConfiguration):
		return "not configured"
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrValidation):
		return "invalid input"
	default:
		return "unexpected error"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
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
