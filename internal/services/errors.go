package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInput marks unreadable or unsupported source media.
	ErrInput = errors.New("input error")
	// ErrMask marks an empty or degenerate resolved region.
	ErrMask = errors.New("mask error")
	// ErrDecode marks a frame read failure while streaming.
	ErrDecode = errors.New("decode error")
	// ErrEncode marks a write, codec negotiation, or muxing failure.
	ErrEncode = errors.New("encode error")

	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrCanceled      = errors.New("canceled")
	ErrExternalTool  = errors.New("external tool error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FrameError reports a streaming failure tied to a specific frame.
type FrameError struct {
	Index     int
	Timestamp float64
	Err       error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d (t=%.3fs): %v", e.Index, e.Timestamp, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// DecodeFailure wraps err as a decode error for the frame at index.
func DecodeFailure(index int, timestamp float64, err error) error {
	return Wrap(ErrDecode, "streaming", "decode", "", &FrameError{Index: index, Timestamp: timestamp, Err: err})
}

// Classify reduces an error to the short failure code persisted with a job.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInput):
		return "input"
	case errors.Is(err, ErrMask):
		return "mask"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrEncode):
		return "encode"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrCanceled):
		return "canceled"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "internal"
	}
}

// IsValidationPhase reports whether err belongs to the failures raised before
// any frame is touched.
func IsValidationPhase(err error) bool {
	return errors.Is(err, ErrInput) || errors.Is(err, ErrMask) ||
		errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrValidation)
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
