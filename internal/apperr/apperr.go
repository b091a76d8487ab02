// Package apperr defines the error taxonomy shared by the cart, session,
// sync and order components, plus the translation of surfaced errors into
// short user-facing messages.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds. Concrete error values below report themselves as one of
// these via errors.Is, so callers can branch on the kind without knowing
// the concrete type.
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrLimitExceeded    = errors.New("limit exceeded")
	ErrValidationFailed = errors.New("validation failed")
	ErrStorageFailure   = errors.New("storage failure")
	ErrTransportFailure = errors.New("transport failure")
	ErrSessionInvalid   = errors.New("session invalid")
)

// LimitError reports a violated quantified cap, carrying the specific limit
// so it can be surfaced verbatim to the caller.
type LimitError struct {
	What string // e.g. "quantity per item", "cart total"
	Max  int64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("limit exceeded: %s (max %d)", e.What, e.Max)
}

func (e *LimitError) Is(target error) bool { return target == ErrLimitExceeded }

// ValidationError aggregates all violated business rules of one operation.
// It always carries the full list, never just the first failure.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidationFailed }

// StorageError wraps a persistence read/write failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error        { return e.Err }
func (e *StorageError) Is(target error) bool { return target == ErrStorageFailure }

// TransportError wraps an external call failure, classified as retryable
// (network/timeout shaped) or terminal.
type TransportError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *TransportError) Error() string {
	kind := "terminal"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("transport failure (%s): %s: %v", kind, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error        { return e.Err }
func (e *TransportError) Is(target error) bool { return target == ErrTransportFailure }

// retryableMarkers is the allow-list used to classify opaque errors.
var retryableMarkers = []string{"network", "timeout", "timed out", "connection", "abort", "unavailable"}

// Retryable reports whether err is worth an automatic bounded retry.
// A TransportError carries the classification explicitly; anything else is
// matched against the marker allow-list. Everything unmatched is terminal.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	msg := strings.ToLower(err.Error())
	for _, m := range retryableMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// Kind returns a stable tag for logging/metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrLimitExceeded):
		return "limit_exceeded"
	case errors.Is(err, ErrValidationFailed):
		return "validation_failed"
	case errors.Is(err, ErrStorageFailure):
		return "storage_failure"
	case errors.Is(err, ErrTransportFailure):
		return "transport_failure"
	case errors.Is(err, ErrSessionInvalid):
		return "session_invalid"
	default:
		return "internal"
	}
}

// UserMessage translates a surfaced error into a short message suitable for
// a notification toast. Raw detail stays in the logs, not on screen.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var ve *ValidationError
	if errors.As(err, &ve) && len(ve.Violations) > 0 {
		return ve.Violations[0]
	}
	var le *LimitError
	if errors.As(err, &le) {
		return le.Error()
	}

	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, ErrSessionInvalid):
		return "Sesi berakhir. Silakan login kembali."
	case errors.Is(err, ErrStorageFailure):
		return "Penyimpanan lokal bermasalah. Perubahan mungkin tidak tersimpan."
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return "Koneksi lambat. Coba lagi."
	case strings.Contains(msg, "network") || strings.Contains(msg, "connection") || strings.Contains(msg, "unavailable"):
		return "Jaringan bermasalah. Coba lagi."
	case strings.Contains(msg, "not found"):
		return "Data tidak ditemukan."
	case strings.Contains(msg, "duplicate") || strings.Contains(msg, "already exists"):
		return "Data sudah ada."
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrValidationFailed):
		return "Data tidak valid. Periksa kembali isian Anda."
	default:
		return "Terjadi kesalahan. Silakan coba lagi."
	}
}
