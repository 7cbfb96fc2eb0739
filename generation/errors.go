package generation

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled reports that the call was cancelled, either explicitly or
	// because a newer call superseded it. Not retryable; stop the spinner.
	ErrCancelled = errors.New("generation: request cancelled")
	// ErrTimedOut reports that the client-side deadline expired before the
	// remote service answered. Distinct from ErrCancelled so the caller can
	// word it differently, but handled the same way.
	ErrTimedOut = errors.New("generation: request timed out")
)

// ServiceError is a non-2xx answer or a malformed payload from the remote
// generation service. Retry by re-invoking the same operation.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("generation: service error (status %d)", e.Status)
	}
	return fmt.Sprintf("generation: service error (status %d): %s", e.Status, e.Message)
}

// IsCancellation reports whether the error is a cancellation outcome (user,
// supersession, or timeout) rather than a service failure.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, ErrTimedOut)
}

// IsRetryable reports whether re-invoking the same operation makes sense.
// Service and transport failures are retryable; cancellations are not.
func IsRetryable(err error) bool {
	return err != nil && !IsCancellation(err)
}
