package embedding

import "fmt"

// ServiceError wraps a failure from the embedding service.
//
// Transient reports whether the caller may retry with backoff: rate limits,
// 5xx responses and transport failures (including timeouts) are transient;
// auth, quota and malformed-input failures are not and must not be retried
// blindly.
type ServiceError struct {
	Op        string // "embed" or "embedBatch"
	Transient bool
	Err       error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("embedding service: %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
