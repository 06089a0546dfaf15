package payments

import (
	"errors"
	"fmt"
)

// Sentinel errors for the orchestration boundary. The HTTP layer maps these
// to status codes with errors.Is.
var (
	// ErrNotFound means the company or payment record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnknownProvider means the requested provider key is not registered.
	ErrUnknownProvider = errors.New("unknown payment provider")
	// ErrNotSupported means the provider lacks the requested capability.
	ErrNotSupported = errors.New("operation not supported by provider")
	// ErrNotEligible means a business rule forbids the operation, e.g. a
	// refund on a payment that never completed.
	ErrNotEligible = errors.New("payment not eligible for operation")
	// ErrInvalidInput means required fields are missing or malformed.
	ErrInvalidInput = errors.New("invalid input")
)

// ProviderError wraps a failure talking to an external gateway. It carries
// enough context for logs and is never swallowed between adapter and caller.
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s failed: status=%d %s", e.Provider, e.Op, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s failed: %v", e.Provider, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s failed: %s", e.Provider, e.Op, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsProviderError reports whether err is (or wraps) a gateway failure.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
