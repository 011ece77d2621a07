package ggtt

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSpace means no free range large enough exists above the pin bias.
	ErrNoSpace = errors.New("ggtt: address space exhausted")

	// ErrNoMemory means the backing store cannot provide the object.
	ErrNoMemory = errors.New("ggtt: backing storage exhausted")
)

// ConfigurationError reports hardware facts that violate an invariant before
// any register is touched. It is not recoverable.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// AllocationError reports a failed shared-region allocation. Nothing stays
// pinned when it is returned.
type AllocationError struct {
	Size uint64
	Err  error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("allocate %d bytes: %v", e.Size, e.Err)
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}
