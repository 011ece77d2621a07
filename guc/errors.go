package guc

import (
	"errors"
	"fmt"

	"github.com/sarchlab/guclink/forcewake"
	"github.com/sarchlab/guclink/ggtt"
)

// ConfigurationError reports hardware facts that make initialization
// impossible.
type ConfigurationError = ggtt.ConfigurationError

// AllocationError reports a shared region that could not be created.
type AllocationError = ggtt.AllocationError

var (
	// ErrTimeout is matched by every send that saw no response in time.
	ErrTimeout = errors.New("guc: no response from controller")

	// ErrNoDevice is returned by sends issued while sending is disabled.
	ErrNoDevice = errors.New("guc: send not enabled")

	// ErrNoClient is returned by actions that need a submission client
	// when none is registered.
	ErrNoClient = errors.New("guc: no submission client")
)

// TimeoutError is returned when the controller did not set the response bits
// within the send timeout.
type TimeoutError struct {
	Action uint32
	Status uint32
	Diag   uint32
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("guc: action 0x%X timed out; status=0x%08X response=0x%08X",
		e.Action, e.Status, e.Diag)
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

// ProtocolError is returned when the controller answered with a failure
// status.
type ProtocolError struct {
	Action uint32
	Status uint32
	Diag   uint32
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("guc: action 0x%X failed; status=0x%08X response=0x%08X",
		e.Action, e.Status, e.Diag)
}

// Outcome is the classification of the result of a channel operation.
type Outcome int

// The outcomes of channel operations.
const (
	OutcomeSuccess Outcome = iota
	OutcomeTimeout
	OutcomeProtocolFailure
	OutcomeNoDevice
	OutcomePowerFailure
	OutcomeConfiguration
	OutcomeAllocation
	OutcomeOther
)

var outcomeNames = []string{
	"success",
	"timeout",
	"protocol-failure",
	"no-device",
	"power-failure",
	"configuration",
	"allocation",
	"other",
}

func (o Outcome) String() string {
	return outcomeNames[o]
}

// Classify maps an error returned by the channel onto an Outcome.
func Classify(err error) Outcome {
	var (
		protoErr *ProtocolError
		cfgErr   *ConfigurationError
		allocErr *AllocationError
	)

	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrTimeout):
		return OutcomeTimeout
	case errors.As(err, &protoErr):
		return OutcomeProtocolFailure
	case errors.Is(err, ErrNoDevice):
		return OutcomeNoDevice
	case errors.Is(err, forcewake.ErrAckTimeout):
		return OutcomePowerFailure
	case errors.As(err, &cfgErr):
		return OutcomeConfiguration
	case errors.As(err, &allocErr):
		return OutcomeAllocation
	default:
		return OutcomeOther
	}
}
