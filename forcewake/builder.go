package forcewake

import (
	"time"

	"github.com/go-logr/logr"
	"github.com/sarchlab/guclink/mmio"
	"github.com/sarchlab/guclink/timing"
)

// A Builder can build forcewake managers.
type Builder struct {
	regs       mmio.RegisterAccess
	clock      timing.Clock
	ackTimeout time.Duration
	log        logr.Logger
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		clock:      timing.WallClock{},
		ackTimeout: 50 * time.Millisecond,
		log:        logr.Discard(),
	}
}

// WithRegisters sets the registers used for the wake handshake.
func (b Builder) WithRegisters(regs mmio.RegisterAccess) Builder {
	b.regs = regs
	return b
}

// WithClock sets the clock that bounds the ack wait.
func (b Builder) WithClock(clock timing.Clock) Builder {
	b.clock = clock
	return b
}

// WithAckTimeout sets how long a domain may take to acknowledge a wake
// request.
func (b Builder) WithAckTimeout(d time.Duration) Builder {
	b.ackTimeout = d
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(log logr.Logger) Builder {
	b.log = log
	return b
}

// Build creates a new Manager.
func (b Builder) Build() *Manager {
	if b.regs == nil {
		panic("forcewake: registers are not set")
	}

	return &Manager{
		regs:       b.regs,
		clock:      b.clock,
		ackTimeout: b.ackTimeout,
		log:        b.log.WithName("forcewake"),
	}
}
