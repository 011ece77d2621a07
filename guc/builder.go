package guc

import (
	"time"

	"github.com/go-logr/logr"
	"github.com/sarchlab/guclink/forcewake"
	"github.com/sarchlab/guclink/ggtt"
	"github.com/sarchlab/guclink/mmio"
	"github.com/sarchlab/guclink/timing"
	"github.com/sarchlab/guclink/workqueue"
	"golang.org/x/time/rate"
)

// A Builder can build Channels.
type Builder struct {
	regs         mmio.RegisterAccess
	dev          DeviceInfo
	clock        timing.Clock
	log          logr.Logger
	store        ggtt.ObjectStore
	logSink      LogSink
	sendTimeout  time.Duration
	pollInterval time.Duration
	ackTimeout   time.Duration
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		clock:        timing.WallClock{},
		log:          logr.Discard(),
		sendTimeout:  10 * time.Millisecond,
		pollInterval: 10 * time.Microsecond,
		ackTimeout:   50 * time.Millisecond,
	}
}

// WithRegisters sets the device registers.
func (b Builder) WithRegisters(regs mmio.RegisterAccess) Builder {
	b.regs = regs
	return b
}

// WithDevice sets the hardware facts.
func (b Builder) WithDevice(dev DeviceInfo) Builder {
	b.dev = dev
	return b
}

// WithClock sets the clock that bounds every hardware wait.
func (b Builder) WithClock(clock timing.Clock) Builder {
	b.clock = clock
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(log logr.Logger) Builder {
	b.log = log
	return b
}

// WithObjectStore sets where the backing memory of shared regions comes
// from.
func (b Builder) WithObjectStore(store ggtt.ObjectStore) Builder {
	b.store = store
	return b
}

// WithLogSink sets where captured controller log buffers are delivered.
func (b Builder) WithLogSink(sink LogSink) Builder {
	b.logSink = sink
	return b
}

// WithSendTimeout sets how long a send waits for the response.
func (b Builder) WithSendTimeout(d time.Duration) Builder {
	b.sendTimeout = d
	return b
}

// WithPollInterval sets how often the response register is sampled.
func (b Builder) WithPollInterval(d time.Duration) Builder {
	b.pollInterval = d
	return b
}

// WithForcewakeAckTimeout sets how long a power domain may take to wake.
func (b Builder) WithForcewakeAckTimeout(d time.Duration) Builder {
	b.ackTimeout = d
	return b
}

// Build creates a Channel. Sending stays disabled until EnableSend.
func (b Builder) Build(name string) *Channel {
	if b.regs == nil {
		panic("guc: registers are not set")
	}

	c := &Channel{
		name:         name,
		regs:         b.regs,
		dev:          b.dev,
		clock:        b.clock,
		log:          b.log.WithName(name),
		store:        b.store,
		logSink:      b.logSink,
		sendTimeout:  b.sendTimeout,
		pollInterval: b.pollInterval,
		eventLimiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}

	c.fw = forcewake.MakeBuilder().
		WithRegisters(b.regs).
		WithClock(b.clock).
		WithAckTimeout(b.ackTimeout).
		WithLogger(c.log).
		Build()

	ggttSize := b.dev.GGTTSize
	if ggttSize == 0 || ggttSize > ggtt.GuCTop {
		ggttSize = ggtt.GuCTop
	}
	c.space = ggtt.NewAddressSpace(ggttSize)

	if c.store == nil {
		c.store = ggtt.NewHeapStore(0)
	}

	if c.logSink == nil {
		c.logSink = discardSink{}
	}

	c.sender = c.sendNop
	c.notify = c.raiseIRQ
	c.flushWork = workqueue.NewWork(c.flushLog)

	return c
}
