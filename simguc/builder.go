package simguc

import (
	"time"

	"github.com/go-logr/logr"
	"github.com/sarchlab/guclink/guc"
	"github.com/sarchlab/guclink/mmio"
	"github.com/sarchlab/guclink/timing"
)

// A Builder can build simulated firmware.
type Builder struct {
	clock   timing.Clock
	latency time.Duration
	log     logr.Logger
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		clock:   timing.WallClock{},
		latency: 2 * time.Microsecond,
		log:     logr.Discard(),
	}
}

// WithClock sets the clock response latency is measured on.
func (b Builder) WithClock(clock timing.Clock) Builder {
	b.clock = clock
	return b
}

// WithLatency sets how long the firmware takes to answer an action.
func (b Builder) WithLatency(d time.Duration) Builder {
	b.latency = d
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(log logr.Logger) Builder {
	b.log = log
	return b
}

// Build creates the firmware and attaches it to the bank.
func (b Builder) Build(bank *mmio.Bank) *Firmware {
	f := &Firmware{
		bank:     bank,
		clock:    b.clock,
		latency:  b.latency,
		log:      b.log.WithName("simguc"),
		handlers: make(map[uint32]Handler),
		muted:    make(map[uint32]bool),
		postFlush: map[uint32]uint32{
			guc.ActionForceLogBufferFlush: guc.MsgFlushLogBuffer,
		},
	}

	for _, action := range []uint32{
		guc.ActionSampleForcewake,
		guc.ActionLogBufferFileFlushComplete,
		guc.ActionForceLogBufferFlush,
		guc.ActionEnterSState,
		guc.ActionExitSState,
		guc.ActionRequestEngineReset,
		guc.ActionAuthenticateHuC,
		guc.ActionRegisterCTB,
		guc.ActionDeregisterCTB,
		guc.ActionUKLogEnableLogging,
	} {
		f.handlers[action] = succeed
	}

	f.attach()

	return f
}
