// Package simguc simulates the controller firmware on top of an in-memory
// register bank. It answers doorbells, acknowledges power domain requests and
// raises controller to host events.
package simguc

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/sarchlab/guclink/guc"
	"github.com/sarchlab/guclink/mmio"
	"github.com/sarchlab/guclink/timing"
)

// A Handler decides the status the firmware answers an action with. The
// first word of action is the action code.
type Handler func(action []uint32) uint32

type pending struct {
	status  uint32
	readyAt time.Time
	events  uint32
}

// Firmware is a simulated controller.
type Firmware struct {
	bank    *mmio.Bank
	clock   timing.Clock
	latency time.Duration
	log     logr.Logger

	mu        sync.Mutex
	handlers  map[uint32]Handler
	muted     map[uint32]bool
	postFlush map[uint32]uint32
	inflight  *pending
	received  [][]uint32
	onIRQ     func()
}

// SetHandler replaces how the firmware answers an action.
func (f *Firmware) SetHandler(action uint32, h Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.handlers[action] = h
}

// Mute makes the firmware ignore an action, so that its sender times out.
func (f *Firmware) Mute(action uint32, muted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if muted {
		f.muted[action] = true
	} else {
		delete(f.muted, action)
	}
}

// SetLatency changes how long the firmware takes to answer.
func (f *Firmware) SetLatency(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.latency = d
}

// OnInterrupt sets the function called when the firmware interrupts the
// host.
func (f *Firmware) OnInterrupt(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.onIRQ = fn
}

// Received returns the actions received so far. Every action holds the
// content of all the send registers at the time of the doorbell.
func (f *Firmware) Received() [][]uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([][]uint32, len(f.received))
	copy(out, f.received)

	return out
}

// Params returns the parameter block the host left in the scratch registers.
func (f *Firmware) Params() guc.ParamBlock {
	var p guc.ParamBlock
	for i := range p {
		p[i] = f.bank.Peek(mmio.SoftScratch(1 + i))
	}

	return p
}

// RaiseEvent posts message bits and interrupts the host.
func (f *Firmware) RaiseEvent(bits uint32) {
	f.bank.SetBits(mmio.SoftScratch(15), bits)

	f.mu.Lock()
	irq := f.onIRQ
	f.mu.Unlock()

	f.log.V(1).Info("event raised", "bits", fmt.Sprintf("0x%X", bits))

	if irq != nil {
		irq()
	}
}

// SetDiagnostic sets the value the host reads back as the failure detail.
func (f *Firmware) SetDiagnostic(value uint32) {
	f.bank.Poke(mmio.SoftScratch(15), value)
}

func (f *Firmware) attach() {
	f.mirrorAck(mmio.ForcewakeRender, mmio.ForcewakeAckRnd)
	f.mirrorAck(mmio.ForcewakeBlitter, mmio.ForcewakeAckBlt)
	f.mirrorAck(mmio.ForcewakeMedia, mmio.ForcewakeAckMedia)

	f.bank.MapIO(mmio.GuCSendInterrupt, nil, f.doorbell)
	f.bank.MapIO(mmio.SoftScratch(0), f.readStatus, nil)
}

func (f *Firmware) mirrorAck(req, ack mmio.Reg) {
	f.bank.MapIO(req, nil, func(_ mmio.Reg, value uint32) {
		mask := value >> 16
		f.bank.Poke(ack, (f.bank.Peek(ack)&^mask)|(value&mask))
	})
}

func (f *Firmware) doorbell(_ mmio.Reg, value uint32) {
	if value&mmio.GuCSendTrigger == 0 {
		return
	}

	action := []uint32{f.bank.Peek(mmio.SoftScratch(0))}
	for i := 1; i < mmio.SoftScratchCount-1; i++ {
		action = append(action, f.bank.Peek(mmio.SoftScratch(i)))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.received = append(f.received, action)

	code := action[0]
	if f.muted[code] {
		f.inflight = nil
		f.log.V(1).Info("action ignored", "action", guc.ActionName(code))
		return
	}

	status := guc.StatusGenericFail
	if h, ok := f.handlers[code]; ok {
		status = h(action)
	}

	f.inflight = &pending{
		status:  status,
		readyAt: f.clock.Now().Add(f.latency),
		events:  f.postFlush[code],
	}

	f.log.V(1).Info("doorbell", "action", guc.ActionName(code),
		"status", fmt.Sprintf("0x%08X", status))
}

func (f *Firmware) readStatus(r mmio.Reg, stored uint32) uint32 {
	f.mu.Lock()
	p := f.inflight
	if p == nil || f.clock.Now().Before(p.readyAt) {
		f.mu.Unlock()
		return stored
	}

	f.inflight = nil
	f.mu.Unlock()

	f.bank.Poke(r, p.status)

	if p.events != 0 {
		f.RaiseEvent(p.events)
	}

	return p.status
}

func succeed([]uint32) uint32 {
	return guc.StatusSuccess
}
