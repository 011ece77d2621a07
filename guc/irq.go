package guc

import (
	"fmt"

	"github.com/sarchlab/guclink/forcewake"
	"github.com/sarchlab/guclink/mmio"
)

// EventState tells where the event path of the channel is.
type EventState int32

// The states of the event path.
const (
	EventIdle EventState = iota
	EventPending
	EventDispatched
)

func (s EventState) String() string {
	switch s {
	case EventIdle:
		return "idle"
	case EventPending:
		return "event-pending"
	case EventDispatched:
		return "dispatched"
	default:
		return fmt.Sprintf("EventState(%d)", int32(s))
	}
}

// HandleEvents services the controller to host interrupt. The bits it
// handles are cleared before the log flush is queued, so a flush request
// raised while the previous one is still being serviced is not lost. Bits it
// does not handle are left in place.
func (c *Channel) HandleEvents() {
	c.eventState.Store(int32(EventPending))
	defer c.eventState.Store(int32(EventIdle))

	guard, err := c.fw.Acquire(forcewake.Blitter)
	if err != nil {
		c.log.Error(err, "cannot read controller messages")
		return
	}

	msg := c.regs.Read(mmio.SoftScratch(15))
	handled := msg & handledEvents

	if handled != 0 {
		c.regs.Write(mmio.SoftScratch(15), msg&^handled)
	}

	guard.Release()

	if unhandled := msg &^ handledEvents; unhandled != 0 && c.eventLimiter.Allow() {
		c.log.V(1).Info("unhandled controller message bits",
			"bits", fmt.Sprintf("0x%08X", unhandled))
	}

	if handled == 0 {
		return
	}

	c.eventState.Store(int32(EventDispatched))

	if c.flushWQ != nil {
		c.flushWQ.Queue(c.flushWork)
	}

	count := c.flushIRQCount.Add(1)
	if handled&MsgCrashDumpPosted != 0 {
		c.crashDumpCount.Add(1)
	}

	c.invokeHook(HookCtx{
		Domain: c,
		Pos:    HookPosEventDispatched,
		Item: EventRecord{
			Msg:     msg,
			Handled: handled,
			Count:   count,
			Time:    c.clock.Now(),
		},
	})
}

// State returns where the event path is.
func (c *Channel) State() EventState {
	return EventState(c.eventState.Load())
}

// FlushInterruptCount returns how many interrupts requested a log flush.
func (c *Channel) FlushInterruptCount() uint64 {
	return c.flushIRQCount.Load()
}

// CrashDumpCount returns how many interrupts reported a crash dump.
func (c *Channel) CrashDumpCount() uint64 {
	return c.crashDumpCount.Load()
}
