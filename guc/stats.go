package guc

import (
	"github.com/sarchlab/guclink/ggtt"
)

// Stats is a point-in-time view of the channel.
type Stats struct {
	Name                string            `json:"name"`
	SendEnabled         bool              `json:"send_enabled"`
	EventState          string            `json:"event_state"`
	Exchanges           uint64            `json:"exchanges"`
	Failures            uint64            `json:"failures"`
	FlushInterruptCount uint64            `json:"flush_interrupt_count"`
	CrashDumpCount      uint64            `json:"crash_dump_count"`
	AwakeDomains        string            `json:"awake_domains"`
	PinBias             uint64            `json:"pin_bias"`
	Regions             []ggtt.RegionInfo `json:"regions"`
}

// Stats returns the current counters of the channel.
func (c *Channel) Stats() Stats {
	s := Stats{
		Name:                c.name,
		SendEnabled:         c.SendEnabled(),
		EventState:          c.State().String(),
		Exchanges:           c.exchangeCount.Load(),
		Failures:            c.failureCount.Load(),
		FlushInterruptCount: c.flushIRQCount.Load(),
		CrashDumpCount:      c.crashDumpCount.Load(),
		AwakeDomains:        c.fw.Awake().String(),
		Regions:             c.Regions(),
	}

	if c.alloc != nil {
		s.PinBias = c.alloc.PinBias()
	}

	return s
}
