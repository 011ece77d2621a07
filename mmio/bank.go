package mmio

import "sync"

// ReadHook is invoked after a register is read. It receives the stored value
// and returns the value the reader observes.
type ReadHook func(r Reg, stored uint32) uint32

// WriteHook is invoked after a value has been stored into a register.
type WriteHook func(r Reg, value uint32)

// AccessKind tells reads from writes in the access journal.
type AccessKind int

// The kinds of accesses.
const (
	AccessRead AccessKind = iota
	AccessWrite
)

// An Access is one journaled register access.
type Access struct {
	Kind  AccessKind
	Reg   Reg
	Value uint32
}

type ioRegion struct {
	onRead  ReadHook
	onWrite WriteHook
}

// Bank is an in-memory register file. Device models attach hooks to
// individual registers so that reads and writes behave like hardware.
//
// Hooks run without the bank lock held, so they may call back into the bank.
type Bank struct {
	mu       sync.Mutex
	values   map[Reg]uint32
	regions  map[Reg]ioRegion
	journal  []Access
	journals bool
}

// NewBank creates an empty register bank. Every register reads as zero until
// written.
func NewBank() *Bank {
	return &Bank{
		values:  make(map[Reg]uint32),
		regions: make(map[Reg]ioRegion),
	}
}

// MapIO attaches hooks to a register. Either hook may be nil.
func (b *Bank) MapIO(r Reg, onRead ReadHook, onWrite WriteHook) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.regions[r] = ioRegion{onRead: onRead, onWrite: onWrite}
}

// RecordAccesses turns the access journal on or off.
func (b *Bank) RecordAccesses(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.journals = on
	b.journal = nil
}

// Journal returns a copy of the recorded accesses.
func (b *Bank) Journal() []Access {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Access, len(b.journal))
	copy(out, b.journal)

	return out
}

// Read returns the value of a register, passing it through the read hook.
func (b *Bank) Read(r Reg) uint32 {
	b.mu.Lock()
	value := b.values[r]
	region := b.regions[r]
	b.mu.Unlock()

	if region.onRead != nil {
		value = region.onRead(r, value)
	}

	b.record(Access{Kind: AccessRead, Reg: r, Value: value})

	return value
}

// Write stores a value and then invokes the write hook.
func (b *Bank) Write(r Reg, value uint32) {
	b.mu.Lock()
	b.values[r] = value
	region := b.regions[r]
	b.mu.Unlock()

	b.record(Access{Kind: AccessWrite, Reg: r, Value: value})

	if region.onWrite != nil {
		region.onWrite(r, value)
	}
}

// Peek returns the stored value without invoking hooks.
func (b *Bank) Peek(r Reg) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.values[r]
}

// Poke stores a value without invoking hooks. Device models use it to update
// registers from inside their own hooks.
func (b *Bank) Poke(r Reg, value uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.values[r] = value
}

// SetBits atomically ORs bits into a register without invoking hooks.
func (b *Bank) SetBits(r Reg, bits uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.values[r] |= bits
}

func (b *Bank) record(a Access) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.journals {
		b.journal = append(b.journal, a)
	}
}
