// Package mmio describes the memory-mapped registers that the host uses to
// talk to the graphics micro-controller.
package mmio

import "fmt"

// Reg is the byte offset of a 32-bit register in the device register BAR.
type Reg uint32

func (r Reg) String() string {
	return fmt.Sprintf("0x%05X", uint32(r))
}

// RegisterAccess reads and writes device registers.
type RegisterAccess interface {
	Read(r Reg) uint32
	Write(r Reg, value uint32)
}

// scratch registers shared with the controller

const (
	softScratchBase  Reg = 0xC180
	SoftScratchCount     = 16
)

// SoftScratch returns the n-th scratch register.
func SoftScratch(n int) Reg {
	if n < 0 || n >= SoftScratchCount {
		panic(fmt.Sprintf("scratch register %d out of range", n))
	}

	return softScratchBase + Reg(4*n)
}

// controller registers

const (
	GuCSendInterrupt  Reg = 0xC4C8   // host to controller doorbell (W)
	ForcewakeRender   Reg = 0xA278   // render domain wake request (W, masked)
	ForcewakeBlitter  Reg = 0xA188   // blitter domain wake request (W, masked)
	ForcewakeMedia    Reg = 0xA270   // media domain wake request (W, masked)
	ForcewakeAckRnd   Reg = 0x0D84   // render domain wake ack (R)
	ForcewakeAckBlt   Reg = 0x130044 // blitter domain wake ack (R)
	ForcewakeAckMedia Reg = 0x0D88   // media domain wake ack (R)
)

// GuCSendTrigger is written into GuCSendInterrupt to ring the doorbell.
const GuCSendTrigger uint32 = 1 << 0

// MaskedBitEnable builds the value of a masked register write that sets bits.
func MaskedBitEnable(bits uint32) uint32 {
	return bits<<16 | bits
}

// MaskedBitDisable builds the value of a masked register write that clears
// bits.
func MaskedBitDisable(bits uint32) uint32 {
	return bits << 16
}
