package guc

import (
	"fmt"

	"github.com/sarchlab/guclink/forcewake"
	"github.com/sarchlab/guclink/mmio"
)

// SendRegisterWindow is the bank of scratch registers used as the mailbox.
type SendRegisterWindow struct {
	Base    mmio.Reg
	Count   int
	Domains forcewake.Domains
}

func (w SendRegisterWindow) reg(i int) mmio.Reg {
	if w.Base == 0 || w.Count == 0 {
		panic("guc: send registers are not initialized")
	}

	if i < 0 || i >= w.Count {
		panic(fmt.Sprintf("guc: send register %d out of %d", i, w.Count))
	}

	return w.Base + mmio.Reg(4*i)
}

// InitSendRegs locates the mailbox registers and the power domains needed to
// read and write them. The last scratch register is excluded because the
// controller posts event flags there.
func (c *Channel) InitSendRegs() {
	w := SendRegisterWindow{
		Base:  mmio.SoftScratch(0),
		Count: mmio.SoftScratchCount - 1,
	}

	for i := 0; i < w.Count; i++ {
		w.Domains |= forcewake.ForRegister(w.reg(i),
			forcewake.RegRead|forcewake.RegWrite)
	}

	c.sendRegs = w

	c.log.V(1).Info("send registers initialized", "base", w.Base,
		"count", w.Count, "domains", w.Domains)
}

// SendRegs returns the mailbox window.
func (c *Channel) SendRegs() SendRegisterWindow {
	return c.sendRegs
}
