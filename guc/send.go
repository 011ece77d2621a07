package guc

import (
	"fmt"

	"github.com/rs/xid"
	"github.com/sarchlab/guclink/mmio"
)

// Response is what the controller left in the first send register after
// consuming an action.
type Response struct {
	Status uint32
	Data   uint32
}

// Send delivers an action to the controller and waits for its response.
//
// The action is an action code followed by its arguments and must fit in the
// send registers. When the device has a command transport, only the actions
// that register and deregister it are expected here; this is not checked.
//
// Failures are never retried. A missing response yields an error matching
// ErrTimeout and a failure status yields a *ProtocolError.
func (c *Channel) Send(action []uint32) (Response, error) {
	c.senderMu.RLock()
	send := c.sender
	c.senderMu.RUnlock()

	return send(action)
}

// EnableSend routes sends to the register mailbox.
func (c *Channel) EnableSend() {
	c.senderMu.Lock()
	defer c.senderMu.Unlock()

	c.sender = c.sendMMIO
	c.sendEnabled = true
}

// DisableSend makes every send fail with ErrNoDevice.
func (c *Channel) DisableSend() {
	c.senderMu.Lock()
	defer c.senderMu.Unlock()

	c.sender = c.sendNop
	c.sendEnabled = false
}

// SendEnabled reports whether sends reach the controller.
func (c *Channel) SendEnabled() bool {
	c.senderMu.RLock()
	defer c.senderMu.RUnlock()

	return c.sendEnabled
}

func (c *Channel) sendNop(action []uint32) (Response, error) {
	code := uint32(0)
	if len(action) > 0 {
		code = action[0]
	}

	c.log.Error(ErrNoDevice, "unexpected send", "action", fmt.Sprintf("0x%X", code))

	return Response{}, ErrNoDevice
}

func (c *Channel) raiseIRQ() {
	c.regs.Write(mmio.GuCSendInterrupt, mmio.GuCSendTrigger)
}

// sendMMIO runs the hooks outside the mailbox lock and the forcewake hold,
// so a hook may send again or wait on another sender.
func (c *Channel) sendMMIO(action []uint32) (Response, error) {
	if len(action) == 0 || len(action) > c.sendRegs.Count {
		panic(fmt.Sprintf("guc: action of %d words does not fit %d send registers",
			len(action), c.sendRegs.Count))
	}

	c.checkTransportDiscipline(action[0])

	ex := Exchange{
		ID:     xid.New().String(),
		Action: append([]uint32(nil), action...),
		Start:  c.clock.Now(),
	}
	c.invokeHook(HookCtx{Domain: c, Pos: HookPosExchangeStart, Item: ex})

	rsp, err := c.exchange(&ex)

	return c.finishExchange(ex, rsp, err)
}

// exchange owns the mailbox from the first register write until the
// response is read.
func (c *Channel) exchange(ex *Exchange) (Response, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if err := c.fw.Get(c.sendRegs.Domains); err != nil {
		return Response{}, err
	}
	defer c.fw.Put(c.sendRegs.Domains)

	action := ex.Action
	for i, word := range action {
		c.regs.Write(c.sendRegs.reg(i), word)
	}

	c.regs.Read(c.sendRegs.reg(len(action) - 1))

	c.notify()

	status, ok := c.waitForResponse()
	ex.Status = status

	switch {
	case !ok:
		ex.Diag = c.regs.Read(mmio.SoftScratch(15))
		return Response{}, &TimeoutError{Action: action[0], Status: status, Diag: ex.Diag}
	case status != StatusSuccess:
		ex.Diag = c.regs.Read(mmio.SoftScratch(15))
		return Response{}, &ProtocolError{Action: action[0], Status: status, Diag: ex.Diag}
	}

	return Response{Status: status, Data: status & statusMask}, nil
}

// waitForResponse samples the first send register until the controller marks
// it as a response. No action should take longer than the send timeout; fast
// ones complete within the first few samples.
func (c *Channel) waitForResponse() (uint32, bool) {
	reg := c.sendRegs.reg(0)
	start := c.clock.Now()

	for {
		status := c.regs.Read(reg)
		if IsResponse(status) {
			return status, true
		}

		if c.clock.Now().Sub(start) >= c.sendTimeout {
			return status, false
		}

		c.clock.Sleep(c.pollInterval)
	}
}

func (c *Channel) finishExchange(
	ex Exchange,
	rsp Response,
	err error,
) (Response, error) {
	ex.End = c.clock.Now()
	ex.Err = err
	c.exchangeCount.Add(1)

	if err != nil {
		c.failureCount.Add(1)
		c.log.Error(err, "send failed",
			"action", fmt.Sprintf("0x%X", ex.Action[0]),
			"name", ActionName(ex.Action[0]),
			"outcome", Classify(err),
			"status", fmt.Sprintf("0x%08X", ex.Status),
			"response", fmt.Sprintf("0x%08X", ex.Diag))
		c.invokeHook(HookCtx{Domain: c, Pos: HookPosExchangeFailed, Item: ex})
		c.invokeHook(HookCtx{Domain: c, Pos: HookPosExchangeEnd, Item: ex})

		return Response{}, err
	}

	ex.Response = rsp.Data
	c.invokeHook(HookCtx{Domain: c, Pos: HookPosExchangeEnd, Item: ex})

	return rsp, nil
}

func (c *Channel) checkTransportDiscipline(action uint32) {
	if !c.dev.HasCT {
		return
	}

	if action == ActionRegisterCTB || action == ActionDeregisterCTB {
		return
	}

	c.log.V(1).Info("register send while the command transport is available",
		"action", fmt.Sprintf("0x%X", action))
}
