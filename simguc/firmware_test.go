package simguc

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/guclink/guc"
	"github.com/sarchlab/guclink/mmio"
	"github.com/sarchlab/guclink/timing"
)

var _ = Describe("Firmware", func() {
	var (
		clock *timing.FakeClock
		bank  *mmio.Bank
		fw    *Firmware
		c     *guc.Channel
	)

	BeforeEach(func() {
		clock = timing.NewFakeClock(time.Unix(0, 0))
		bank = mmio.NewBank()
		fw = MakeBuilder().
			WithClock(clock).
			WithLatency(5 * time.Microsecond).
			WithLogger(GinkgoLogr).
			Build(bank)

		c = guc.MakeBuilder().
			WithRegisters(bank).
			WithDevice(guc.DeviceInfo{
				Gen:          9,
				LogLevel:     1,
				HasRC6:       true,
				WOPCMSize:    0x100000,
				GuCWOPCMBase: 0x80000,
			}).
			WithClock(clock).
			WithLogger(GinkgoLogr).
			Build("guc0")
		fw.OnInterrupt(c.HandleEvents)

		c.InitSendRegs()
		Expect(c.InitPinBias()).To(Succeed())
		Expect(c.InitWQ()).To(Succeed())
		Expect(c.Init()).To(Succeed())
		Expect(c.Boot()).To(Succeed())
	})

	AfterEach(func() {
		c.FiniWQ()
		c.Fini()
	})

	It("should see the parameters written at boot", func() {
		Expect(fw.Params()).To(Equal(c.InitParams()))
	})

	It("should answer known actions", func() {
		Expect(c.AuthenticateHuC(0x200000)).To(Succeed())

		received := fw.Received()
		Expect(received).To(HaveLen(1))
		Expect(received[0][:2]).To(Equal([]uint32{guc.ActionAuthenticateHuC, 0x200000}))
	})

	It("should fail unknown actions", func() {
		_, err := c.Send([]uint32{0x7777})

		var protoErr *guc.ProtocolError
		Expect(errors.As(err, &protoErr)).To(BeTrue())
		Expect(protoErr.Status).To(Equal(guc.StatusGenericFail))
	})

	It("should answer with a custom status and diagnostic", func() {
		fw.SetHandler(guc.ActionAuthenticateHuC, func(action []uint32) uint32 {
			if action[1] == 0 {
				return guc.StatusGenericFail
			}
			return guc.StatusSuccess
		})
		fw.SetDiagnostic(0x55)

		err := c.AuthenticateHuC(0)

		var protoErr *guc.ProtocolError
		Expect(errors.As(err, &protoErr)).To(BeTrue())
		Expect(protoErr.Diag).To(Equal(uint32(0x55)))
	})

	It("should let muted actions time out", func() {
		fw.Mute(guc.ActionEnterSState, true)

		Expect(errors.Is(c.Suspend(), guc.ErrTimeout)).To(BeTrue())

		fw.Mute(guc.ActionEnterSState, false)
		Expect(c.Suspend()).To(Succeed())
	})

	It("should time out when the firmware is slower than the budget", func() {
		fw.SetLatency(11 * time.Millisecond)

		Expect(errors.Is(c.Resume(), guc.ErrTimeout)).To(BeTrue())
	})

	It("should flush the log when asked to", func() {
		Expect(c.ForceLogBufferFlush()).To(Succeed())

		Eventually(func() [][]uint32 { return fw.Received() }).
			Should(HaveLen(2))
		Expect(fw.Received()[1][0]).To(Equal(guc.ActionLogBufferFileFlushComplete))
		Expect(c.FlushInterruptCount()).To(Equal(uint64(1)))
		Expect(bank.Peek(mmio.SoftScratch(15)) & guc.MsgFlushLogBuffer).To(BeZero())
	})

	It("should report crash dumps", func() {
		fw.RaiseEvent(guc.MsgCrashDumpPosted)

		Expect(c.CrashDumpCount()).To(Equal(uint64(1)))
	})
})
