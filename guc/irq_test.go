package guc

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/guclink/mmio"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Event handling", func() {
	var (
		mockCtrl *gomock.Controller
		fc       *fakeController
		c        *Channel
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		clock := startClock()
		fc = newFakeController(clock)
		c = newTestChannel(fc.bank, clock, testDevice())
	})

	AfterEach(func() {
		c.FiniWQ()
		mockCtrl.Finish()
	})

	It("should ignore an interrupt without handled bits", func() {
		fc.bank.Poke(mmio.SoftScratch(15), 1<<8)
		fc.bank.RecordAccesses(true)

		c.HandleEvents()

		Expect(fc.bank.Peek(mmio.SoftScratch(15))).To(Equal(uint32(1 << 8)))
		for _, a := range fc.bank.Journal() {
			if a.Reg == mmio.SoftScratch(15) {
				Expect(a.Kind).To(Equal(mmio.AccessRead))
			}
		}
		Expect(c.FlushInterruptCount()).To(BeZero())
		Expect(c.State()).To(Equal(EventIdle))
	})

	It("should clear only the handled bits", func() {
		fc.bank.Poke(mmio.SoftScratch(15), MsgFlushLogBuffer|MsgCrashDumpPosted|1<<8)

		c.HandleEvents()

		Expect(fc.bank.Peek(mmio.SoftScratch(15))).To(Equal(uint32(1 << 8)))
		Expect(c.FlushInterruptCount()).To(Equal(uint64(1)))
		Expect(c.CrashDumpCount()).To(Equal(uint64(1)))
		Expect(c.Forcewake().Awake()).To(BeZero())
	})

	It("should count every flush interrupt", func() {
		for i := 0; i < 5; i++ {
			fc.bank.SetBits(mmio.SoftScratch(15), MsgFlushLogBuffer)
			c.HandleEvents()

			Expect(c.FlushInterruptCount()).To(Equal(uint64(i + 1)))
		}

		Expect(c.CrashDumpCount()).To(BeZero())
	})

	It("should clear the bits before the flush runs", func() {
		var (
			mu    sync.Mutex
			steps []string
		)
		record := func(step string) {
			mu.Lock()
			steps = append(steps, step)
			mu.Unlock()
		}

		sink := NewMockLogSink(mockCtrl)
		c = MakeBuilder().
			WithRegisters(fc.bank).
			WithDevice(testDevice()).
			WithClock(fc.clock).
			WithLogger(GinkgoLogr).
			WithLogSink(sink).
			Build("guc0")
		c.InitSendRegs()
		Expect(c.InitPinBias()).To(Succeed())
		Expect(c.Init()).To(Succeed())
		Expect(c.InitWQ()).To(Succeed())
		c.EnableSend()

		fc.bank.MapIO(mmio.SoftScratch(15), nil, func(_ mmio.Reg, _ uint32) {
			record("clear")
		})
		sink.EXPECT().
			Consume(gomock.Any()).
			DoAndReturn(func(s LogSnapshot) error {
				defer GinkgoRecover()

				record("flush")
				Expect(fc.bank.Peek(mmio.SoftScratch(15))).To(BeZero())
				Expect(s.Seq).To(Equal(uint64(1)))
				Expect(s.Data).To(HaveLen(LogSize))
				return nil
			})

		fc.bank.Poke(mmio.SoftScratch(15), MsgFlushLogBuffer)
		c.HandleEvents()
		c.flushWQ.Flush()

		Expect(steps).To(Equal([]string{"clear", "flush"}))
		Expect(fc.lastAction(1)).To(Equal([]uint32{ActionLogBufferFileFlushComplete}))
	})

	It("should report dispatched events and flushes to hooks", func() {
		Expect(c.Init()).To(Succeed())
		Expect(c.InitWQ()).To(Succeed())
		c.EnableSend()

		var (
			mu    sync.Mutex
			items []any
		)
		c.AcceptHook(HookFunc(func(ctx HookCtx) {
			if ctx.Pos == HookPosEventDispatched || ctx.Pos == HookPosLogFlushed {
				mu.Lock()
				items = append(items, ctx.Item)
				mu.Unlock()
			}
		}))

		fc.bank.Poke(mmio.SoftScratch(15), MsgFlushLogBuffer)
		c.HandleEvents()
		c.flushWQ.Flush()

		Expect(items).To(HaveLen(2))
		Expect(items[0]).To(HaveField("Handled", MsgFlushLogBuffer))
		Expect(items[0]).To(HaveField("Count", uint64(1)))
		Expect(items[1]).To(HaveField("Acked", true))
		Expect(items[1]).To(HaveField("Bytes", LogSize))
	})
})
