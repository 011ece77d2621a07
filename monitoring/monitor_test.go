package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/guclink/ggtt"
	"github.com/sarchlab/guclink/guc"
	"github.com/sarchlab/guclink/mmio"
	"github.com/sarchlab/guclink/simguc"
	"github.com/sarchlab/guclink/timing"
)

var _ = Describe("Monitor", func() {
	var (
		c       *guc.Channel
		monitor *Monitor
		handler http.Handler
	)

	BeforeEach(func() {
		clock := timing.NewFakeClock(time.Unix(0, 0))
		bank := mmio.NewBank()
		fw := simguc.MakeBuilder().WithClock(clock).Build(bank)

		c = guc.MakeBuilder().
			WithRegisters(bank).
			WithDevice(guc.DeviceInfo{
				Gen:          9,
				WOPCMSize:    0x100000,
				GuCWOPCMBase: 0x80000,
			}).
			WithClock(clock).
			WithLogger(GinkgoLogr).
			Build("guc0")
		fw.OnInterrupt(c.HandleEvents)

		c.InitSendRegs()
		Expect(c.InitPinBias()).To(Succeed())
		Expect(c.Init()).To(Succeed())
		Expect(c.Boot()).To(Succeed())

		monitor = NewMonitor().WithLogger(GinkgoLogr)
		monitor.RegisterChannel(c)
		handler = monitor.Router()
	})

	AfterEach(func() {
		c.Fini()
	})

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		handler.ServeHTTP(rec, req)

		return rec
	}

	It("should list channels", func() {
		rec := get("/api/channels")

		Expect(rec.Code).To(Equal(http.StatusOK))

		var names []string
		Expect(json.Unmarshal(rec.Body.Bytes(), &names)).To(Succeed())
		Expect(names).To(ConsistOf("guc0"))
	})

	It("should report the channel counters", func() {
		Expect(c.AuthenticateHuC(0x4000)).To(Succeed())

		rec := get("/api/channel/guc0")

		Expect(rec.Code).To(Equal(http.StatusOK))

		var stats guc.Stats
		Expect(json.Unmarshal(rec.Body.Bytes(), &stats)).To(Succeed())
		Expect(stats.Name).To(Equal("guc0"))
		Expect(stats.SendEnabled).To(BeTrue())
		Expect(stats.Exchanges).To(Equal(uint64(1)))
		Expect(stats.PinBias).To(Equal(uint64(0x80000)))
	})

	It("should list the regions", func() {
		rec := get("/api/channel/guc0/regions")

		Expect(rec.Code).To(Equal(http.StatusOK))

		var regions []ggtt.RegionInfo
		Expect(json.Unmarshal(rec.Body.Bytes(), &regions)).To(Succeed())
		Expect(regions).NotTo(BeEmpty())
		for _, r := range regions {
			Expect(r.Offset).To(BeNumerically(">=", uint64(0x80000)))
		}
	})

	It("should answer 404 for unknown channels", func() {
		Expect(get("/api/channel/guc9").Code).To(Equal(http.StatusNotFound))
		Expect(get("/api/channel/guc9/regions").Code).
			To(Equal(http.StatusNotFound))
	})

	It("should reject malformed field requests", func() {
		rec := get("/api/channel/guc0/field/notjson")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should reject malformed profile durations", func() {
		rec := get("/api/profile?duration=soon")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should report progress bars", func() {
		bar := monitor.CreateProgressBar("boot", 10)
		bar.IncrementInProgress(4)
		bar.MoveInProgressToFinished(3, false)
		bar.MoveInProgressToFinished(1, true)

		rec := get("/api/progress")

		var bars []ProgressSnapshot
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0].Name).To(Equal("boot"))
		Expect(bars[0].Finished).To(Equal(uint64(4)))
		Expect(bars[0].Failed).To(Equal(uint64(1)))
		Expect(bars[0].InProgress).To(BeZero())

		monitor.CompleteProgressBar(bar)

		rec = get("/api/progress")
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(BeEmpty())
	})

	It("should serve on a random port", func() {
		url, err := monitor.StartServer()
		Expect(err).NotTo(HaveOccurred())
		defer func() { Expect(monitor.StopServer()).To(Succeed()) }()

		rsp, err := http.Get(url + "/api/channels")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
	})
})
