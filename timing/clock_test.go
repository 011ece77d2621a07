package timing

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FakeClock", func() {
	var (
		start time.Time
		clock *FakeClock
	)

	BeforeEach(func() {
		start = time.Unix(1000, 0)
		clock = NewFakeClock(start)
	})

	It("should advance on sleep", func() {
		clock.Sleep(10 * time.Microsecond)

		Expect(clock.Since(start)).To(Equal(10 * time.Microsecond))
	})

	It("should deliver the advanced time on after", func() {
		t := <-clock.After(time.Millisecond)

		Expect(t).To(Equal(start.Add(time.Millisecond)))
		Expect(clock.Now()).To(Equal(t))
	})
})
