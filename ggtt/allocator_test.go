package ggtt

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Allocator", func() {
	var (
		space     *AddressSpace
		store     *HeapStore
		allocator *Allocator
	)

	BeforeEach(func() {
		space = NewAddressSpace(0x100000)
		store = NewHeapStore(0)
		allocator = MakeBuilder().
			WithAddressSpace(space).
			WithObjectStore(store).
			WithPinBias(0x80000).
			WithLogger(GinkgoLogr).
			Build()
	})

	It("should pin regions above the bias", func() {
		r, err := allocator.Allocate(PageSize, "shared")

		Expect(err).NotTo(HaveOccurred())
		Expect(r.Offset()).To(Equal(uint32(0x80000)))
		Expect(r.Size()).To(Equal(uint64(PageSize)))
		Expect(r.Map()).To(HaveLen(PageSize))
		Expect(r.Owner()).To(Equal("shared"))
	})

	It("should round sizes up to pages", func() {
		r, err := allocator.Allocate(10, "tiny")

		Expect(err).NotTo(HaveOccurred())
		Expect(r.Size()).To(Equal(uint64(PageSize)))
	})

	It("should list live regions", func() {
		a, _ := allocator.Allocate(PageSize, "a")
		allocator.Allocate(2*PageSize, "b")

		Expect(allocator.Regions()).To(HaveLen(2))

		a.Release()

		Expect(allocator.Regions()).To(ConsistOf(
			HaveField("Owner", "b")))
	})

	It("should release once", func() {
		r, _ := allocator.Allocate(PageSize, "shared")

		r.Release()
		r.Release()

		Expect(store.Live()).To(Equal(0))
		Expect(space.Placements()).To(BeEmpty())
	})

	It("should destroy the object when placement fails", func() {
		_, err := allocator.Allocate(0x100000, "huge")

		var allocErr *AllocationError
		Expect(errors.As(err, &allocErr)).To(BeTrue())
		Expect(errors.Is(err, ErrNoSpace)).To(BeTrue())
		Expect(store.Live()).To(Equal(0))
		Expect(store.Used()).To(BeZero())
	})

	It("should report backing store exhaustion", func() {
		allocator = MakeBuilder().
			WithAddressSpace(space).
			WithObjectStore(NewHeapStore(PageSize)).
			Build()

		_, err := allocator.Allocate(2*PageSize, "log")

		Expect(errors.Is(err, ErrNoMemory)).To(BeTrue())
		Expect(space.Placements()).To(BeEmpty())
	})

	DescribeTable("should refuse sizes the address space cannot hold",
		func(size uint64) {
			r, err := allocator.Allocate(size, "huge")

			Expect(r).To(BeNil())

			var allocErr *AllocationError
			Expect(errors.As(err, &allocErr)).To(BeTrue())
			Expect(allocErr.Size).To(Equal(size))
			Expect(errors.Is(err, ErrNoSpace)).To(BeTrue())
			Expect(store.Live()).To(Equal(0))
			Expect(space.Placements()).To(BeEmpty())
		},
		Entry("one page past the room above the bias", uint64(0x80000+PageSize)),
		Entry("far beyond any address space", uint64(0x4000000000000000)),
		Entry("a size that wraps when rounded to pages", ^uint64(0)),
	)

	It("should refuse objects whose page rounding overflows", func() {
		_, err := store.Create(^uint64(0))

		Expect(err).To(MatchError(ErrNoMemory))
		Expect(store.Live()).To(Equal(0))
	})

	It("should reject zero sizes", func() {
		_, err := allocator.Allocate(0, "empty")

		Expect(err).To(BeAssignableToTypeOf(&AllocationError{}))
	})

	Context("with a mocked store", func() {
		var (
			mockCtrl *gomock.Controller
			mock     *MockObjectStore
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			mock = NewMockObjectStore(mockCtrl)
			space = NewAddressSpace(0x3000)
			allocator = MakeBuilder().
				WithAddressSpace(space).
				WithObjectStore(mock).
				WithPinBias(0x1000).
				Build()
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should put the object exactly once on placement failure", func() {
			_, err := space.Reserve(PageSize, PageSize, 0x1000, "other")
			Expect(err).NotTo(HaveOccurred())

			obj := &Object{id: "o", data: make([]byte, 2*PageSize)}
			mock.EXPECT().Create(uint64(2 * PageSize)).Return(obj, nil)
			mock.EXPECT().Put(obj).Times(1)

			r, err := allocator.Allocate(2*PageSize, "ads")

			Expect(r).To(BeNil())
			Expect(errors.Is(err, ErrNoSpace)).To(BeTrue())
		})

		It("should not touch the address space when creation fails", func() {
			mock.EXPECT().Create(gomock.Any()).Return(nil, ErrNoMemory)

			_, err := allocator.Allocate(PageSize, "ads")

			Expect(errors.Is(err, ErrNoMemory)).To(BeTrue())
			Expect(allocator.Space().Placements()).To(BeEmpty())
		})
	})
})
