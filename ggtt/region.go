package ggtt

import (
	"fmt"
	"sync"
)

// A Region is memory shared between the host and the controller, pinned at a
// fixed address until released.
type Region struct {
	id     string
	owner  string
	obj    *Object
	offset uint64
	alloc  *Allocator
	once   sync.Once
}

// ID returns the unique name of the region.
func (r *Region) ID() string {
	return r.id
}

// Owner returns the name of the subsystem that created the region.
func (r *Region) Owner() string {
	return r.owner
}

// Size returns the pinned size of the region.
func (r *Region) Size() uint64 {
	return r.obj.Size()
}

// Map returns the host view of the region memory.
func (r *Region) Map() []byte {
	return r.obj.Bytes()
}

// Offset returns the address of the region as the controller sees it. The
// region must lie between the pin bias and the top of the controller's
// reach.
func (r *Region) Offset() uint32 {
	if r.offset < r.alloc.bias {
		panic(fmt.Sprintf("ggtt: region %s at 0x%x is below the pin bias 0x%x",
			r.owner, r.offset, r.alloc.bias))
	}

	if r.offset+r.obj.Size() > GuCTop {
		panic(fmt.Sprintf("ggtt: region %s at 0x%x overflows the controller range",
			r.owner, r.offset))
	}

	return uint32(r.offset)
}

// Release unpins the region and destroys its backing object. Calls after the
// first have no effect.
func (r *Region) Release() {
	r.once.Do(func() {
		r.alloc.release(r)
	})
}
