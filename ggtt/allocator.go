package ggtt

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-logr/logr"
	"github.com/rs/xid"
)

// Allocator creates shared regions. Every region is pinned for its whole
// lifetime at or above the pin bias.
type Allocator struct {
	space *AddressSpace
	store ObjectStore
	bias  uint64
	log   logr.Logger

	mu      sync.Mutex
	regions map[string]*Region
}

// PinBias returns the lowest address regions are placed at.
func (a *Allocator) PinBias() uint64 {
	return a.bias
}

// Space returns the address space the allocator places regions in.
func (a *Allocator) Space() *AddressSpace {
	return a.space
}

// Allocate creates a backing object of the given size and pins it in the
// address space. If the object cannot be placed it is destroyed before the
// error is returned.
func (a *Allocator) Allocate(size uint64, owner string) (*Region, error) {
	if size == 0 {
		return nil, &AllocationError{Size: size, Err: fmt.Errorf("zero size")}
	}

	aligned := alignUp(size, PageSize)
	total := a.space.Total()
	if aligned < size || a.bias > total || aligned > total-a.bias {
		a.log.Error(ErrNoSpace, "region larger than the address space",
			"owner", owner, "size", size, "bias", a.bias)
		return nil, &AllocationError{Size: size, Err: ErrNoSpace}
	}

	obj, err := a.store.Create(size)
	if err != nil {
		a.log.Error(err, "cannot create backing object", "owner", owner,
			"size", size)
		return nil, &AllocationError{Size: size, Err: err}
	}

	offset, err := a.space.Reserve(obj.Size(), PageSize, a.bias, owner)
	if err != nil {
		a.store.Put(obj)
		a.log.Error(err, "cannot place region", "owner", owner,
			"size", obj.Size(), "bias", a.bias)

		return nil, &AllocationError{Size: size, Err: err}
	}

	r := &Region{
		id:     xid.New().String(),
		owner:  owner,
		obj:    obj,
		offset: offset,
		alloc:  a,
	}

	a.mu.Lock()
	a.regions[r.id] = r
	a.mu.Unlock()

	a.log.V(1).Info("region pinned", "owner", owner, "offset", offset,
		"size", obj.Size())

	return r, nil
}

func (a *Allocator) release(r *Region) {
	a.space.Release(r.offset)
	a.store.Put(r.obj)

	a.mu.Lock()
	delete(a.regions, r.id)
	a.mu.Unlock()

	a.log.V(1).Info("region released", "owner", r.owner, "offset", r.offset)
}

// RegionInfo describes a live region.
type RegionInfo struct {
	ID     string `json:"id"`
	Owner  string `json:"owner"`
	Offset uint64 `json:"offset"`
	Size   uint64 `json:"size"`
}

// Regions lists the live regions, lowest address first.
func (a *Allocator) Regions() []RegionInfo {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]RegionInfo, 0, len(a.regions))
	for _, r := range a.regions {
		out = append(out, RegionInfo{
			ID:     r.id,
			Owner:  r.owner,
			Offset: r.offset,
			Size:   r.obj.Size(),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Offset < out[j].Offset
	})

	return out
}
