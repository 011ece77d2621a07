// Package ggtt places memory shared with the controller inside the device's
// global address space.
package ggtt

import (
	"container/list"
	"fmt"
	"sync"
)

// A Placement is a range of the address space that is in use.
type Placement struct {
	Start uint64
	Size  uint64
	Owner string
}

// End returns the first address after the placement.
func (p Placement) End() uint64 {
	return p.Start + p.Size
}

// AddressSpace tracks which ranges of the device address space are taken.
// Placements are kept sorted by start address.
type AddressSpace struct {
	sync.Mutex
	total      uint64
	placements *list.List
	byStart    map[uint64]*list.Element
}

// NewAddressSpace creates an empty address space of the given size.
func NewAddressSpace(total uint64) *AddressSpace {
	return &AddressSpace{
		total:      total,
		placements: list.New(),
		byStart:    make(map[uint64]*list.Element),
	}
}

// Total returns the size of the address space.
func (s *AddressSpace) Total() uint64 {
	return s.total
}

// Reserve finds the lowest free range of the given size that starts at or
// above bias and is aligned to align, and marks it as used.
func (s *AddressSpace) Reserve(
	size, align, bias uint64,
	owner string,
) (uint64, error) {
	if size == 0 {
		panic("ggtt: zero-size reservation")
	}

	if align == 0 || align&(align-1) != 0 {
		panic(fmt.Sprintf("ggtt: alignment 0x%x is not a power of 2", align))
	}

	s.Lock()
	defer s.Unlock()

	cursor := alignUp(bias, align)
	for e := s.placements.Front(); e != nil; e = e.Next() {
		p := e.Value.(Placement)
		if p.End() <= cursor {
			continue
		}

		if cursor+size <= p.Start {
			s.insertBefore(Placement{Start: cursor, Size: size, Owner: owner}, e)
			return cursor, nil
		}

		cursor = alignUp(p.End(), align)
	}

	if cursor < bias || cursor+size < cursor || cursor+size > s.total {
		return 0, ErrNoSpace
	}

	s.insertBefore(Placement{Start: cursor, Size: size, Owner: owner}, nil)

	return cursor, nil
}

func (s *AddressSpace) insertBefore(p Placement, mark *list.Element) {
	s.placementMustNotExist(p.Start)

	var elem *list.Element
	if mark == nil {
		elem = s.placements.PushBack(p)
	} else {
		elem = s.placements.InsertBefore(p, mark)
	}

	s.byStart[p.Start] = elem
}

// Release frees the placement that starts at the given address.
func (s *AddressSpace) Release(start uint64) {
	s.Lock()
	defer s.Unlock()

	s.placementMustExist(start)

	elem := s.byStart[start]
	s.placements.Remove(elem)
	delete(s.byStart, start)
}

// Find returns the placement that starts at the given address.
func (s *AddressSpace) Find(start uint64) (Placement, bool) {
	s.Lock()
	defer s.Unlock()

	elem, found := s.byStart[start]
	if !found {
		return Placement{}, false
	}

	return elem.Value.(Placement), true
}

// Placements returns the ranges in use, lowest first.
func (s *AddressSpace) Placements() []Placement {
	s.Lock()
	defer s.Unlock()

	out := make([]Placement, 0, s.placements.Len())
	for e := s.placements.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(Placement))
	}

	return out
}

func (s *AddressSpace) placementMustExist(start uint64) {
	if _, found := s.byStart[start]; !found {
		panic(fmt.Sprintf("ggtt: no placement at 0x%x", start))
	}
}

func (s *AddressSpace) placementMustNotExist(start uint64) {
	if _, found := s.byStart[start]; found {
		panic(fmt.Sprintf("ggtt: placement at 0x%x exists", start))
	}
}
