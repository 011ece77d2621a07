package ggtt

import (
	"sync"

	"github.com/rs/xid"
)

// An Object is the backing memory of a shared region.
type Object struct {
	id   string
	data []byte
}

// ID returns the unique name of the object.
func (o *Object) ID() string {
	return o.id
}

// Size returns the page-rounded size of the object.
func (o *Object) Size() uint64 {
	return uint64(len(o.data))
}

// Bytes returns the host view of the object memory.
func (o *Object) Bytes() []byte {
	return o.data
}

// ObjectStore creates and destroys backing objects.
type ObjectStore interface {
	Create(size uint64) (*Object, error)
	Put(obj *Object)
}

// HeapStore is an ObjectStore that backs objects with host memory, up to a
// byte budget.
type HeapStore struct {
	mu     sync.Mutex
	budget uint64
	used   uint64
	live   map[*Object]bool
}

// NewHeapStore creates a store. A zero budget means unlimited.
func NewHeapStore(budget uint64) *HeapStore {
	return &HeapStore{
		budget: budget,
		live:   make(map[*Object]bool),
	}
}

// Create allocates a zeroed object rounded up to whole pages.
func (s *HeapStore) Create(size uint64) (*Object, error) {
	aligned := alignUp(size, PageSize)
	if aligned < size {
		return nil, ErrNoMemory
	}
	size = aligned

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.budget > 0 && s.used+size > s.budget {
		return nil, ErrNoMemory
	}

	obj := &Object{
		id:   xid.New().String(),
		data: make([]byte, size),
	}
	s.used += size
	s.live[obj] = true

	return obj, nil
}

// Put destroys an object. Putting an object twice is a bug.
func (s *HeapStore) Put(obj *Object) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.live[obj] {
		panic("ggtt: object put twice")
	}

	delete(s.live, obj)
	s.used -= obj.Size()
}

// Live returns how many objects exist.
func (s *HeapStore) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.live)
}

// Used returns how many bytes are allocated.
func (s *HeapStore) Used() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.used
}
