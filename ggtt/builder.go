package ggtt

import "github.com/go-logr/logr"

// A Builder can build Allocators.
type Builder struct {
	space *AddressSpace
	store ObjectStore
	bias  uint64
	log   logr.Logger
}

// MakeBuilder creates a builder with default parameters. By default regions
// are placed in a 4GB address space backed by unlimited host memory.
func MakeBuilder() Builder {
	return Builder{
		log: logr.Discard(),
	}
}

// WithAddressSpace sets the address space that regions are placed in.
func (b Builder) WithAddressSpace(space *AddressSpace) Builder {
	b.space = space
	return b
}

// WithObjectStore sets where backing objects come from.
func (b Builder) WithObjectStore(store ObjectStore) Builder {
	b.store = store
	return b
}

// WithPinBias sets the lowest address regions may be placed at.
func (b Builder) WithPinBias(bias uint64) Builder {
	b.bias = bias
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(log logr.Logger) Builder {
	b.log = log
	return b
}

// Build creates a new Allocator.
func (b Builder) Build() *Allocator {
	if b.space == nil {
		b.space = NewAddressSpace(1 << 32)
	}

	if b.store == nil {
		b.store = NewHeapStore(0)
	}

	return &Allocator{
		space:   b.space,
		store:   b.store,
		bias:    b.bias,
		log:     b.log.WithName("ggtt"),
		regions: make(map[string]*Region),
	}
}
