package guc

import (
	"encoding/binary"
	"errors"

	"github.com/sarchlab/guclink/ggtt"
)

// stageDescSize is the size of one submission context descriptor.
const stageDescSize = 512

const numEngines = 5

const (
	adsMagic          uint32 = 0x41445331
	defaultEngineMask uint32 = 0x1F

	policyExecutionQuantumUs uint32 = 1000000
	policyPreemptionTimeUs   uint32 = 500000
	policyFaultTimeUs        uint32 = 250000
	policyMaxWorkItems       uint32 = 15
	policyDPCPromoteTimeUs   uint32 = 500000
)

// EnginePolicy is the scheduling policy of one engine.
type EnginePolicy struct {
	ExecutionQuantumUs uint32
	PreemptionTimeUs   uint32
	FaultTimeUs        uint32
	MaxWorkItems       uint32
}

// ADS is the content of the additional data structure page. It points the
// controller at the other shared regions.
type ADS struct {
	Magic            uint32
	SharedDataOffset uint32
	LogOffset        uint32
	LogSize          uint32
	EngineMask       uint32
	DPCPromoteTimeUs uint32
	Policies         [numEngines]EnginePolicy
}

// MarshalBinary encodes the page as little-endian words.
func (a ADS) MarshalBinary() ([]byte, error) {
	words := []uint32{
		a.Magic,
		a.SharedDataOffset,
		a.LogOffset,
		a.LogSize,
		a.EngineMask,
		a.DPCPromoteTimeUs,
	}

	for _, p := range a.Policies {
		words = append(words,
			p.ExecutionQuantumUs, p.PreemptionTimeUs, p.FaultTimeUs,
			p.MaxWorkItems)
	}

	buf := make([]byte, 0, 4*len(words))
	for _, w := range words {
		buf = binary.LittleEndian.AppendUint32(buf, w)
	}

	return buf, nil
}

// UnmarshalBinary decodes a page written by MarshalBinary.
func (a *ADS) UnmarshalBinary(data []byte) error {
	const headerWords = 6

	if len(data) < 4*(headerWords+4*numEngines) {
		return errors.New("guc: ADS page too short")
	}

	word := func(i int) uint32 {
		return binary.LittleEndian.Uint32(data[4*i:])
	}

	a.Magic = word(0)
	a.SharedDataOffset = word(1)
	a.LogOffset = word(2)
	a.LogSize = word(3)
	a.EngineMask = word(4)
	a.DPCPromoteTimeUs = word(5)

	for e := range a.Policies {
		base := headerWords + 4*e
		a.Policies[e] = EnginePolicy{
			ExecutionQuantumUs: word(base),
			PreemptionTimeUs:   word(base + 1),
			FaultTimeUs:        word(base + 2),
			MaxWorkItems:       word(base + 3),
		}
	}

	return nil
}

func defaultADS(sharedData, log *ggtt.Region) ADS {
	a := ADS{
		Magic:            adsMagic,
		SharedDataOffset: sharedData.Offset(),
		LogOffset:        log.Offset(),
		LogSize:          uint32(log.Size()),
		EngineMask:       defaultEngineMask,
		DPCPromoteTimeUs: policyDPCPromoteTimeUs,
	}

	for e := range a.Policies {
		a.Policies[e] = EnginePolicy{
			ExecutionQuantumUs: policyExecutionQuantumUs,
			PreemptionTimeUs:   policyPreemptionTimeUs,
			FaultTimeUs:        policyFaultTimeUs,
			MaxWorkItems:       policyMaxWorkItems,
		}
	}

	return a
}

// adsCreate must run after the shared data page and the log buffer exist,
// since the page records their addresses.
func (c *Channel) adsCreate() error {
	if c.sharedData == nil || c.logBuf == nil {
		panic("guc: ADS created before the regions it references")
	}

	r, err := c.Allocate(ggtt.PageSize, "ads")
	if err != nil {
		return err
	}

	data, err := defaultADS(c.sharedData, c.logBuf.region).MarshalBinary()
	if err != nil {
		r.Release()
		return err
	}

	copy(r.Map(), data)
	c.ads = r

	return nil
}

func (c *Channel) adsDestroy() {
	if c.ads == nil {
		return
	}

	c.ads.Release()
	c.ads = nil
}

// ADSRegion returns the additional data structure page, or nil before Init.
func (c *Channel) ADSRegion() *ggtt.Region {
	return c.ads
}
