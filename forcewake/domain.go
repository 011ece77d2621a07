package forcewake

import (
	"sort"
	"strings"

	"github.com/sarchlab/guclink/mmio"
)

// Domains is a set of power domains.
type Domains uint32

// The power domains that can be held awake by the host.
const (
	Render Domains = 1 << iota
	Blitter
	Media

	All = Render | Blitter | Media
)

const numDomains = 3

var domainNames = [numDomains]string{"render", "blitter", "media"}

func (d Domains) String() string {
	if d == 0 {
		return "none"
	}

	var names []string
	d.each(func(_ Domains, i int) {
		names = append(names, domainNames[i])
	})

	return strings.Join(names, "|")
}

func (d Domains) each(fn func(domain Domains, index int)) {
	for i := 0; i < numDomains; i++ {
		domain := Domains(1 << i)
		if d&domain != 0 {
			fn(domain, i)
		}
	}
}

// Access describes how a register is going to be touched.
type Access uint8

// Register access kinds.
const (
	RegRead Access = 1 << iota
	RegWrite
)

type regRange struct {
	start, end mmio.Reg
	domains    Domains
}

// Sorted by start offset. Offsets outside every range need no domain.
var regRanges = []regRange{
	{start: 0x2000, end: 0x3FFF, domains: Render},
	{start: 0x5200, end: 0x7FFF, domains: Render},
	{start: 0xB000, end: 0xB47F, domains: Render},
	{start: 0xC000, end: 0xCFFF, domains: Blitter},
	{start: 0x12000, end: 0x13FFF, domains: Media},
	{start: 0x22000, end: 0x23FFF, domains: Media},
}

// ForRegister returns the domains that must be awake to access the register
// in the given way.
func ForRegister(r mmio.Reg, ops Access) Domains {
	if ops == 0 {
		return 0
	}

	i := sort.Search(len(regRanges), func(i int) bool {
		return regRanges[i].end >= r
	})
	if i == len(regRanges) || regRanges[i].start > r {
		return 0
	}

	return regRanges[i].domains
}
