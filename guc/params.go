package guc

import (
	"fmt"

	"github.com/sarchlab/guclink/forcewake"
	"github.com/sarchlab/guclink/ggtt"
	"github.com/sarchlab/guclink/mmio"
)

// CtlMaxDwords is the number of words in the parameter block.
const CtlMaxDwords = 14

// Indices of the parameter block.
const (
	CtlCtxInfo    = 0
	CtlARATHigh   = 1
	CtlARATLow    = 2
	CtlDeviceInfo = 3
	CtlLogParams  = 4
	CtlPageFault  = 5
	CtlWA         = 6
	CtlFeature    = 7
	CtlDebug      = 8
)

// Fields of the parameter block words.
const (
	ctlCtxInfoBaseAddrShift = 12
	ctlCoreFamilyShift      = 7
	ctlLogVerbosityShift    = 0
	ctlADSAddrShift         = 11
	stageDescsPerPoolUnit   = 16
)

const (
	ctlWAUKByDriver      uint32 = 1 << 3
	ctlVCS2Enabled       uint32 = 1 << 0
	ctlKernelSubmissions uint32 = 1 << 1
	ctlDisableScheduler  uint32 = 1 << 4
	ctlLogVerbosityMax   uint32 = 3
	ctlLogDisabled       uint32 = 1 << 6
	ctlADSEnabled        uint32 = 1 << 9
	ctlARATLowDefault    uint32 = 100000000
)

// ParamBlock is the set of words the controller reads at boot.
type ParamBlock [CtlMaxDwords]uint32

// ParamInputs are the facts the parameter block is computed from.
type ParamInputs struct {
	Gen      int
	GTType   uint32
	LogLevel int
	LogFlags uint32

	Submission bool
	ADSOffset  uint32
	PoolOffset uint32
}

// BuildParams computes the parameter block.
func BuildParams(in ParamInputs) ParamBlock {
	var p ParamBlock

	p[CtlDeviceInfo] |= in.GTType | coreFamily(in.Gen)<<ctlCoreFamilyShift

	p[CtlARATHigh] = 0
	p[CtlARATLow] = ctlARATLowDefault

	p[CtlWA] |= ctlWAUKByDriver

	p[CtlFeature] |= ctlDisableScheduler | ctlVCS2Enabled

	p[CtlLogParams] = in.LogFlags

	p[CtlDebug] = logVerbosityFlags(in.LogLevel)

	if in.Submission {
		p[CtlDebug] |= (in.ADSOffset >> ggtt.PageShift) << ctlADSAddrShift
		p[CtlDebug] |= ctlADSEnabled

		p[CtlCtxInfo] = (in.PoolOffset>>ggtt.PageShift)<<ctlCtxInfoBaseAddrShift |
			MaxStageDescriptors/stageDescsPerPoolUnit

		p[CtlFeature] |= ctlKernelSubmissions
		p[CtlFeature] &^= ctlDisableScheduler
	}

	return p
}

func coreFamily(gen int) uint32 {
	switch gen {
	case 9:
		return CoreFamilyGen9
	default:
		return CoreFamilyUnknown
	}
}

func logVerbosityFlags(level int) uint32 {
	if level <= 0 {
		return ctlLogDisabled
	}

	verbosity := uint32(level - 1)
	if verbosity > ctlLogVerbosityMax {
		verbosity = ctlLogVerbosityMax
	}

	return verbosity << ctlLogVerbosityShift
}

// InitParams computes the parameter block from the device facts and the
// regions created by Init.
func (c *Channel) InitParams() ParamBlock {
	if coreFamily(c.dev.Gen) == CoreFamilyUnknown {
		c.log.Info("missing core family case", "gen", c.dev.Gen)
	}

	in := ParamInputs{
		Gen:        c.dev.Gen,
		GTType:     c.dev.GTType,
		LogLevel:   c.dev.LogLevel,
		Submission: c.dev.Submission,
	}

	if c.logBuf != nil {
		in.LogFlags = c.logBuf.flags
	}

	if c.dev.Submission {
		in.ADSOffset = c.ads.Offset()
		in.PoolOffset = c.stagePool.Offset()
	}

	return BuildParams(in)
}

// WriteParams copies the parameter block into the scratch registers. It may
// run once per boot cycle.
func (c *Channel) WriteParams(p ParamBlock) error {
	c.paramsMu.Lock()
	defer c.paramsMu.Unlock()

	if c.paramsWritten {
		panic("guc: parameter block already written in this boot cycle")
	}

	guard, err := c.fw.Acquire(forcewake.Blitter)
	if err != nil {
		return fmt.Errorf("writing parameters: %w", err)
	}
	defer guard.Release()

	c.regs.Write(mmio.SoftScratch(0), 0)

	for i, word := range p {
		c.regs.Write(mmio.SoftScratch(1+i), word)
	}

	c.paramsWritten = true

	c.log.V(1).Info("parameters written", "debug", p[CtlDebug],
		"feature", p[CtlFeature])

	return nil
}
