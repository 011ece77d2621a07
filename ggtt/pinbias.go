package ggtt

import "fmt"

// Page geometry of the device address space.
const (
	PageShift = 12
	PageSize  = 1 << PageShift

	// GuCTop is the first address the controller cannot reach.
	GuCTop uint64 = 0xFEE00000
)

// PinBias computes the lowest address usable by shared regions.
//
// The controller maps [0, bias) onto its own WOPCM partition, so nothing the
// host shares with it may be placed there. The bias is the part of WOPCM that
// lies above the controller's partition base.
func PinBias(wopcmSize, gucWOPCMBase uint32) (uint32, error) {
	if wopcmSize < gucWOPCMBase {
		return 0, &ConfigurationError{Reason: fmt.Sprintf(
			"WOPCM size 0x%x is below the controller partition base 0x%x",
			wopcmSize, gucWOPCMBase)}
	}

	return wopcmSize - gucWOPCMBase, nil
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}
