package guc

// Action codes understood by the controller firmware.
const (
	ActionDefault                    uint32 = 0x0
	ActionRequestPreemption          uint32 = 0x2
	ActionRequestEngineReset         uint32 = 0x3
	ActionSampleForcewake            uint32 = 0x6
	ActionAllocateDoorbell           uint32 = 0x10
	ActionDeallocateDoorbell         uint32 = 0x20
	ActionLogBufferFileFlushComplete uint32 = 0x30
	ActionForceLogBufferFlush        uint32 = 0x302
	ActionEnterSState                uint32 = 0x501
	ActionExitSState                 uint32 = 0x502
	ActionSLPCRequest                uint32 = 0x3003
	ActionAuthenticateHuC            uint32 = 0x4000
	ActionRegisterCTB                uint32 = 0x4505
	ActionDeregisterCTB              uint32 = 0x4506
	ActionUKLogEnableLogging         uint32 = 0xE000
)

var actionNames = map[uint32]string{
	ActionDefault:                    "default",
	ActionRequestPreemption:          "request-preemption",
	ActionRequestEngineReset:         "request-engine-reset",
	ActionSampleForcewake:            "sample-forcewake",
	ActionAllocateDoorbell:           "allocate-doorbell",
	ActionDeallocateDoorbell:         "deallocate-doorbell",
	ActionLogBufferFileFlushComplete: "log-buffer-flush-complete",
	ActionForceLogBufferFlush:        "force-log-buffer-flush",
	ActionEnterSState:                "enter-s-state",
	ActionExitSState:                 "exit-s-state",
	ActionSLPCRequest:                "slpc-request",
	ActionAuthenticateHuC:            "authenticate-huc",
	ActionRegisterCTB:                "register-ctb",
	ActionDeregisterCTB:              "deregister-ctb",
	ActionUKLogEnableLogging:         "uk-log-enable-logging",
}

// ActionName returns a readable name of an action code.
func ActionName(action uint32) string {
	if name, ok := actionNames[action]; ok {
		return name
	}

	return "unknown"
}

// Response status, found in the first send register once the controller has
// consumed an action.
const (
	RecvMask   uint32 = 0xF0000000
	statusMask uint32 = ^RecvMask

	StatusSuccess                = RecvMask | 0x0
	StatusAllocateDoorbellFail   = RecvMask | 0x10
	StatusDeallocateDoorbellFail = RecvMask | 0x20
	StatusGenericFail            = RecvMask | 0xF000
)

// IsResponse reports whether a send register value holds a response.
func IsResponse(value uint32) bool {
	return value&RecvMask == RecvMask
}

// Controller to host message bits, found in SOFT_SCRATCH(15).
const (
	MsgCrashDumpPosted uint32 = 1 << 1
	MsgFlushLogBuffer  uint32 = 1 << 3

	handledEvents = MsgCrashDumpPosted | MsgFlushLogBuffer
)

// Power states carried by the S-state actions.
const (
	PowerUnspecified uint32 = iota
	PowerD0
	PowerD1
	PowerD2
	PowerD3
)

// Domain bits of the sample-forcewake action.
const (
	ForcewakeRender uint32 = 1 << 0
	ForcewakeMedia  uint32 = 1 << 1
)

// Core families written into the parameter block.
const (
	CoreFamilyGen9    uint32 = 12
	CoreFamilyUnknown uint32 = 0x7fffffff
)

// MaxStageDescriptors is the number of submission contexts the controller
// tracks.
const MaxStageDescriptors = 1024
