// Package guc implements the host side of the command channel to the
// graphics micro-controller: the register mailbox, the boot parameter block,
// the shared regions and the controller to host event path.
package guc

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/sarchlab/guclink/forcewake"
	"github.com/sarchlab/guclink/ggtt"
	"github.com/sarchlab/guclink/mmio"
	"github.com/sarchlab/guclink/timing"
	"github.com/sarchlab/guclink/workqueue"
	"golang.org/x/time/rate"
)

// DeviceInfo holds the static hardware facts the channel depends on.
type DeviceInfo struct {
	Gen    int
	GTType uint32

	// LogLevel is 0 when controller logging is disabled, otherwise the
	// verbosity plus one.
	LogLevel int

	Submission bool
	Preemption bool
	HasCT      bool
	HasRC6     bool

	// WaRsDisableCoarsePowerGating forbids the controller from power gating
	// render and media on its own.
	WaRsDisableCoarsePowerGating bool

	WOPCMSize    uint32
	GuCWOPCMBase uint32
	GGTTSize     uint64
}

type sendFunc func(action []uint32) (Response, error)

// Channel is the command channel to one controller. There is one Channel per
// device, and it owns every piece of shared state: the send lock, the power
// domain counts, the shared regions and the event counters.
type Channel struct {
	hookableBase

	name  string
	regs  mmio.RegisterAccess
	dev   DeviceInfo
	clock timing.Clock
	log   logr.Logger

	fw    *forcewake.Manager
	space *ggtt.AddressSpace
	store ggtt.ObjectStore
	alloc *ggtt.Allocator

	sendRegs     SendRegisterWindow
	sendMu       sync.Mutex
	senderMu     sync.RWMutex
	sender       sendFunc
	sendEnabled  bool
	notify       func()
	sendTimeout  time.Duration
	pollInterval time.Duration

	sharedData *ggtt.Region
	logBuf     *logBuffer
	ads        *ggtt.Region
	stagePool  *ggtt.Region
	client     atomic.Pointer[Client]

	flushWQ   *workqueue.Ordered
	preemptWQ *workqueue.Ordered
	flushWork *workqueue.Work
	logSink   LogSink

	paramsMu      sync.Mutex
	paramsWritten bool

	eventState     atomic.Int32
	flushIRQCount  atomic.Uint64
	crashDumpCount atomic.Uint64
	exchangeCount  atomic.Uint64
	failureCount   atomic.Uint64
	eventLimiter   *rate.Limiter
}

// Client is the submission client on whose behalf engine resets are
// requested.
type Client struct {
	StageID uint32
}

// Name returns the name of the channel.
func (c *Channel) Name() string {
	return c.name
}

// Device returns the hardware facts of the channel.
func (c *Channel) Device() DeviceInfo {
	return c.dev
}

// Forcewake returns the power domain manager of the channel.
func (c *Channel) Forcewake() *forcewake.Manager {
	return c.fw
}

// SetClient registers the submission client. Passing nil removes it. It may
// be called while requests are in flight.
func (c *Channel) SetClient(client *Client) {
	c.client.Store(client)
}

// InitPinBias computes the lowest address usable for shared regions and
// prepares the allocator. It must run before the first allocation.
func (c *Channel) InitPinBias() error {
	bias, err := ggtt.PinBias(c.dev.WOPCMSize, c.dev.GuCWOPCMBase)
	if err != nil {
		c.log.Error(err, "invalid WOPCM layout",
			"wopcmSize", c.dev.WOPCMSize, "gucBase", c.dev.GuCWOPCMBase)
		return err
	}

	c.alloc = ggtt.MakeBuilder().
		WithAddressSpace(c.space).
		WithObjectStore(c.store).
		WithPinBias(uint64(bias)).
		WithLogger(c.log).
		Build()

	c.log.V(1).Info("pin bias initialized", "bias", bias)

	return nil
}

// PinBias returns the lowest address usable for shared regions.
func (c *Channel) PinBias() uint64 {
	c.allocatorMustBeReady()
	return c.alloc.PinBias()
}

// Allocate creates a shared region that stays pinned until released.
func (c *Channel) Allocate(size uint64, owner string) (*ggtt.Region, error) {
	c.allocatorMustBeReady()
	return c.alloc.Allocate(size, owner)
}

// Regions lists the live shared regions.
func (c *Channel) Regions() []ggtt.RegionInfo {
	if c.alloc == nil {
		return nil
	}

	return c.alloc.Regions()
}

func (c *Channel) allocatorMustBeReady() {
	if c.alloc == nil {
		panic("guc: pin bias is not initialized")
	}
}

// InitWQ creates the ordered queues that run deferred work.
func (c *Channel) InitWQ() error {
	c.flushWQ = workqueue.NewOrdered(c.name + "-log")

	if c.dev.Preemption && c.dev.Submission {
		c.preemptWQ = workqueue.NewOrdered(c.name + "-preempt")
	}

	return nil
}

// FiniWQ runs the pending deferred work and destroys the queues.
func (c *Channel) FiniWQ() {
	if c.preemptWQ != nil {
		if err := c.preemptWQ.Destroy(); err != nil {
			c.log.Error(err, "cannot destroy preempt queue")
		}
		c.preemptWQ = nil
	}

	if c.flushWQ != nil {
		if err := c.flushWQ.Destroy(); err != nil {
			c.log.Error(err, "cannot destroy log flush queue")
		}
		c.flushWQ = nil
	}
}

// PreemptQueue returns the queue that serializes preemption requests, or nil
// when preemption through the controller is not used.
func (c *Channel) PreemptQueue() *workqueue.Ordered {
	return c.preemptWQ
}

// Init creates the shared regions. They are created in dependency order and,
// on failure, the ones already created are destroyed in reverse order.
func (c *Channel) Init() error {
	if err := c.sharedDataCreate(); err != nil {
		return err
	}

	if err := c.logCreate(); err != nil {
		c.sharedDataDestroy()
		return err
	}

	if err := c.adsCreate(); err != nil {
		c.logDestroy()
		c.sharedDataDestroy()
		return err
	}

	if c.dev.Submission {
		if err := c.stagePoolCreate(); err != nil {
			c.adsDestroy()
			c.logDestroy()
			c.sharedDataDestroy()
			return err
		}
	}

	return nil
}

// Fini destroys the shared regions in the reverse order of creation.
func (c *Channel) Fini() {
	c.DisableSend()

	if c.stagePool != nil {
		c.stagePool.Release()
		c.stagePool = nil
	}

	c.adsDestroy()
	c.logDestroy()
	c.sharedDataDestroy()
}

func (c *Channel) sharedDataCreate() error {
	r, err := c.Allocate(ggtt.PageSize, "shared-data")
	if err != nil {
		return err
	}

	c.sharedData = r

	return nil
}

func (c *Channel) sharedDataDestroy() {
	if c.sharedData == nil {
		return
	}

	c.sharedData.Release()
	c.sharedData = nil
}

// SharedData returns the page shared with the controller across power
// state transitions.
func (c *Channel) SharedData() *ggtt.Region {
	return c.sharedData
}

func (c *Channel) stagePoolCreate() error {
	r, err := c.Allocate(MaxStageDescriptors*stageDescSize, "stage-desc-pool")
	if err != nil {
		return err
	}

	c.stagePool = r

	return nil
}

// Boot writes the parameter block and enables sending. The firmware must be
// transferred and started by the caller in between.
func (c *Channel) Boot() error {
	if err := c.WriteParams(c.InitParams()); err != nil {
		return err
	}

	c.EnableSend()

	return nil
}

// ResetBootCycle disables sending and allows the parameter block to be
// written again, for a new controller boot.
func (c *Channel) ResetBootCycle() {
	c.DisableSend()

	c.paramsMu.Lock()
	c.paramsWritten = false
	c.paramsMu.Unlock()
}
