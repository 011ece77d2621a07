package guc

import (
	"sync"
	"time"
)

// HookPos names a point in the channel where hooks are invoked.
type HookPos struct {
	Name string
}

// Positions where the channel invokes its hooks.
var (
	HookPosExchangeStart   = &HookPos{Name: "ExchangeStart"}
	HookPosExchangeEnd     = &HookPos{Name: "ExchangeEnd"}
	HookPosExchangeFailed  = &HookPos{Name: "ExchangeFailed"}
	HookPosEventDispatched = &HookPos{Name: "EventDispatched"}
	HookPosLogFlushed      = &HookPos{Name: "LogFlushed"}
)

// HookCtx holds the information about the site where a hook is triggered.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   any
}

// Hook is invoked by a Hookable at its hook positions.
type Hook interface {
	Func(ctx HookCtx)
}

// HookFunc adapts a function into a Hook.
type HookFunc func(ctx HookCtx)

// Func calls f.
func (f HookFunc) Func(ctx HookCtx) {
	f(ctx)
}

// Hookable is an object that accepts hooks.
type Hookable interface {
	AcceptHook(hook Hook)
	NumHooks() int
	Hooks() []Hook
}

// hookableBase is safe to use from the interrupt path and from senders at the
// same time.
type hookableBase struct {
	mu       sync.RWMutex
	hookList []Hook
}

func (h *hookableBase) NumHooks() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.hookList)
}

func (h *hookableBase) Hooks() []Hook {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Hook, len(h.hookList))
	copy(out, h.hookList)

	return out
}

func (h *hookableBase) AcceptHook(hook Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.hookList = append(h.hookList, hook)
}

func (h *hookableBase) invokeHook(ctx HookCtx) {
	for _, hook := range h.Hooks() {
		hook.Func(ctx)
	}
}

// Exchange is the record of one mailbox exchange.
type Exchange struct {
	ID       string
	Action   []uint32
	Status   uint32
	Response uint32
	Diag     uint32
	Err      error
	Start    time.Time
	End      time.Time
}

// Duration returns how long the exchange took.
func (e Exchange) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// EventRecord is the record of one dispatched controller event.
type EventRecord struct {
	Msg     uint32
	Handled uint32
	Count   uint64
	Time    time.Time
}

// LogFlushRecord is the record of one serviced log flush request.
type LogFlushRecord struct {
	Seq   uint64
	Bytes int
	Acked bool
	Time  time.Time
}
