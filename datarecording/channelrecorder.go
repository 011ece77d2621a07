package datarecording

import (
	"fmt"
	"strings"
	"sync"

	"github.com/sarchlab/guclink/guc"
)

// Table names used by the ChannelRecorder.
const (
	ExchangeTable = "exchange"
	EventTable    = "event"
	LogFlushTable = "log_flush"
)

// ExchangeEntry is the stored form of one mailbox exchange.
type ExchangeEntry struct {
	ID         string
	Channel    string
	Action     uint32
	ActionName string
	Words      string
	Status     uint32
	Response   uint32
	Diag       uint32
	Outcome    string
	Error      string
	StartNs    int64
	DurationNs int64
}

// EventEntry is the stored form of one dispatched controller event.
type EventEntry struct {
	Channel string
	Msg     uint32
	Handled uint32
	Count   uint64
	TimeNs  int64
}

// LogFlushEntry is the stored form of one serviced log flush.
type LogFlushEntry struct {
	Channel string
	Seq     uint64
	Bytes   int
	Acked   bool
	TimeNs  int64
}

// ChannelRecorder is a hook that stores what a channel does.
type ChannelRecorder struct {
	recorder DataRecorder
	exec     *execRecorder

	mu      sync.Mutex
	counts  map[string]int
	stopped bool
}

// NewChannelRecorder creates the tables and starts recording the run.
// Properties passed in runInfo are stored with the run.
func NewChannelRecorder(
	recorder DataRecorder,
	runInfo map[string]string,
) *ChannelRecorder {
	recorder.CreateTable(ExchangeTable, ExchangeEntry{})
	recorder.CreateTable(EventTable, EventEntry{})
	recorder.CreateTable(LogFlushTable, LogFlushEntry{})

	r := &ChannelRecorder{
		recorder: recorder,
		exec:     newExecRecorder(recorder),
		counts:   make(map[string]int),
	}
	r.exec.start(runInfo)

	return r
}

// Func stores the record carried by a hook invocation.
func (r *ChannelRecorder) Func(ctx guc.HookCtx) {
	name := ""
	if c, ok := ctx.Domain.(*guc.Channel); ok {
		name = c.Name()
	}

	switch ctx.Pos {
	case guc.HookPosExchangeEnd:
		r.insert(ExchangeTable, exchangeEntry(name, ctx.Item.(guc.Exchange)))
	case guc.HookPosEventDispatched:
		ev := ctx.Item.(guc.EventRecord)
		r.insert(EventTable, EventEntry{
			Channel: name,
			Msg:     ev.Msg,
			Handled: ev.Handled,
			Count:   ev.Count,
			TimeNs:  ev.Time.UnixNano(),
		})
	case guc.HookPosLogFlushed:
		fl := ctx.Item.(guc.LogFlushRecord)
		r.insert(LogFlushTable, LogFlushEntry{
			Channel: name,
			Seq:     fl.Seq,
			Bytes:   fl.Bytes,
			Acked:   fl.Acked,
			TimeNs:  fl.Time.UnixNano(),
		})
	}
}

func exchangeEntry(channel string, ex guc.Exchange) ExchangeEntry {
	words := make([]string, len(ex.Action))
	for i, w := range ex.Action {
		words[i] = fmt.Sprintf("0x%X", w)
	}

	e := ExchangeEntry{
		ID:         ex.ID,
		Channel:    channel,
		Action:     ex.Action[0],
		ActionName: guc.ActionName(ex.Action[0]),
		Words:      strings.Join(words, " "),
		Status:     ex.Status,
		Response:   ex.Response,
		Diag:       ex.Diag,
		Outcome:    guc.Classify(ex.Err).String(),
		StartNs:    ex.Start.UnixNano(),
		DurationNs: int64(ex.Duration()),
	}

	if ex.Err != nil {
		e.Error = ex.Err.Error()
	}

	return e
}

func (r *ChannelRecorder) insert(tableName string, entry any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}

	r.counts[tableName]++
	r.recorder.InsertData(tableName, entry)
}

// Count returns how many entries were recorded into a table.
func (r *ChannelRecorder) Count(tableName string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.counts[tableName]
}

// Stop records the end of the run and flushes everything. Later hook
// invocations are ignored.
func (r *ChannelRecorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}

	r.stopped = true
	r.exec.end()
	r.recorder.Flush()
}
