package guc

import (
	"time"

	"github.com/sarchlab/guclink/ggtt"
)

// Log buffer layout, in pages. Every section is preceded by a state page,
// and the buffer ends with a spare page.
const (
	LogDPCPages   = 7
	LogISRPages   = 7
	LogCrashPages = 1

	LogSize = (1 + LogDPCPages + 1 + LogISRPages + 1 + LogCrashPages + 1) *
		ggtt.PageSize
)

// Fields of the log parameters word.
const (
	logValid            uint32 = 1 << 0
	logNotifyOnHalfFull uint32 = 1 << 1
)

const (
	logCrashShift   = 4
	logDPCShift     = 6
	logISRShift     = 9
	logBufAddrShift = 12
)

// LogSnapshot is a copy of the controller log buffer taken when the
// controller asked for a flush.
type LogSnapshot struct {
	Seq    uint64
	Offset uint32
	Data   []byte
	Time   time.Time
}

// LogSink receives the captured log buffers. Decoding the records is up to
// the sink.
type LogSink interface {
	Consume(snapshot LogSnapshot) error
}

type discardSink struct{}

func (discardSink) Consume(LogSnapshot) error {
	return nil
}

type logBuffer struct {
	region *ggtt.Region
	flags  uint32
	seq    uint64
}

func logFlags(offset uint32) uint32 {
	return logValid |
		logNotifyOnHalfFull |
		LogCrashPages<<logCrashShift |
		LogDPCPages<<logDPCShift |
		LogISRPages<<logISRShift |
		(offset>>ggtt.PageShift)<<logBufAddrShift
}

func (c *Channel) logCreate() error {
	r, err := c.Allocate(LogSize, "log")
	if err != nil {
		return err
	}

	c.logBuf = &logBuffer{
		region: r,
		flags:  logFlags(r.Offset()),
	}

	return nil
}

func (c *Channel) logDestroy() {
	if c.logBuf == nil {
		return
	}

	c.logBuf.region.Release()
	c.logBuf = nil
}

// LogRegion returns the region holding the controller log, or nil before
// Init.
func (c *Channel) LogRegion() *ggtt.Region {
	if c.logBuf == nil {
		return nil
	}

	return c.logBuf.region
}

// flushLog runs on the log flush queue. It hands a copy of the log buffer to
// the sink and tells the controller the buffer can be reused.
func (c *Channel) flushLog() {
	buf := c.logBuf
	if buf == nil {
		return
	}

	buf.seq++

	data := make([]byte, buf.region.Size())
	copy(data, buf.region.Map())

	snapshot := LogSnapshot{
		Seq:    buf.seq,
		Offset: buf.region.Offset(),
		Data:   data,
		Time:   c.clock.Now(),
	}

	if err := c.logSink.Consume(snapshot); err != nil {
		c.log.Error(err, "log sink rejected snapshot", "seq", snapshot.Seq)
	}

	_, err := c.Send([]uint32{ActionLogBufferFileFlushComplete})

	c.invokeHook(HookCtx{
		Domain: c,
		Pos:    HookPosLogFlushed,
		Item: LogFlushRecord{
			Seq:   snapshot.Seq,
			Bytes: len(data),
			Acked: err == nil,
			Time:  snapshot.Time,
		},
	})
}
