package datarecording

import (
	"os"
	"strings"
	"time"
)

const execTable = "exec_info"

// ExecInfo is one property of the recorded run.
type ExecInfo struct {
	Property string
	Value    string
}

// execRecorder records when and how the program ran.
type execRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
	now      func() time.Time
}

func newExecRecorder(recorder DataRecorder) *execRecorder {
	recorder.CreateTable(execTable, ExecInfo{})

	return &execRecorder{
		recorder: recorder,
		now:      time.Now,
	}
}

func (e *execRecorder) start(extra map[string]string) {
	e.entries = append(e.entries,
		ExecInfo{"Start Time", e.now().Format(time.RFC3339Nano)},
		ExecInfo{"Command", strings.Join(os.Args, " ")},
	)

	if host, err := os.Hostname(); err == nil {
		e.entries = append(e.entries, ExecInfo{"Host", host})
	}

	for k, v := range extra {
		e.entries = append(e.entries, ExecInfo{k, v})
	}
}

func (e *execRecorder) end() {
	for _, entry := range e.entries {
		e.recorder.InsertData(execTable, entry)
	}

	e.recorder.InsertData(execTable,
		ExecInfo{"End Time", e.now().Format(time.RFC3339Nano)})

	e.entries = nil
}
