package datarecording

import (
	"os"
	"strings"
	"time"
)

const execTable = "exec_info"

const timeLayout = "2006-01-02 15:04:05.000000000"

type execInfo struct {
	Property string
	Value    string
}

// ExecRecorder records how the program was invoked and how long it ran.
type ExecRecorder struct {
	recorder DataRecorder
	entries  []execInfo
}

// NewExecRecorder creates the exec_info table on the recorder.
func NewExecRecorder(recorder DataRecorder) *ExecRecorder {
	recorder.CreateTable(execTable, execInfo{})

	return &ExecRecorder{recorder: recorder}
}

// Start notes the start time, the command line and the working directory.
func (e *ExecRecorder) Start() {
	e.entries = append(e.entries,
		execInfo{"Start Time", time.Now().Format(timeLayout)},
		execInfo{"Command", strings.Join(os.Args, " ")},
	)

	if wd, err := os.Getwd(); err == nil {
		e.entries = append(e.entries, execInfo{"Working Directory", wd})
	}
}

// Note adds a free form property, such as the selected tests.
func (e *ExecRecorder) Note(property, value string) {
	e.entries = append(e.entries, execInfo{property, value})
}

// End writes the collected properties along with the end time.
func (e *ExecRecorder) End() {
	e.entries = append(e.entries,
		execInfo{"End Time", time.Now().Format(timeLayout)})

	for _, entry := range e.entries {
		e.recorder.InsertData(execTable, entry)
	}

	e.entries = nil

	e.recorder.Flush()
}
