package tui

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type taskKind string

type taskStatus string

const (
	taskKindLoad       taskKind = "load"
	taskKindCreate     taskKind = "create"
	taskKindSave       taskKind = "save"
	taskKindDelete     taskKind = "delete"
	taskKindChat       taskKind = "chat"
	taskKindTranscribe taskKind = "transcribe"
)

const (
	taskStatusRunning   taskStatus = "running"
	taskStatusSucceeded taskStatus = "succeeded"
	taskStatusFailed    taskStatus = "failed"
)

type taskSnapshot struct {
	ID          string
	Kind        taskKind
	Status      taskStatus
	StartedAt   time.Time
	CompletedAt time.Time
	Err         string
	Duration    time.Duration
}

type taskSignalMsg struct {
	Snapshot taskSnapshot
}

type taskResultMsg struct {
	Snapshot taskSnapshot
	Payload  tea.Msg
}

type taskRunner func(context.Context) (tea.Msg, error)

// taskBus turns background work into tea.Cmds: a start signal on dispatch
// and a result envelope once the runner finishes, both delivered on the
// update loop so the interactive thread never blocks on disk or network.
type taskBus struct {
	counter int64
}

func newTaskBus() *taskBus {
	return &taskBus{}
}

func (b *taskBus) nextID(kind taskKind) string {
	idx := atomic.AddInt64(&b.counter, 1)
	return fmt.Sprintf("%s-%d", kind, idx)
}

func (b *taskBus) Dispatch(kind taskKind, runner taskRunner) tea.Cmd {
	id := b.nextID(kind)
	started := time.Now()
	startCmd := func() tea.Msg {
		return taskSignalMsg{Snapshot: taskSnapshot{ID: id, Kind: kind, Status: taskStatusRunning, StartedAt: started}}
	}

	runCmd := func() tea.Msg {
		payload, err := runner(context.Background())
		snapshot := taskSnapshot{
			ID:          id,
			Kind:        kind,
			StartedAt:   started,
			CompletedAt: time.Now(),
		}
		if err != nil {
			snapshot.Status = taskStatusFailed
			snapshot.Err = err.Error()
		} else {
			snapshot.Status = taskStatusSucceeded
		}
		snapshot.Duration = snapshot.CompletedAt.Sub(started)
		log.Printf("[tasks] %s %s (duration=%s, err=%v)", kind, snapshot.Status, snapshot.Duration, err)
		return taskResultMsg{Snapshot: snapshot, Payload: payload}
	}

	return tea.Sequence(startCmd, runCmd)
}
