package driver

import "time"

// Stage describes what the driver is doing to a function.
type Stage string

const (
	// StageSplit splits critical edges.
	StageSplit Stage = "split"
	// StageUnreachable cuts code after noreturn calls.
	StageUnreachable Stage = "unreachable"
	// StageComplete completes lifetimes.
	StageComplete Stage = "complete"
	// StageVerify checks the result.
	StageVerify Stage = "verify"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the function is waiting for a worker.
	StatusQueued Status = "queued"
	// StatusWorking indicates the function is being processed.
	StatusWorking Status = "working"
	// StatusDone indicates the function is done.
	StatusDone Status = "done"
	// StatusError indicates the function failed.
	StatusError Status = "error"
)

// Event reports progress for a function.
type Event struct {
	Func    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. OnEvent is called from the worker
// goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

func emit(sink ProgressSink, fn string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{Func: fn, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}
