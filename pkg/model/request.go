package model

// Operation names for the synchronous request/reply channel used by the
// status HTTP surface (and anything else outside the single-threaded
// engine loop) to read engine state without locks.
const (
	OpGetPipeline = "get_pipeline"
	OpGetProcess  = "get_process"
	OpGetJob      = "get_job"
	OpShutdown    = "shutdown"
)

// Request is a point-to-point message with a reply channel, so a caller
// running outside the engine's cooperative event loop (an HTTP handler)
// can ask for a snapshot of state without touching shared memory
// directly — the engine loop answers it in its own turn.
type Request struct {
	Operation string
	Pipeline  string
	Process   string
	JobIndex  int
	ReplyCh   chan Response
}

// Response carries the result or error of a Request.
type Response struct {
	Data  any
	Error error
}

// EventType tags the kind of lifecycle event the run ledger records.
type EventType string

const (
	EventJobTransition  EventType = "job_transition"
	EventProcDone       EventType = "proc_done"
	EventPipelineDone   EventType = "pipeline_done"
)

// Event is a lifecycle notification consumed by the optional run ledger.
// No engine component produces Events: the channel cmd/pipex hands the
// ledger is never written to, and the status surface reads the core
// plugin's progress counters instead.
type Event struct {
	Type      EventType
	Pipeline  string
	Process   string
	JobIndex  int
	Status    Status
	Timestamp int64
	Detail    string
}
