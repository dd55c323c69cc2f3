package secondary

import "context"

// Session status values, shared between the runner and persistence.
const (
	SessionPending   = "pending"
	SessionRunning   = "running"
	SessionCompleted = "completed"
	SessionFailed    = "failed"
	SessionStopped   = "stopped"
)

// LaunchSpec carries everything the runner needs to start one persona
// session. The prompt is composed by the caller; the runner treats it as
// opaque.
type LaunchSpec struct {
	WorkflowID    string
	Phase         string
	Persona       string
	Prompt        string
	WorkspacePath string
}

// AgentRunner defines the secondary port for the external agent-execution
// capability. Launch returns immediately with an opaque handle; the engine
// polls Status afterwards. The runner owns execution policy (timeouts,
// capacity) - the engine only launches and observes.
type AgentRunner interface {
	// Launch starts one persona session. Fails with ErrAgentUnavailable
	// when the runner rejects the request.
	Launch(ctx context.Context, spec LaunchSpec) (handle string, err error)

	// Status reports the current state of a previously launched session,
	// one of the Session* constants.
	Status(ctx context.Context, handle string) (string, error)

	// Stop terminates a session. Best-effort: a session that already
	// exited is not an error.
	Stop(ctx context.Context, handle string) error
}
