package roots

import "errors"

var (
	// ErrNoCollector indicates Initialize was called without a collector.
	ErrNoCollector = errors.New("roots: collector is required")

	// ErrNoRuntime indicates Initialize was called without an execution
	// engine.
	ErrNoRuntime = errors.New("roots: runtime is required")

	// ErrShutdown indicates the subsystem has been shut down.
	ErrShutdown = errors.New("roots: subsystem shut down")
)
