package runloop

import "fmt"

// Config is the static, per-container configuration surface. It's validated
// once, at NewRunLoop, the way the teacher validates EosConfig: a bad Config
// is a programmer error caught at startup, not a runtime condition, so
// validate panics rather than returning an error.
type Config struct {
	// MaxConcurrency bounds in-flight process dispatches per task.
	MaxConcurrency int
	// WindowMs is the periodic window tick interval; 0 disables windowing.
	WindowMs int
	// CommitMs is the periodic commit tick interval; 0 disables periodic
	// commit (coordinator-requested commits still fire).
	CommitMs int
	// CallbackTimeoutMs is the per-callback deadline; 0 disables it.
	CallbackTimeoutMs int
}

func (c Config) validate() {
	if c.MaxConcurrency < 1 {
		panic(fmt.Sprintf("runloop: MaxConcurrency must be >= 1, got %d", c.MaxConcurrency))
	}
	if c.WindowMs < 0 {
		panic(fmt.Sprintf("runloop: WindowMs must be >= 0, got %d", c.WindowMs))
	}
	if c.CommitMs < 0 {
		panic(fmt.Sprintf("runloop: CommitMs must be >= 0, got %d", c.CommitMs))
	}
	if c.CallbackTimeoutMs < 0 {
		panic(fmt.Sprintf("runloop: CallbackTimeoutMs must be >= 0, got %d", c.CallbackTimeoutMs))
	}
}
