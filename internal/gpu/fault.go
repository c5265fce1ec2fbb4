package gpu

// Fault enumerates the ways GPU resource construction/resize can fail.
// The teacher's manager.go panics on these (CreateBuffer/CreateShaderModule
// errors); here every constructor returns one of these instead of
// panicking, so a lost device or failed allocation is recoverable
// instead of fatal.
type Fault int

const (
	FaultNone Fault = iota
	FaultDeviceLost
	FaultAllocFailed
	FaultShaderCompileFailed
)

func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultDeviceLost:
		return "device lost"
	case FaultAllocFailed:
		return "allocation failed"
	case FaultShaderCompileFailed:
		return "shader compile failed"
	default:
		return "unknown fault"
	}
}

// Error wraps a Fault with the underlying cause so callers can log it
// while still switching on the Fault kind.
type Error struct {
	Kind  Fault
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Kind.String() + ": " + e.Cause.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }
