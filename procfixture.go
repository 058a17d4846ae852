package procfixture

import (
	"fmt"
	"strings"
	"time"
)

// Server defaults
const (
	// DefaultAddr is the listen address of the fault service
	DefaultAddr = "localhost:5032"

	// DefaultShutdownTimeout bounds graceful shutdown of the HTTP server
	DefaultShutdownTimeout = 5 * time.Second

	// DefaultExitCode is the status the terminate fault exits with
	DefaultExitCode = 0

	// MetricsPath serves the prometheus registry of the server
	MetricsPath = "/metrics"

	// HealthPath answers liveness probes from the test harness
	HealthPath = "/healthz"

	// RequestIDHeader carries the request id in and out of the service
	RequestIDHeader = "X-Request-ID"
)

// Fault sizing defaults
const (
	// DefaultStressWorkers is the number of OS threads started by the stress fault
	DefaultStressWorkers = 50

	// DefaultStressIterations is the raise/recover loop count of each stress worker
	DefaultStressIterations = 50

	// DefaultSmallObjectCount is the number of small buffers retained before promotion
	DefaultSmallObjectCount = 1000

	// DefaultSmallObjectSize is the size in bytes of each small buffer
	DefaultSmallObjectSize = 10000

	// DefaultPromotionCollections is the number of collections run to promote small buffers
	DefaultPromotionCollections = 3

	// DefaultLargeObjectCount is the number of large buffers allocated
	DefaultLargeObjectCount = 3

	// DefaultLargeObjectSize is the size in bytes of each large and pinned buffer
	DefaultLargeObjectSize = 15000000

	// DefaultPinnedObjectCount is the number of pinned (memory locked) buffers
	DefaultPinnedObjectCount = 3
)

// Fault identifies one fault-injection stimulus exposed by the service
type Fault int

const (
	// FaultUnknown represents an unknown fault
	FaultUnknown Fault = iota
	// FaultThrowInvalidOperation raises an unhandled InvalidOperationError
	FaultThrowInvalidOperation
	// FaultFullGC forces a blocking full garbage collection
	FaultFullGC
	// FaultMemIncrease allocates buffers across heap generations and pinned memory
	FaultMemIncrease
	// FaultThrowAndCatch raises and recovers an InvalidOperationError, then raises another
	FaultThrowAndCatch
	// FaultThrowArgument raises an unhandled ArgumentError
	FaultThrowArgument
	// FaultTerminate exits the process
	FaultTerminate
	// FaultStress starts OS-thread workers that raise and recover errors in a loop
	FaultStress
)

// Fault string constants
const (
	faultUnknownStr               = "unknown"
	faultThrowInvalidOperationStr = "throwinvalidoperation"
	faultFullGCStr                = "fullgc"
	faultMemIncreaseStr           = "memincrease"
	faultThrowAndCatchStr         = "throwandcatchinvalidoperation"
	faultThrowArgumentStr         = "throwargumentexception"
	faultTerminateStr             = "terminate"
	faultStressStr                = "stress"
)

// Faults returns every known fault in catalogue order
func Faults() []Fault {
	return []Fault{
		FaultThrowInvalidOperation,
		FaultFullGC,
		FaultMemIncrease,
		FaultThrowAndCatch,
		FaultThrowArgument,
		FaultTerminate,
		FaultStress,
	}
}

// String returns the string representation of a Fault
func (f Fault) String() string {
	switch f {
	case FaultThrowInvalidOperation:
		return faultThrowInvalidOperationStr
	case FaultFullGC:
		return faultFullGCStr
	case FaultMemIncrease:
		return faultMemIncreaseStr
	case FaultThrowAndCatch:
		return faultThrowAndCatchStr
	case FaultThrowArgument:
		return faultThrowArgumentStr
	case FaultTerminate:
		return faultTerminateStr
	case FaultStress:
		return faultStressStr
	default:
		return faultUnknownStr
	}
}

// Path returns the HTTP route of the fault, or "" for FaultUnknown
func (f Fault) Path() string {
	if f.String() == faultUnknownStr {
		return ""
	}
	return "/" + f.String()
}

// Raises reports whether the fault ends its request with an unhandled error
func (f Fault) Raises() bool {
	switch f {
	case FaultThrowInvalidOperation, FaultThrowAndCatch, FaultThrowArgument:
		return true
	default:
		return false
	}
}

// ParseFault accepts a fault name or its route path, case-insensitively
func ParseFault(s string) (Fault, error) {
	name := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "/"))
	for _, f := range Faults() {
		if f.String() == name {
			return f, nil
		}
	}
	return FaultUnknown, fmt.Errorf("%w: %q", ErrUnknownFault, s)
}
