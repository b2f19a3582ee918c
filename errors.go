package gpuvk

import (
	"errors"
	"fmt"
	"runtime"

	vk "github.com/vulkan-go/vulkan"
)

// ErrorKind classifies a GPUError per the taxonomy the backend surfaces to
// callers. It is not a 1:1 mapping of vk.Result — several Vulkan results
// collapse into the same kind (see §7 of the design).
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindInit
	KindOutOfDeviceMemory
	KindOutOfHostMemory
	KindDeviceLost
	KindValidation
	KindUnsupported
)

func (k ErrorKind) String() string {
	switch k {
	case KindInit:
		return "init failure"
	case KindOutOfDeviceMemory:
		return "out of device memory"
	case KindOutOfHostMemory:
		return "out of host memory"
	case KindDeviceLost:
		return "device lost"
	case KindValidation:
		return "validation"
	case KindUnsupported:
		return "unsupported feature"
	default:
		return "none"
	}
}

// GPUError is the concrete error type returned from backend operations.
// Callers that need to distinguish "out of device memory" from any other
// failure should use errors.Is against ErrOutOfDeviceMemory.
type GPUError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *GPUError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gpuvk: %s: %s: %s", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("gpuvk: %s: %s", e.Op, e.Kind)
}

func (e *GPUError) Unwrap() error { return e.Err }

// ErrOutOfDeviceMemory is the sentinel used by the binding API (§4.1) to
// report exhaustion of the memory-type selector distinctly from any other
// bind failure, so callers can trigger defragmentation or surface the
// condition to the user.
var ErrOutOfDeviceMemory = errors.New("gpuvk: out of device memory")

func newGPUError(kind ErrorKind, op string, err error) *GPUError {
	return &GPUError{Kind: kind, Op: op, Err: err}
}

// isError reports whether ret is a Vulkan failure code.
func isError(ret vk.Result) bool {
	return ret != vk.Success
}

// vkError decodes a vk.Result into a readable error, attributing the kind
// from the taxonomy in §7. Decoding to a human string only happens when the
// caller passes debug=true, matching the teacher's "log only when debug
// mode is enabled" propagation rule.
func vkError(op string, ret vk.Result, debug bool) error {
	if ret == vk.Success {
		return nil
	}
	kind := KindValidation
	switch ret {
	case vk.ErrorOutOfDeviceMemory:
		kind = KindOutOfDeviceMemory
	case vk.ErrorOutOfHostMemory:
		kind = KindOutOfHostMemory
	case vk.ErrorDeviceLost, vk.ErrorSurfaceLost:
		kind = KindDeviceLost
	case vk.ErrorFeatureNotPresent, vk.ErrorExtensionNotPresent:
		kind = KindUnsupported
	}
	var underlying error
	if debug {
		underlying = fmt.Errorf("vk.Result(%d)", int32(ret))
	}
	err := newGPUError(kind, op, underlying)
	if kind == KindOutOfDeviceMemory {
		return fmt.Errorf("%w: %w", ErrOutOfDeviceMemory, err)
	}
	return err
}

// orPanic mirrors the teacher's helper: internal invariant violations panic
// immediately with any supplied finalizers run first. It must never be used
// on a path that a public API call can reach with attacker/user controlled
// input — those paths return errors instead (see validation.go).
func orPanic(err error, finalizers ...func()) {
	if err != nil {
		for _, fn := range finalizers {
			fn()
		}
		panic(err)
	}
}

// checkErr recovers a panic raised by orPanic into *err, for functions that
// install `defer checkErr(&err)`.
func checkErr(err *error) {
	if v := recover(); v != nil {
		if e, ok := v.(error); ok {
			*err = e
			return
		}
		*err = fmt.Errorf("%v", v)
	}
}

func callerFrame(skip int) string {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	name := "unknown"
	if fn != nil {
		name = fn.Name()
	}
	return fmt.Sprintf("%s (%s:%d)", name, file, line)
}
