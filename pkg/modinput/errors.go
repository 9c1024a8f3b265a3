package modinput

import (
	"errors"
	"fmt"

	"github.com/bft-labs/modinput/pkg/definition"
	"github.com/bft-labs/modinput/pkg/xmlcodec"
	"github.com/bft-labs/modinput/pkg/xmlstream"
)

// Errors surfaced by Run. They can be checked with errors.Is.
var (
	// ErrValidationRejected is returned when the input rejects a proposed
	// configuration in validate mode.
	ErrValidationRejected = errors.New("modinput: validation rejected")

	// ErrInstanceFailure matches every *InstanceError.
	ErrInstanceFailure = errors.New("modinput: instance failed")

	// ErrNoScheme is returned in scheme mode when the input has no scheme.
	ErrNoScheme = errors.New("modinput: input has no scheme")

	// ErrConflictingModes is returned when both scheme and validate are requested.
	ErrConflictingModes = errors.New("modinput: --scheme and --validate-arguments are mutually exclusive")

	// ErrInvalidTransition is returned for a lifecycle transition the state
	// machine does not allow.
	ErrInvalidTransition = errors.New("modinput: invalid state transition")

	// ErrPluginFailure wraps a plugin initialization error.
	ErrPluginFailure = errors.New("modinput: plugin failed")

	ErrReadTimeout       = xmlstream.ErrReadTimeout
	ErrMalformedDocument = xmlcodec.ErrMalformedDocument
	ErrDecode            = definition.ErrDecode
	ErrWriteFailure      = xmlstream.ErrWriteFailure
)

// Phase names the step of an instance task that failed.
type Phase string

const (
	PhaseStart  Phase = "start"
	PhaseStream Phase = "stream"
	PhaseEnd    Phase = "end"
)

// InstanceError reports the failure of one input instance during streaming.
type InstanceError struct {
	Name  string
	Phase Phase
	Err   error
}

func (e *InstanceError) Error() string {
	return fmt.Sprintf("instance %q failed in %s: %v", e.Name, e.Phase, e.Err)
}

func (e *InstanceError) Unwrap() error { return e.Err }

// Is makes every InstanceError match ErrInstanceFailure.
func (e *InstanceError) Is(target error) bool {
	return target == ErrInstanceFailure
}

// PanicError is the Err of an InstanceError produced by a recovered panic.
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// InstanceErrors extracts every *InstanceError joined into err.
func InstanceErrors(err error) []*InstanceError {
	var out []*InstanceError
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if ie, ok := err.(*InstanceError); ok {
			out = append(out, ie)
			return
		}
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, e := range u.Unwrap() {
				walk(e)
			}
		case interface{ Unwrap() error }:
			walk(u.Unwrap())
		}
	}
	walk(err)
	return out
}

// ExitCode maps the result of Run to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
