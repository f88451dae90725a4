// Package errors provides standardized error handling patterns for the
// alarm evaluation core. It classifies errors into three classes —
// transient, invalid and fatal — so callers can make retry and isolation
// decisions without string matching.
package errors

import (
	"errors"
	"fmt"
)

// Class represents the classification of an error for handling purposes.
type Class int

const (
	// Transient errors are temporary and may be retried (e.g. bus I/O on publish).
	Transient Class = iota
	// Invalid errors indicate bad configuration or input; not retryable.
	Invalid
	// Fatal errors are unrecoverable for the owning component.
	Fatal
)

// String returns the string representation of Class.
func (c Class) String() string {
	switch c {
	case Transient:
		return "transient"
	case Invalid:
		return "invalid"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for conditions the evaluation core raises.
var (
	// Identifier errors (§4.1).
	ErrEmptyLocalID      = errors.New("identifier: local id cannot be empty")
	ErrSeparatorInLocal  = errors.New("identifier: local id contains the hierarchy separator")
	ErrUnexpectedParent  = errors.New("identifier: unexpected parent kind")
	ErrAncestorNotFound  = errors.New("identifier: no ancestor of the requested kind")

	// Value codec errors (§4.2).
	ErrMalformedWire   = errors.New("codec: malformed wire payload")
	ErrUnknownTypeTag  = errors.New("codec: unknown value type tag")
	ErrPayloadMismatch = errors.New("codec: payload does not match its type tag")

	// Topology errors (§4.3).
	ErrDuplicateOutput  = errors.New("topology: duplicate computing element output id")
	ErrOutputNotFound   = errors.New("topology: distributed unit output id not produced by any computing element")
	ErrOutputAmbiguous  = errors.New("topology: distributed unit output id produced by more than one computing element")
	ErrOrphanedOutput   = errors.New("topology: computing element output is never consumed")
	ErrCyclicTopology   = errors.New("topology: cycle detected among computing elements")
	ErrUnlevelableGraph = errors.New("topology: computing element could not be assigned to an evaluation level")

	// Transfer function errors (§4.4, §7).
	ErrTFInitFailed        = errors.New("transfer function: initialize failed")
	ErrTFEvalFailed        = errors.New("transfer function: eval failed")
	ErrTFNotRegistered     = errors.New("transfer function: class name is not registered")
	ErrTFAlreadyRegistered = errors.New("transfer function: class name is already registered")
	ErrValidityConstraint  = errors.New("transfer function: validity constraint references an unknown input id")
	ErrTypeMismatch        = errors.New("value: payload type does not match the declared type tag")

	// Computing element errors (§4.5, §7).
	ErrUnacceptedInput = errors.New("computing element: input id is not in the accepted-input set")
	ErrDuplicateInput  = errors.New("computing element: duplicate accepted input id")
	ErrTFBroken        = errors.New("computing element: transfer function is broken")
	ErrCEClosed        = errors.New("computing element: already closed")

	// Distributed unit / supervisor errors (§4.6, §4.7, §7).
	ErrAlreadyStarted     = errors.New("already started")
	ErrNotStarted         = errors.New("not started")
	ErrSubscribeFailed    = errors.New("bus: subscribe initialization failed")
	ErrPublishFailed      = errors.New("bus: publish failed")
	ErrConfigNotFound     = errors.New("configuration: distributed unit definition not found")
	ErrInvalidConfig      = errors.New("configuration: invalid definition")
	ErrInstanceOutOfRange = errors.New("configuration: template instance number out of bounds")
)

// Classified wraps an error with its classification plus the component and
// operation that raised it.
type Classified struct {
	Class     Class
	Err       error
	Component string
	Operation string
}

// Error implements the error interface.
func (c *Classified) Error() string {
	return c.Err.Error()
}

// Unwrap returns the underlying error.
func (c *Classified) Unwrap() error {
	return c.Err
}

func classified(class Class, err error, component, operation string) *Classified {
	return &Classified{Class: class, Err: err, Component: component, Operation: operation}
}

// Wrap annotates err with "component.operation: action failed: %w" and keeps
// no classification. Returns nil if err is nil.
func Wrap(err error, component, operation, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, operation, action, err)
}

// WrapTransient wraps err as Transient.
func WrapTransient(err error, component, operation, action string) error {
	if err == nil {
		return nil
	}
	return classified(Transient, Wrap(err, component, operation, action), component, operation)
}

// WrapInvalid wraps err as Invalid.
func WrapInvalid(err error, component, operation, action string) error {
	if err == nil {
		return nil
	}
	return classified(Invalid, Wrap(err, component, operation, action), component, operation)
}

// WrapFatal wraps err as Fatal.
func WrapFatal(err error, component, operation, action string) error {
	if err == nil {
		return nil
	}
	return classified(Fatal, Wrap(err, component, operation, action), component, operation)
}

// ClassOf returns the classification of err, defaulting to Fatal for
// unclassified errors since the caller asked for a decision and an unknown
// error should not be silently retried.
func ClassOf(err error) Class {
	var ce *Classified
	if errors.As(err, &ce) {
		return ce.Class
	}
	return Fatal
}

// IsTransient reports whether err is classified Transient.
func IsTransient(err error) bool { return err != nil && ClassOf(err) == Transient }

// IsInvalid reports whether err is classified Invalid.
func IsInvalid(err error) bool { return err != nil && ClassOf(err) == Invalid }

// IsFatal reports whether err is classified Fatal.
func IsFatal(err error) bool { return err != nil && ClassOf(err) == Fatal }
