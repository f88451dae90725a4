// Package tf implements the Transfer Function abstraction (§4.4): the
// per-CE evaluation logic, a name-keyed registry of constructors, and the
// threshold, multiplicity and averaging reference implementations.
package tf

import (
	"time"

	"github.com/iascore/alarmcore/value"
)

// InitParams carries everything initialize() may need (§4.4): identity for
// logging, the validity time frame the CE computed from refresh period and
// tolerance, the configured property bag, and a template instance number.
// ce.CE always passes 0 as TemplateInstance: the instance resolved for a
// templated DU definition is not carried through to the CE.
type InitParams struct {
	CEID              string
	RunningID         string
	ValidityTimeFrame time.Duration
	Properties        map[string]string
	TemplateInstance  int
}

// Eval is what a TF produces from one evaluation (§4.4): a typed payload
// and mode, optional diagnostic properties, and an optional validity
// constraint subset — the input ids that actually determine the output's
// validity. A nil or empty ValiditySubset means "all inputs decide
// validity". The CE owns identifier, timestamp and validity-tag assembly,
// so Eval never constructs a value.Value itself — this keeps Eval pure
// with respect to CE state.
type Eval struct {
	TypeTag        value.TypeTag
	Payload        any
	Mode           value.Mode
	Properties     map[string]string
	ValiditySubset []string
}

// TransferFunction is the per-CE evaluation contract (§4.4), called on a
// single logical evaluation thread per CE. Initialize failure makes the
// owning CE TFBroken; Eval failure keeps the CE's last output and also
// makes it TFBroken; Shutdown must be idempotent and fast.
type TransferFunction interface {
	Initialize(params InitParams) error

	// Eval computes the next output from inputs and the CE's prior output.
	// An error makes the CE TFBroken.
	Eval(inputs map[string]value.Value, priorOutput value.Value) (Eval, error)

	Shutdown() error
}

// Factory constructs a fresh TransferFunction instance. Registered factories
// must be safe to call repeatedly — one call per CE that references the
// registered name.
type Factory func() TransferFunction
