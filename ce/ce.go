// Package ce implements the Computing Element (§4.5): the state machine
// that wraps one Transfer Function instance, merges inputs, and derives an
// output Value whenever the TF may run.
package ce

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iascore/alarmcore/errors"
	"github.com/iascore/alarmcore/identifier"
	"github.com/iascore/alarmcore/tf"
	"github.com/iascore/alarmcore/value"
)

// State is the CE lifecycle (§4.5).
type State int

const (
	Initializing State = iota
	InputsUndefined
	Healthy
	Slow
	TFBroken
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "INITIALIZING"
	case InputsUndefined:
		return "INPUTS_UNDEFINED"
	case Healthy:
		return "HEALTHY"
	case Slow:
		return "SLOW"
	case TFBroken:
		return "TF_BROKEN"
	case Closing:
		return "CLOSING"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Limits bounds how long a TF may run before the CE is marked Slow, and how
// long it may stay Slow before becoming TFBroken.
type Limits struct {
	MaxTolerableTFTime time.Duration
	MaxSlowDuration    time.Duration
}

// DefaultLimits mirrors commonly used IAS defaults: a TF run over 1s is
// slow, and staying slow for more than 10s breaks the CE.
var DefaultLimits = Limits{
	MaxTolerableTFTime: time.Second,
	MaxSlowDuration:    10 * time.Second,
}

// CE is a Computing Element: one Transfer Function instance plus the state
// machine around it (§4.5). Exported methods are safe for concurrent use,
// though the spec models a single logical evaluation thread per CE — the
// mutex exists so state can be read (logging, stats) from other goroutines
// without racing the evaluation thread.
type CE struct {
	mu sync.Mutex

	id             *identifier.Identifier // the CE node itself (kind CE)
	outputID       *identifier.Identifier // the output IASIO, child of id
	acceptedInputs map[string]struct{}
	inputs         map[string]value.InOut
	output         value.InOut

	tfInstance        tf.TransferFunction
	validityTimeFrame time.Duration
	properties        map[string]string
	templateInstance  int
	limits            Limits
	logger            *slog.Logger

	state     State
	slowSince time.Time
}

// New constructs a CE in state Initializing. id is the CE node's own
// identifier; outputLocal names the IASIO this CE produces, becoming an
// IASIO child of id. acceptedInputIDs must contain no duplicates. A nil
// logger falls back to slog.Default().
func New(id *identifier.Identifier, outputLocal string, outputTypeTag value.TypeTag, acceptedInputIDs []string, tfInstance tf.TransferFunction, validityTimeFrame time.Duration, properties map[string]string, limits Limits, logger *slog.Logger) (*CE, error) {
	if logger == nil {
		logger = slog.Default()
	}
	accepted := make(map[string]struct{}, len(acceptedInputIDs))
	for _, inputID := range acceptedInputIDs {
		if _, dup := accepted[inputID]; dup {
			return nil, errors.WrapInvalid(errors.ErrDuplicateInput, "CE", "New", inputID)
		}
		accepted[inputID] = struct{}{}
	}

	outputID, err := identifier.New(outputLocal, identifier.IASIO, id)
	if err != nil {
		return nil, errors.WrapInvalid(err, "CE", "New", "build output identifier")
	}

	zeroOutputPayload, err := zeroPayload(outputTypeTag)
	if err != nil {
		return nil, errors.WrapInvalid(err, "CE", "New", "determine zero payload for output type")
	}
	initialOutput, err := value.New(outputID, outputTypeTag, zeroOutputPayload, value.Initialization, value.Unreliable,
		value.WithTimestamps(value.Timestamps{DUProduced: time.Now()}))
	if err != nil {
		return nil, errors.WrapFatal(err, "CE", "New", "build initial output")
	}

	inputs := make(map[string]value.InOut, len(acceptedInputIDs))
	for inputID := range accepted {
		inputs[inputID] = value.InOut{}
	}

	return &CE{
		id:                id,
		outputID:          outputID,
		acceptedInputs:    accepted,
		inputs:            inputs,
		output:            value.NewOutput(initialOutput, value.ValidityInfo{Tag: value.Unreliable}),
		tfInstance:        tfInstance,
		validityTimeFrame: validityTimeFrame,
		properties:        properties,
		limits:            limits,
		logger:            logger,
		state:             Initializing,
	}, nil
}

// ID returns the CE node's own identifier.
func (c *CE) ID() *identifier.Identifier { return c.id }

// OutputID returns the identifier of the IASIO this CE produces.
func (c *CE) OutputID() *identifier.Identifier { return c.outputID }

// State returns the current lifecycle state.
func (c *CE) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Output returns the CE's current output InOut.
func (c *CE) Output() value.InOut {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.output
}

// AcceptedInputs returns the set of input ids this CE accepts.
func (c *CE) AcceptedInputs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.acceptedInputs))
	for id := range c.acceptedInputs {
		out = append(out, id)
	}
	return out
}

// Initialize calls the TF's Initialize. On success the CE moves to
// InputsUndefined; on failure it moves to TFBroken.
func (c *CE) Initialize() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.tfInstance.Initialize(tf.InitParams{
		CEID:              c.id.Local(),
		RunningID:         c.id.RunningID(),
		ValidityTimeFrame: c.validityTimeFrame,
		Properties:        c.properties,
		TemplateInstance:  c.templateInstance,
	})
	if err != nil {
		c.logger.Error("transfer function initialize failed", "ce", c.id.Local(), "err", err)
		c.state = TFBroken
		return c.state
	}
	c.state = InputsUndefined
	return c.state
}

// Update merges a batch of received Values into the CE's inputs and, if the
// TF may run, evaluates it (§4.5 update()).
func (c *CE) Update(values []value.Value) (output value.InOut, hasOutput bool, state State, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	cid := uuid.NewString()

	for _, v := range values {
		inputID := v.ID().Local()
		if _, ok := c.acceptedInputs[inputID]; !ok {
			return value.InOut{}, false, c.state, errors.WrapInvalid(errors.ErrUnacceptedInput, "CE", "Update", inputID)
		}
		c.inputs[inputID] = value.NewInput(v, value.ValidityInfo{Tag: v.Validity(), ObservedAt: v.Timestamps().ProductionTime()})
	}

	if c.state == InputsUndefined && c.allInputsReceived() {
		c.state = Healthy
	}

	if c.state != Healthy && c.state != Slow {
		return c.output, c.state != InputsUndefined, c.state, nil
	}

	inputValues := make(map[string]value.Value, len(c.inputs))
	for id, io := range c.inputs {
		inputValues[id] = io.Value
	}

	start := time.Now()
	result, evalErr := c.tfInstance.Eval(inputValues, c.output.Value)
	duration := time.Since(start)

	if evalErr != nil {
		c.logger.Error("transfer function eval failed", "ce", c.id.Local(), "cid", cid, "err", evalErr)
		c.state = TFBroken
		return c.output, true, c.state, nil
	}

	validity, constraintErr := c.resolveValidity(result.ValiditySubset, now)
	if constraintErr != nil {
		c.logger.Error("validity constraint references unknown input", "ce", c.id.Local(), "cid", cid, "err", constraintErr)
		c.state = TFBroken
		return c.output, true, c.state, nil
	}

	opts := []value.Option{value.WithTimestamps(value.Timestamps{DUProduced: now})}
	if len(result.Properties) > 0 {
		opts = append(opts, value.WithProperties(result.Properties))
	}
	updated, buildErr := value.New(c.outputID, result.TypeTag, result.Payload, result.Mode, validity, opts...)
	if buildErr != nil {
		c.logger.Error("failed to build output value", "ce", c.id.Local(), "cid", cid, "err", buildErr)
		c.state = TFBroken
		return c.output, true, c.state, nil
	}

	// A successful eval is always published, even one that pushes the CE into
	// TFBroken for taking too long: §4.5 step 4 is unconditional on success,
	// and only a thrown/errored eval keeps the prior output (§7 "TF eval
	// error: CE enters TFBroken, DU continues with last known output").
	c.output = value.NewOutput(updated, value.ValidityInfo{Tag: validity, ObservedAt: now})
	c.applySlowTracking(duration, now)
	if c.state == TFBroken {
		c.logger.Warn("transfer function exceeded max slow duration", "ce", c.id.Local(), "cid", cid, "duration", duration)
	}

	return c.output, true, c.state, nil
}

// allInputsReceived reports whether every accepted input has a payload.
func (c *CE) allInputsReceived() bool {
	for id := range c.acceptedInputs {
		if c.inputs[id].Payload() == nil {
			return false
		}
	}
	return true
}

// applySlowTracking implements the duration-based Healthy/Slow/TFBroken
// transition of §4.5 step 4.
func (c *CE) applySlowTracking(duration time.Duration, now time.Time) {
	if duration <= c.limits.MaxTolerableTFTime {
		c.slowSince = time.Time{}
		c.state = Healthy
		return
	}

	if c.slowSince.IsZero() {
		c.slowSince = now
		c.state = Slow
		c.logger.Warn("transfer function running slow", "ce", c.id.Local(), "duration", duration)
		return
	}

	if now.Sub(c.slowSince) < c.limits.MaxSlowDuration {
		c.state = Slow
		return
	}

	c.state = TFBroken
}

// resolveValidity computes the output's validity per §4.5 step 4: min over
// either all inputs or the TF's validity-constraint subset, with each
// considered input first downgraded to UNRELIABLE if stale.
func (c *CE) resolveValidity(subset []string, now time.Time) (value.Validity, error) {
	ids := subset
	if len(ids) == 0 {
		ids = make([]string, 0, len(c.inputs))
		for id := range c.inputs {
			ids = append(ids, id)
		}
	}

	result := value.Reliable
	for _, id := range ids {
		io, ok := c.inputs[id]
		if !ok {
			return value.Unreliable, errors.WrapInvalid(errors.ErrValidityConstraint, "CE", "resolveValidity", fmt.Sprintf("unknown input id %q", id))
		}
		info, _ := io.FromBus()
		result = value.MinValidity(result, info.Effective(now, c.validityTimeFrame))
	}
	return result, nil
}

// Shutdown calls the TF's Shutdown then moves the CE to Closed. Idempotent.
func (c *CE) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Closed {
		return nil
	}
	c.state = Closing
	err := c.tfInstance.Shutdown()
	if err != nil {
		c.logger.Warn("transfer function shutdown failed", "ce", c.id.Local(), "err", err)
	}
	c.state = Closed
	return err
}

// zeroPayload returns a zero value for a TypeTag, used to seed a CE's
// initial output before the TF has ever run.
func zeroPayload(tag value.TypeTag) (any, error) {
	switch tag {
	case value.Long:
		return int64(0), nil
	case value.Int:
		return int32(0), nil
	case value.Short:
		return int16(0), nil
	case value.Byte:
		return int8(0), nil
	case value.Double:
		return float64(0), nil
	case value.Float:
		return float32(0), nil
	case value.Boolean:
		return false, nil
	case value.Char:
		return rune(0), nil
	case value.String:
		return "", nil
	case value.Alarm:
		return value.Cleared, nil
	case value.Timestamp:
		return time.Time{}, nil
	case value.ArrayOfLong:
		return []int64{}, nil
	case value.ArrayOfDouble:
		return []float64{}, nil
	default:
		return nil, errors.ErrUnknownTypeTag
	}
}
