package tf

import (
	"fmt"
	"strconv"

	"github.com/iascore/alarmcore/errors"
	"github.com/iascore/alarmcore/value"
)

// Threshold is the min/max threshold reference TF (§4.4). Output type is
// ALARM. It expects exactly one numeric input, coerced to double, and
// applies a hysteresis contract around the four configured bounds.
type Threshold struct {
	highOn, highOff float64
	lowOn, lowOff   float64
	priority        value.AlarmPriority
}

// Initialize parses and validates the threshold TF's properties.
func (t *Threshold) Initialize(params InitParams) error {
	highOn, err := requireFloat(params.Properties, "high_on")
	if err != nil {
		return err
	}
	highOff, err := requireFloat(params.Properties, "high_off")
	if err != nil {
		return err
	}
	lowOn, err := requireFloat(params.Properties, "low_on")
	if err != nil {
		return err
	}
	lowOff, err := requireFloat(params.Properties, "low_off")
	if err != nil {
		return err
	}
	priorityStr, ok := params.Properties["alarm_set_priority"]
	if !ok {
		return errors.WrapInvalid(errors.ErrTFInitFailed, "Threshold", "Initialize", "missing alarm_set_priority")
	}
	priority, ok := value.ParseAlarmPriority(priorityStr)
	if !ok || priority == value.Cleared {
		return errors.WrapInvalid(errors.ErrTFInitFailed, "Threshold", "Initialize", "alarm_set_priority must be a set priority")
	}

	if !(highOn >= highOff) {
		return errors.WrapInvalid(errors.ErrTFInitFailed, "Threshold", "Initialize", "high_on must be >= high_off")
	}
	if !(lowOff >= lowOn) {
		return errors.WrapInvalid(errors.ErrTFInitFailed, "Threshold", "Initialize", "low_off must be >= low_on")
	}
	if !(lowOff <= highOff) {
		return errors.WrapInvalid(errors.ErrTFInitFailed, "Threshold", "Initialize", "low_off must be <= high_off")
	}

	t.highOn, t.highOff, t.lowOn, t.lowOff, t.priority = highOn, highOff, lowOn, lowOff, priority
	return nil
}

// Eval applies the hysteresis contract (§4.4, testable property 11): the
// alarm raises at or beyond the outer bounds (high_on, low_on); once raised
// it stays set until the value passes strictly back inside the inner band
// (low_off, high_off), where it clears.
func (t *Threshold) Eval(inputs map[string]value.Value, priorOutput value.Value) (Eval, error) {
	if len(inputs) != 1 {
		return Eval{}, errors.WrapInvalid(errors.ErrTypeMismatch, "Threshold", "Eval", "expects exactly one input")
	}

	var v value.Value
	for _, in := range inputs {
		v = in
	}
	reading, err := coerceFloat(v)
	if err != nil {
		return Eval{}, errors.WrapInvalid(err, "Threshold", "Eval", "coerce input to double")
	}

	wasSet := false
	if priorOutput.TypeTag() == value.Alarm {
		if p, ok := priorOutput.Payload().(value.AlarmPriority); ok {
			wasSet = p.IsSet()
		}
	}

	var set bool
	switch {
	case wasSet:
		set = !(reading > t.lowOff && reading < t.highOff)
	default:
		set = reading >= t.highOn || reading <= t.lowOn
	}

	priority := value.Cleared
	if set {
		priority = t.priority
	}

	return Eval{
		TypeTag:    value.Alarm,
		Payload:    priority,
		Mode:       value.Operational,
		Properties: map[string]string{"actualValue": strconv.FormatFloat(reading, 'g', -1, 64)},
	}, nil
}

// Shutdown is a no-op: Threshold holds no resources.
func (t *Threshold) Shutdown() error { return nil }

func requireFloat(props map[string]string, key string) (float64, error) {
	raw, ok := props[key]
	if !ok {
		return 0, errors.WrapInvalid(errors.ErrTFInitFailed, "Threshold", "Initialize", fmt.Sprintf("missing property %q", key))
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.WrapInvalid(errors.ErrTFInitFailed, "Threshold", "Initialize", fmt.Sprintf("property %q is not numeric", key))
	}
	return f, nil
}

// coerceFloat converts a numeric Value payload to float64.
func coerceFloat(v value.Value) (float64, error) {
	switch p := v.Payload().(type) {
	case float64:
		return p, nil
	case float32:
		return float64(p), nil
	case int64:
		return float64(p), nil
	case int32:
		return float64(p), nil
	case int16:
		return float64(p), nil
	case int8:
		return float64(p), nil
	default:
		return 0, errors.ErrTypeMismatch
	}
}
