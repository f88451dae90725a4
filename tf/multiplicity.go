package tf

import (
	"strconv"

	"github.com/iascore/alarmcore/errors"
	"github.com/iascore/alarmcore/value"
)

// Multiplicity is the multiplicity reference TF (§4.4): output is SET at
// the configured priority once at least `threshold` inputs are SET alarms,
// else CLEARED. Rejects non-alarm inputs.
type Multiplicity struct {
	threshold int
	priority  value.AlarmPriority
}

// Initialize parses and validates the multiplicity TF's properties.
func (m *Multiplicity) Initialize(params InitParams) error {
	raw, ok := params.Properties["threshold"]
	if !ok {
		return errors.WrapInvalid(errors.ErrTFInitFailed, "Multiplicity", "Initialize", "missing threshold")
	}
	threshold, err := strconv.Atoi(raw)
	if err != nil || threshold < 1 {
		return errors.WrapInvalid(errors.ErrTFInitFailed, "Multiplicity", "Initialize", "threshold must be an integer >= 1")
	}

	priorityStr, ok := params.Properties["alarm_set_priority"]
	if !ok {
		return errors.WrapInvalid(errors.ErrTFInitFailed, "Multiplicity", "Initialize", "missing alarm_set_priority")
	}
	priority, ok := value.ParseAlarmPriority(priorityStr)
	if !ok || priority == value.Cleared {
		return errors.WrapInvalid(errors.ErrTFInitFailed, "Multiplicity", "Initialize", "alarm_set_priority must be a set priority")
	}

	m.threshold, m.priority = threshold, priority
	return nil
}

// Eval counts SET alarm inputs and compares against the configured threshold.
func (m *Multiplicity) Eval(inputs map[string]value.Value, priorOutput value.Value) (Eval, error) {
	setCount := 0
	for _, in := range inputs {
		if in.TypeTag() != value.Alarm {
			return Eval{}, errors.WrapInvalid(errors.ErrTypeMismatch, "Multiplicity", "Eval", "expects only ALARM inputs")
		}
		p, ok := in.Payload().(value.AlarmPriority)
		if !ok {
			return Eval{}, errors.WrapInvalid(errors.ErrTypeMismatch, "Multiplicity", "Eval", "malformed alarm payload")
		}
		if p.IsSet() {
			setCount++
		}
	}

	priority := value.Cleared
	if setCount >= m.threshold {
		priority = m.priority
	}

	return Eval{
		TypeTag: value.Alarm,
		Payload: priority,
		Mode:    value.Operational,
	}, nil
}

// Shutdown is a no-op: Multiplicity holds no resources.
func (m *Multiplicity) Shutdown() error { return nil }
