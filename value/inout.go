package value

import "time"

// ValidityInfo carries a validity tag together with the instant it was
// observed, so the time-based downgrade rule (§3, §9 design note) is
// computable locally without assuming synchronized clocks across hosts.
type ValidityInfo struct {
	Tag        Validity
	ObservedAt time.Time
}

// Effective applies the validity time rule (§3): a value is RELIABLE only
// if its production timestamp is younger than validityTimeFrame relative to
// now; otherwise it is downgraded to UNRELIABLE.
func (vi ValidityInfo) Effective(now time.Time, validityTimeFrame time.Duration) Validity {
	if vi.Tag == Unreliable {
		return Unreliable
	}
	if vi.ObservedAt.IsZero() {
		return Unreliable
	}
	if now.Sub(vi.ObservedAt) >= validityTimeFrame {
		return Unreliable
	}
	return Reliable
}

// InOut is a Computing Element's working copy of a Value (§3). Exactly one
// of FromBus / FromInputs is populated: FromBus when this InOut holds one
// of the CE's inputs, FromInputs when it holds the CE's output.
type InOut struct {
	Value
	fromBus    *ValidityInfo
	fromInputs *ValidityInfo
}

// NewInput wraps v as an input InOut, carrying from-bus validity info.
func NewInput(v Value, info ValidityInfo) InOut {
	i := info
	return InOut{Value: v, fromBus: &i}
}

// NewOutput wraps v as an output InOut, carrying from-inputs validity info.
func NewOutput(v Value, info ValidityInfo) InOut {
	i := info
	return InOut{Value: v, fromInputs: &i}
}

// IsInput reports whether this InOut plays the input role.
func (io InOut) IsInput() bool { return io.fromBus != nil }

// IsOutput reports whether this InOut plays the output role.
func (io InOut) IsOutput() bool { return io.fromInputs != nil }

// FromBus returns the from-bus validity info and true if this is an input.
func (io InOut) FromBus() (ValidityInfo, bool) {
	if io.fromBus == nil {
		return ValidityInfo{}, false
	}
	return *io.fromBus, true
}

// FromInputs returns the from-inputs validity info and true if this is an output.
func (io InOut) FromInputs() (ValidityInfo, bool) {
	if io.fromInputs == nil {
		return ValidityInfo{}, false
	}
	return *io.fromInputs, true
}

// WithFromBus returns an input InOut holding v with the given from-bus
// validity info (the same as NewInput(v, info)).
func (io InOut) WithFromBus(v Value, info ValidityInfo) InOut {
	return NewInput(v, info)
}

// WithFromInputs returns an output InOut holding v with the given
// from-inputs validity info (the same as NewOutput(v, info)).
func (io InOut) WithFromInputs(v Value, info ValidityInfo) InOut {
	return NewOutput(v, info)
}
