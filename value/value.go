package value

import (
	"fmt"
	"time"

	"github.com/iascore/alarmcore/errors"
	"github.com/iascore/alarmcore/identifier"
)

// Timestamps holds the up to seven processing-hop marks a Value may carry.
// A zero time.Time means the hop is absent.
type Timestamps struct {
	PluginProduced     time.Time
	SentToConverter    time.Time
	ReceivedFromPlugin time.Time
	ConverterProduced  time.Time
	SentToBus          time.Time
	ReadFromBus        time.Time
	DUProduced         time.Time
}

// Value is the immutable unit of data flow (§3). Construct with New; once
// built, a Value's fields never change — derived copies use WithX helpers
// that return a new Value.
type Value struct {
	id         *identifier.Identifier
	typeTag    TypeTag
	payload    any
	mode       Mode
	validity   Validity
	dependents []string          // nil means absent, matches the wire codec's omission rule
	properties map[string]string // nil means absent
	ts         Timestamps
}

// Option configures optional Value fields at construction.
type Option func(*Value)

// WithTimestamps overrides the processing-hop timestamps.
func WithTimestamps(ts Timestamps) Option {
	return func(v *Value) { v.ts = ts }
}

// WithDependents attaches the full running ids of the inputs that
// contributed to this Value.
func WithDependents(ids ...string) Option {
	return func(v *Value) {
		if len(ids) == 0 {
			return
		}
		cp := make([]string, len(ids))
		copy(cp, ids)
		v.dependents = cp
	}
}

// WithProperties attaches diagnostic string properties (e.g. "actualValue").
func WithProperties(props map[string]string) Option {
	return func(v *Value) {
		if len(props) == 0 {
			return
		}
		cp := make(map[string]string, len(props))
		for k, val := range props {
			cp[k] = val
		}
		v.properties = cp
	}
}

// New constructs a Value, validating that payload matches typeTag (§3
// invariant: "each payload must match its tag"). Exactly one of
// Timestamps.PluginProduced / Timestamps.DUProduced may be set; New rejects
// both set and neither set.
func New(id *identifier.Identifier, typeTag TypeTag, payload any, mode Mode, validity Validity, opts ...Option) (Value, error) {
	if err := checkPayload(typeTag, payload); err != nil {
		return Value{}, errors.WrapInvalid(err, "Value", "New", "validate payload against type tag")
	}

	v := Value{
		id:       id,
		typeTag:  typeTag,
		payload:  payload,
		mode:     mode,
		validity: validity,
	}
	for _, opt := range opts {
		opt(&v)
	}

	pluginSet := !v.ts.PluginProduced.IsZero()
	duSet := !v.ts.DUProduced.IsZero()
	if pluginSet == duSet {
		return Value{}, errors.WrapInvalid(errors.ErrTypeMismatch, "Value", "New",
			"exactly one of plugin-produced or DU-produced timestamps must be set")
	}

	return v, nil
}

// checkPayload verifies payload's Go type matches what typeTag requires.
func checkPayload(tag TypeTag, payload any) error {
	ok := false
	switch tag {
	case Long:
		_, ok = payload.(int64)
	case Int:
		_, ok = payload.(int32)
	case Short:
		_, ok = payload.(int16)
	case Byte:
		_, ok = payload.(int8)
	case Double:
		_, ok = payload.(float64)
	case Float:
		_, ok = payload.(float32)
	case Boolean:
		_, ok = payload.(bool)
	case Char:
		_, ok = payload.(rune)
	case String:
		_, ok = payload.(string)
	case Alarm:
		_, ok = payload.(AlarmPriority)
	case Timestamp:
		_, ok = payload.(time.Time)
	case ArrayOfLong:
		_, ok = payload.([]int64)
	case ArrayOfDouble:
		_, ok = payload.([]float64)
	default:
		return fmt.Errorf("%w: %v", errors.ErrUnknownTypeTag, tag)
	}
	if !ok {
		return fmt.Errorf("%w: tag %s got %T", errors.ErrPayloadMismatch, tag, payload)
	}
	return nil
}

// ID returns the full running Identifier this Value belongs to.
func (v Value) ID() *identifier.Identifier { return v.id }

// TypeTag returns the payload's declared type.
func (v Value) TypeTag() TypeTag { return v.typeTag }

// Payload returns the raw payload; callers type-assert per TypeTag.
func (v Value) Payload() any { return v.payload }

// Mode returns the operational mode.
func (v Value) Mode() Mode { return v.mode }

// Validity returns the stored validity tag (before any age-based downgrade).
func (v Value) Validity() Validity { return v.validity }

// Dependents returns the contributing-input ids, or nil if absent.
func (v Value) Dependents() []string {
	if v.dependents == nil {
		return nil
	}
	cp := make([]string, len(v.dependents))
	copy(cp, v.dependents)
	return cp
}

// Properties returns the diagnostic properties, or nil if absent.
func (v Value) Properties() map[string]string {
	if v.properties == nil {
		return nil
	}
	cp := make(map[string]string, len(v.properties))
	for k, val := range v.properties {
		cp[k] = val
	}
	return cp
}

// Timestamps returns the processing-hop timestamps.
func (v Value) Timestamps() Timestamps { return v.ts }

// WithValidity returns a copy of v with a different validity tag. Used when
// a consumer applies the age-based downgrade rule without mutating the
// original Value (§3: "downgraded to UNRELIABLE on consumption").
func (v Value) WithValidity(validity Validity) Value {
	cp := v
	cp.validity = validity
	return cp
}

// WithMode returns a copy of v with a different operational mode.
func (v Value) WithMode(mode Mode) Value {
	cp := v
	cp.mode = mode
	return cp
}

// WithDependents returns a copy of v with a different dependent-id set, used
// by the DU to attach the full-running-ids of the inputs that fed a round
// of propagation (§4.6 step 3).
func (v Value) WithDependents(ids ...string) Value {
	cp := v
	if len(ids) == 0 {
		cp.dependents = nil
		return cp
	}
	dep := make([]string, len(ids))
	copy(dep, ids)
	cp.dependents = dep
	return cp
}

// ProductionTime returns whichever of PluginProduced / DUProduced is set —
// the single "most recent production timestamp" the validity time rule
// (§3) and the CE's per-input age downgrade (§4.5) both reference.
func (ts Timestamps) ProductionTime() time.Time {
	if !ts.DUProduced.IsZero() {
		return ts.DUProduced
	}
	return ts.PluginProduced
}

// Equal reports whether two Values carry identical fields, used by codec
// round-trip tests. Payload equality is by Go ==, which is sufficient for
// every TypeTag except the array tags; those are compared element-wise.
func (v Value) Equal(other Value) bool {
	if !v.id.Equal(other.id) || v.typeTag != other.typeTag || v.mode != other.mode || v.validity != other.validity {
		return false
	}
	if !payloadEqual(v.typeTag, v.payload, other.payload) {
		return false
	}
	if !timestampsEqual(v.ts, other.ts) {
		return false
	}
	if len(v.dependents) != len(other.dependents) {
		return false
	}
	for i := range v.dependents {
		if v.dependents[i] != other.dependents[i] {
			return false
		}
	}
	if len(v.properties) != len(other.properties) {
		return false
	}
	for k, val := range v.properties {
		if other.properties[k] != val {
			return false
		}
	}
	return true
}

func timestampsEqual(a, b Timestamps) bool {
	return a.PluginProduced.Equal(b.PluginProduced) &&
		a.SentToConverter.Equal(b.SentToConverter) &&
		a.ReceivedFromPlugin.Equal(b.ReceivedFromPlugin) &&
		a.ConverterProduced.Equal(b.ConverterProduced) &&
		a.SentToBus.Equal(b.SentToBus) &&
		a.ReadFromBus.Equal(b.ReadFromBus) &&
		a.DUProduced.Equal(b.DUProduced)
}

func payloadEqual(tag TypeTag, a, b any) bool {
	switch tag {
	case ArrayOfLong:
		av, aok := a.([]int64)
		bv, bok := b.([]int64)
		if !aok || !bok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case ArrayOfDouble:
		av, aok := a.([]float64)
		bv, bok := b.([]float64)
		if !aok || !bok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
