// Package value implements the Value and InOut types (§3) that flow through
// the alarm evaluation graph: an immutable typed payload carrying an
// operational mode, a validity tag and up to seven processing-hop
// timestamps.
package value

// TypeTag is the closed set of payload types a Value may carry.
type TypeTag int

const (
	Long TypeTag = iota
	Int
	Short
	Byte
	Double
	Float
	Boolean
	Char
	String
	Alarm
	Timestamp
	ArrayOfLong
	ArrayOfDouble
)

func (t TypeTag) String() string {
	switch t {
	case Long:
		return "LONG"
	case Int:
		return "INT"
	case Short:
		return "SHORT"
	case Byte:
		return "BYTE"
	case Double:
		return "DOUBLE"
	case Float:
		return "FLOAT"
	case Boolean:
		return "BOOLEAN"
	case Char:
		return "CHAR"
	case String:
		return "STRING"
	case Alarm:
		return "ALARM"
	case Timestamp:
		return "TIMESTAMP"
	case ArrayOfLong:
		return "ARRAY-OF-LONG"
	case ArrayOfDouble:
		return "ARRAY-OF-DOUBLE"
	default:
		return "UNKNOWN"
	}
}

// ParseTypeTag reverses TypeTag.String, returning false for unknown tags.
func ParseTypeTag(s string) (TypeTag, bool) {
	for _, t := range []TypeTag{Long, Int, Short, Byte, Double, Float, Boolean, Char, String, Alarm, Timestamp, ArrayOfLong, ArrayOfDouble} {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}

// AlarmPriority is the closed set of alarm set-priorities. Cleared is the
// only "not set" value.
type AlarmPriority int

const (
	Cleared AlarmPriority = iota
	SetLow
	SetMedium
	SetHigh
	SetCritical
)

func (p AlarmPriority) String() string {
	switch p {
	case Cleared:
		return "CLEARED"
	case SetLow:
		return "SET_LOW"
	case SetMedium:
		return "SET_MEDIUM"
	case SetHigh:
		return "SET_HIGH"
	case SetCritical:
		return "SET_CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// IsSet reports whether the priority represents a raised alarm.
func (p AlarmPriority) IsSet() bool { return p != Cleared }

// ParseAlarmPriority reverses AlarmPriority.String.
func ParseAlarmPriority(s string) (AlarmPriority, bool) {
	for _, p := range []AlarmPriority{Cleared, SetLow, SetMedium, SetHigh, SetCritical} {
		if p.String() == s {
			return p, true
		}
	}
	return 0, false
}

// Mode is the closed set of operational modes.
type Mode int

const (
	Startup Mode = iota
	Initialization
	Closing
	ShuttedDown
	Maintenance
	Operational
	Degraded
	UnknownMode
)

func (m Mode) String() string {
	switch m {
	case Startup:
		return "STARTUP"
	case Initialization:
		return "INITIALIZATION"
	case Closing:
		return "CLOSING"
	case ShuttedDown:
		return "SHUTTEDDOWN"
	case Maintenance:
		return "MAINTENANCE"
	case Operational:
		return "OPERATIONAL"
	case Degraded:
		return "DEGRADED"
	case UnknownMode:
		return "UNKNOWN"
	default:
		return "UNKNOWN"
	}
}

// ParseMode reverses Mode.String.
func ParseMode(s string) (Mode, bool) {
	for _, m := range []Mode{Startup, Initialization, Closing, ShuttedDown, Maintenance, Operational, Degraded, UnknownMode} {
		if m.String() == s {
			return m, true
		}
	}
	return 0, false
}

// Validity is {RELIABLE, UNRELIABLE}.
type Validity int

const (
	Reliable Validity = iota
	Unreliable
)

func (v Validity) String() string {
	if v == Reliable {
		return "RELIABLE"
	}
	return "UNRELIABLE"
}

// ParseValidity reverses Validity.String.
func ParseValidity(s string) (Validity, bool) {
	switch s {
	case "RELIABLE":
		return Reliable, true
	case "UNRELIABLE":
		return Unreliable, true
	default:
		return 0, false
	}
}

// MinValidity combines two validity tags: UNRELIABLE unless both are
// RELIABLE (§3 combination rule).
func MinValidity(a, b Validity) Validity {
	if a == Reliable && b == Reliable {
		return Reliable
	}
	return Unreliable
}

// MinValidityAll combines a non-empty slice of validity tags by MinValidity.
// Returns Unreliable for an empty slice since there is nothing to vouch for
// reliability.
func MinValidityAll(vs []Validity) Validity {
	if len(vs) == 0 {
		return Unreliable
	}
	result := Reliable
	for _, v := range vs {
		result = MinValidity(result, v)
	}
	return result
}
