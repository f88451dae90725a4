package codec

import (
	"encoding/json"
	"time"

	"github.com/iascore/alarmcore/errors"
	"github.com/iascore/alarmcore/pkg/timestamp"
)

// Status is a Supervisor's heartbeat status (§6).
type Status int

const (
	StartingUp Status = iota
	Running
	Paused
	Exiting
	ShutDown
	PartiallyRunning
)

func (s Status) String() string {
	switch s {
	case StartingUp:
		return "STARTING_UP"
	case Running:
		return "RUNNING"
	case Paused:
		return "PAUSED"
	case Exiting:
		return "EXITING"
	case ShutDown:
		return "SHUT_DOWN"
	case PartiallyRunning:
		return "PARTIALLY_RUNNING"
	default:
		return "UNKNOWN"
	}
}

// ParseStatus reverses Status.String.
func ParseStatus(s string) (Status, bool) {
	for _, st := range []Status{StartingUp, Running, Paused, Exiting, ShutDown, PartiallyRunning} {
		if st.String() == s {
			return st, true
		}
	}
	return 0, false
}

// Heartbeat is a Supervisor's liveness announcement (§6).
type Heartbeat struct {
	ID        string
	Timestamp time.Time
	Status    Status
}

// EncodeHeartbeat renders h as the §6 heartbeat JSON object.
func EncodeHeartbeat(h Heartbeat) ([]byte, error) {
	w := heartbeatWire{
		ID:        h.ID,
		Timestamp: timestamp.Format(h.Timestamp),
		Status:    h.Status.String(),
	}
	out, err := json.Marshal(w)
	if err != nil {
		return nil, errors.WrapFatal(err, "codec", "EncodeHeartbeat", "marshal heartbeat")
	}
	return out, nil
}

// DecodeHeartbeat parses the §6 heartbeat JSON object.
func DecodeHeartbeat(data []byte) (Heartbeat, error) {
	var w heartbeatWire
	if err := json.Unmarshal(data, &w); err != nil {
		return Heartbeat{}, errors.WrapInvalid(errors.ErrMalformedWire, "codec", "DecodeHeartbeat", "unmarshal heartbeat")
	}
	ts, err := timestamp.Parse(w.Timestamp)
	if err != nil {
		return Heartbeat{}, errors.WrapInvalid(errors.ErrMalformedWire, "codec", "DecodeHeartbeat", "parse timestamp")
	}
	status, ok := ParseStatus(w.Status)
	if !ok {
		return Heartbeat{}, errors.WrapInvalid(errors.ErrMalformedWire, "codec", "DecodeHeartbeat", "parse status")
	}
	if w.ID == "" {
		return Heartbeat{}, errors.WrapInvalid(errors.ErrMalformedWire, "codec", "DecodeHeartbeat", "empty id")
	}
	return Heartbeat{ID: w.ID, Timestamp: ts, Status: status}, nil
}
