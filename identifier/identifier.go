// Package identifier implements the hierarchical, immutable names (§4.1)
// used throughout the alarm evaluation graph: monitored system, plugin,
// converter, IASIO (value), computing element, distributed unit, supervisor
// and client.
package identifier

import (
	"fmt"
	"strings"

	"github.com/iascore/alarmcore/errors"
)

// Kind is the closed set of identifier kinds.
type Kind int

const (
	// MonitoredSystem is the root of a field-device hierarchy.
	MonitoredSystem Kind = iota
	// Plugin reads raw samples from a monitored system.
	Plugin
	// Converter maps plugin samples onto IASIOs.
	Converter
	// IASIO names a monitor point value.
	IASIO
	// CE names a Computing Element (ASCE in the source system).
	CE
	// DU names a Distributed Unit (DASU in the source system).
	DU
	// Supervisor names a process container for several DUs.
	Supervisor
	// Client names an external consumer of the evaluation graph's output.
	Client
)

// String returns the canonical name of the kind.
func (k Kind) String() string {
	switch k {
	case MonitoredSystem:
		return "MONITORED_SYSTEM"
	case Plugin:
		return "PLUGIN"
	case Converter:
		return "CONVERTER"
	case IASIO:
		return "IASIO"
	case CE:
		return "ASCE"
	case DU:
		return "DASU"
	case Supervisor:
		return "SUPERVISOR"
	case Client:
		return "CLIENT"
	default:
		return "UNKNOWN"
	}
}

// Separator joins ancestor local ids when building a running id. It may
// never appear inside a local id.
const Separator = "@"

// allowedParents encodes the parent-kind relation from §3: PLUGIN↪
// MONITORED_SYSTEM, CONVERTER↪PLUGIN, IASIO↪{CONVERTER|CE}, CE↪DU, DU↪
// SUPERVISOR. MonitoredSystem, Supervisor and Client are roots (nil parent).
var allowedParents = map[Kind][]Kind{
	MonitoredSystem: nil,
	Plugin:          {MonitoredSystem},
	Converter:       {Plugin},
	IASIO:           {Converter, CE},
	CE:              {DU},
	DU:              {Supervisor},
	Supervisor:      nil,
	Client:          nil,
}

// Identifier is an immutable hierarchical name. The zero value is not a
// valid Identifier; construct one with New.
type Identifier struct {
	local  string
	kind   Kind
	parent *Identifier
}

// New constructs an Identifier, validating local, kind and parent
// eagerly so that every constructed Identifier is valid by construction.
func New(local string, kind Kind, parent *Identifier) (*Identifier, error) {
	if local == "" {
		return nil, errors.WrapInvalid(errors.ErrEmptyLocalID, "Identifier", "New", "validate local id")
	}
	if strings.Contains(local, Separator) {
		return nil, errors.WrapInvalid(errors.ErrSeparatorInLocal, "Identifier", "New", "validate local id")
	}

	allowed := allowedParents[kind]
	if len(allowed) == 0 {
		if parent != nil {
			return nil, errors.WrapInvalid(errors.ErrUnexpectedParent, "Identifier", "New",
				fmt.Sprintf("%s must be a root identifier", kind))
		}
	} else {
		if parent == nil {
			return nil, errors.WrapInvalid(errors.ErrUnexpectedParent, "Identifier", "New",
				fmt.Sprintf("%s requires a parent", kind))
		}
		found := false
		for _, k := range allowed {
			if parent.kind == k {
				found = true
				break
			}
		}
		if !found {
			return nil, errors.WrapInvalid(errors.ErrUnexpectedParent, "Identifier", "New",
				fmt.Sprintf("%s cannot have parent of kind %s", kind, parent.kind))
		}
	}

	return &Identifier{local: local, kind: kind, parent: parent}, nil
}

// Local returns the local (leaf) id.
func (id *Identifier) Local() string { return id.local }

// Kind returns the identifier's kind.
func (id *Identifier) Kind() Kind { return id.kind }

// Parent returns the parent identifier, or nil for a root.
func (id *Identifier) Parent() *Identifier { return id.parent }

// RunningID concatenates ancestors then self using Separator, root to leaf.
// Never empty since local is validated non-empty at construction.
func (id *Identifier) RunningID() string {
	parts := id.chain()
	locals := make([]string, len(parts))
	for i, p := range parts {
		locals[i] = p.local
	}
	return strings.Join(locals, Separator)
}

// FullRunningID renders the same chain with kind annotations, so the
// string is self-describing without consulting the configuration store:
// "(root:MONITORED_SYSTEM)@(leaf:IASIO)".
func (id *Identifier) FullRunningID() string {
	parts := id.chain()
	segments := make([]string, len(parts))
	for i, p := range parts {
		segments[i] = fmt.Sprintf("(%s:%s)", p.local, p.kind)
	}
	return strings.Join(segments, Separator)
}

// chain returns the ancestor-to-self path, root first.
func (id *Identifier) chain() []*Identifier {
	var rev []*Identifier
	for cur := id; cur != nil; cur = cur.parent {
		rev = append(rev, cur)
	}
	chain := make([]*Identifier, len(rev))
	for i, p := range rev {
		chain[len(rev)-1-i] = p
	}
	return chain
}

// AncestorOfKind walks the parent chain (including self) looking for the
// nearest identifier of the given kind.
func (id *Identifier) AncestorOfKind(kind Kind) (*Identifier, bool) {
	for cur := id; cur != nil; cur = cur.parent {
		if cur.kind == kind {
			return cur, true
		}
	}
	return nil, false
}

// Equal compares two Identifiers by value (running id and kind), not by
// pointer identity.
func (id *Identifier) Equal(other *Identifier) bool {
	if id == nil || other == nil {
		return id == other
	}
	return id.kind == other.kind && id.RunningID() == other.RunningID()
}

// String implements fmt.Stringer using the running id.
func (id *Identifier) String() string {
	return id.RunningID()
}

// kindsByName reverses Kind.String for the annotated segments ParseFullRunningID reads.
var kindsByName = map[string]Kind{
	"MONITORED_SYSTEM": MonitoredSystem,
	"PLUGIN":           Plugin,
	"CONVERTER":        Converter,
	"IASIO":            IASIO,
	"ASCE":             CE,
	"DASU":             DU,
	"SUPERVISOR":       Supervisor,
	"CLIENT":           Client,
}

// ParseFullRunningID rebuilds the Identifier chain encoded by
// FullRunningID, re-validating every parent-kind link along the way via New.
func ParseFullRunningID(s string) (*Identifier, error) {
	segments := strings.Split(s, Separator)
	var cur *Identifier
	for _, seg := range segments {
		local, kind, err := parseSegment(seg)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Identifier", "ParseFullRunningID", "parse segment "+seg)
		}
		next, err := New(local, kind, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	if cur == nil {
		return nil, errors.WrapInvalid(errors.ErrEmptyLocalID, "Identifier", "ParseFullRunningID", "empty full running id")
	}
	return cur, nil
}

// parseSegment parses one "(local:KIND)" annotated segment.
func parseSegment(seg string) (string, Kind, error) {
	if !strings.HasPrefix(seg, "(") || !strings.HasSuffix(seg, ")") {
		return "", 0, errors.ErrMalformedWire
	}
	body := seg[1 : len(seg)-1]
	local, kindName, found := strings.Cut(body, ":")
	if !found || local == "" {
		return "", 0, errors.ErrMalformedWire
	}
	kind, ok := kindsByName[kindName]
	if !ok {
		return "", 0, errors.ErrMalformedWire
	}
	return local, kind, nil
}
