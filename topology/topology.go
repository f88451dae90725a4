// Package topology builds and validates the dependency graph of Computing
// Elements inside a Distributed Unit (§4.3): which ids are read from the
// bus, which CE produces which output, and the level ordering CEs must be
// evaluated in.
package topology

import (
	"fmt"

	"github.com/iascore/alarmcore/errors"
)

// CEDefinition is one Computing Element's position in the graph: the ids it
// accepts as input and the single id it produces.
type CEDefinition struct {
	ID     string
	Inputs []string
	Output string
}

// Topology is the validated, immutable result of New. All derived products
// (§4.3) are precomputed at construction so lookups are O(1) afterwards.
type Topology struct {
	duOutput string
	ces      map[string]CEDefinition

	dasuInputs      map[string]struct{}
	inputsOfCE      map[string]map[string]struct{}
	cesOfInput      map[string]map[string]struct{}
	ceProducingOut  map[string]string
	levels          [][]string
	levelOfCE       map[string]int
}

// New validates ces against the four §4.3 rules and builds the derived
// products, or returns an error naming the first rule violated.
func New(duOutput string, ces []CEDefinition) (*Topology, error) {
	t := &Topology{
		duOutput:       duOutput,
		ces:            make(map[string]CEDefinition, len(ces)),
		inputsOfCE:     make(map[string]map[string]struct{}, len(ces)),
		cesOfInput:     make(map[string]map[string]struct{}),
		ceProducingOut: make(map[string]string, len(ces)),
		levelOfCE:      make(map[string]int, len(ces)),
	}

	// Rule 1: every CE output id is unique.
	for _, ce := range ces {
		if _, dup := t.ceProducingOut[ce.Output]; dup {
			return nil, errors.WrapInvalid(errors.ErrDuplicateOutput, "topology", "New",
				fmt.Sprintf("output %q produced by more than one CE", ce.Output))
		}
		t.ceProducingOut[ce.Output] = ce.ID
		t.ces[ce.ID] = ce

		inputSet := make(map[string]struct{}, len(ce.Inputs))
		for _, in := range ce.Inputs {
			inputSet[in] = struct{}{}
			if t.cesOfInput[in] == nil {
				t.cesOfInput[in] = make(map[string]struct{})
			}
			t.cesOfInput[in][ce.ID] = struct{}{}
		}
		t.inputsOfCE[ce.ID] = inputSet
	}

	// Rule 2: the DU output id is produced by exactly one CE.
	if _, ok := t.ceProducingOut[duOutput]; !ok {
		return nil, errors.WrapInvalid(errors.ErrOutputNotFound, "topology", "New",
			fmt.Sprintf("DU output %q is not produced by any CE", duOutput))
	}

	// dasu_inputs: accepted-input ids minus CE outputs.
	t.dasuInputs = make(map[string]struct{})
	for in := range t.cesOfInput {
		if _, isOutput := t.ceProducingOut[in]; !isOutput {
			t.dasuInputs[in] = struct{}{}
		}
	}

	// Rule 3: every CE output except the DU output is consumed by at least
	// one other CE.
	for output := range t.ceProducingOut {
		if output == duOutput {
			continue
		}
		if len(t.cesOfInput[output]) == 0 {
			return nil, errors.WrapInvalid(errors.ErrOrphanedOutput, "topology", "New",
				fmt.Sprintf("output %q is not consumed by any CE", output))
		}
	}

	// Rule 4: no cycles, checked via DFS over the input->output edges.
	if err := t.detectCycle(); err != nil {
		return nil, err
	}

	if err := t.buildLevels(); err != nil {
		return nil, err
	}

	return t, nil
}

// detectCycle walks "CE -> ids it depends on -> CEs producing those ids"
// from every CE, failing if a path revisits a node still on the stack.
func (t *Topology) detectCycle() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(t.ces))

	var visit func(ceID string) error
	visit = func(ceID string) error {
		switch state[ceID] {
		case visiting:
			return errors.WrapInvalid(errors.ErrCyclicTopology, "topology", "New",
				fmt.Sprintf("cycle detected through CE %q", ceID))
		case done:
			return nil
		}
		state[ceID] = visiting
		for input := range t.inputsOfCE[ceID] {
			if producer, ok := t.ceProducingOut[input]; ok {
				if err := visit(producer); err != nil {
					return err
				}
			}
		}
		state[ceID] = done
		return nil
	}

	for ceID := range t.ces {
		if err := visit(ceID); err != nil {
			return err
		}
	}
	return nil
}

// buildLevels assigns every CE to the earliest level at which all of its
// inputs are satisfied: level 0 needs only dasu_inputs; level k needs
// dasu_inputs plus the outputs of levels 0..k-1.
func (t *Topology) buildLevels() error {
	satisfied := make(map[string]struct{}, len(t.dasuInputs))
	for id := range t.dasuInputs {
		satisfied[id] = struct{}{}
	}
	assigned := make(map[string]bool, len(t.ces))

	for level := 0; len(assigned) < len(t.ces); level++ {
		var current []string
		for id, ce := range t.ces {
			if assigned[id] {
				continue
			}
			if allSatisfied(ce.Inputs, satisfied) {
				current = append(current, id)
			}
		}
		if len(current) == 0 {
			return errors.WrapFatal(errors.ErrUnlevelableGraph, "topology", "New",
				"remaining CEs cannot be assigned to a level")
		}
		for _, id := range current {
			assigned[id] = true
			t.levelOfCE[id] = level
			satisfied[t.ces[id].Output] = struct{}{}
		}
		t.levels = append(t.levels, current)
	}
	return nil
}

func allSatisfied(inputs []string, satisfied map[string]struct{}) bool {
	for _, in := range inputs {
		if _, ok := satisfied[in]; !ok {
			return false
		}
	}
	return true
}

// DasuInputs returns the ids the DU must read from the bus (order not significant).
func (t *Topology) DasuInputs() []string {
	out := make([]string, 0, len(t.dasuInputs))
	for id := range t.dasuInputs {
		out = append(out, id)
	}
	return out
}

// InputsOfCE returns the input ids a CE accepts.
func (t *Topology) InputsOfCE(ceID string) []string {
	set := t.inputsOfCE[ceID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// CEsOfInput returns the ids of CEs that accept the given input.
func (t *Topology) CEsOfInput(inputID string) []string {
	set := t.cesOfInput[inputID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// Levels returns the CE ids grouped by evaluation level, in level order.
func (t *Topology) Levels() [][]string {
	out := make([][]string, len(t.levels))
	for i, level := range t.levels {
		cp := make([]string, len(level))
		copy(cp, level)
		out[i] = cp
	}
	return out
}

// LevelOf returns the level a CE was assigned to.
func (t *Topology) LevelOf(ceID string) (int, bool) {
	lvl, ok := t.levelOfCE[ceID]
	return lvl, ok
}

// CEProducingOutput returns the CE id that produces the given output id.
func (t *Topology) CEProducingOutput(outputID string) (string, bool) {
	id, ok := t.ceProducingOut[outputID]
	return id, ok
}

// DUOutput returns the DU's own output id.
func (t *Topology) DUOutput() string { return t.duOutput }

// CEIDs returns every CE id in the topology.
func (t *Topology) CEIDs() []string {
	out := make([]string, 0, len(t.ces))
	for id := range t.ces {
		out = append(out, id)
	}
	return out
}

// CE returns a CE's definition.
func (t *Topology) CE(ceID string) (CEDefinition, bool) {
	ce, ok := t.ces[ceID]
	return ce, ok
}
