package config

import "github.com/iascore/alarmcore/errors"

// MemoryReader is a Reader backed by an in-memory slice, for tests and for
// callers that already have resolved definitions (e.g. built by hand
// rather than loaded from disk).
type MemoryReader struct {
	supervisor Supervisor
	dus        []ResolvedDU
}

// NewMemoryReader returns a Reader serving supervisor and dus verbatim.
func NewMemoryReader(supervisor Supervisor, dus []ResolvedDU) *MemoryReader {
	return &MemoryReader{supervisor: supervisor, dus: dus}
}

func (m *MemoryReader) Supervisor() (Supervisor, error) { return m.supervisor, nil }

func (m *MemoryReader) DUDefinitions() ([]ResolvedDU, error) {
	return m.dus, nil
}

func (m *MemoryReader) DUDefinition(duID string) (ResolvedDU, error) {
	for _, d := range m.dus {
		if d.ID == duID {
			return d, nil
		}
	}
	return ResolvedDU{}, errors.WrapInvalid(errors.ErrConfigNotFound, "config", "DUDefinition", duID)
}
