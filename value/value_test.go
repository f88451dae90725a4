package value

import (
	"testing"
	"time"

	"github.com/iascore/alarmcore/identifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustIASIO(t *testing.T) *identifier.Identifier {
	t.Helper()
	ms, err := identifier.New("plant", identifier.MonitoredSystem, nil)
	require.NoError(t, err)
	plugin, err := identifier.New("plc1", identifier.Plugin, ms)
	require.NoError(t, err)
	conv, err := identifier.New("conv1", identifier.Converter, plugin)
	require.NoError(t, err)
	iasio, err := identifier.New("Temperature", identifier.IASIO, conv)
	require.NoError(t, err)
	return iasio
}

func TestNewRejectsPayloadTypeMismatch(t *testing.T) {
	id := mustIASIO(t)
	_, err := New(id, Double, "not a float", Operational, Reliable,
		WithTimestamps(Timestamps{PluginProduced: time.Now()}))
	require.Error(t, err)
}

func TestNewAcceptsMatchingPayload(t *testing.T) {
	id := mustIASIO(t)
	v, err := New(id, Double, 42.5, Operational, Reliable,
		WithTimestamps(Timestamps{PluginProduced: time.Now()}))
	require.NoError(t, err)
	assert.Equal(t, 42.5, v.Payload())
	assert.Equal(t, Double, v.TypeTag())
}

func TestNewRejectsNeitherProductionTimestampSet(t *testing.T) {
	id := mustIASIO(t)
	_, err := New(id, Double, 1.0, Operational, Reliable)
	require.Error(t, err)
}

func TestNewRejectsBothProductionTimestampsSet(t *testing.T) {
	id := mustIASIO(t)
	_, err := New(id, Double, 1.0, Operational, Reliable, WithTimestamps(Timestamps{
		PluginProduced: time.Now(),
		DUProduced:     time.Now(),
	}))
	require.Error(t, err)
}

func TestWithValidityDoesNotMutateOriginal(t *testing.T) {
	id := mustIASIO(t)
	v, err := New(id, Double, 1.0, Operational, Reliable,
		WithTimestamps(Timestamps{PluginProduced: time.Now()}))
	require.NoError(t, err)

	downgraded := v.WithValidity(Unreliable)
	assert.Equal(t, Reliable, v.Validity())
	assert.Equal(t, Unreliable, downgraded.Validity())
}

func TestDependentsAndPropertiesDefensiveCopy(t *testing.T) {
	id := mustIASIO(t)
	v, err := New(id, Double, 1.0, Operational, Reliable,
		WithTimestamps(Timestamps{PluginProduced: time.Now()}),
		WithDependents("a", "b"),
		WithProperties(map[string]string{"actualValue": "1.0"}),
	)
	require.NoError(t, err)

	deps := v.Dependents()
	deps[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, v.Dependents())

	props := v.Properties()
	props["actualValue"] = "mutated"
	assert.Equal(t, "1.0", v.Properties()["actualValue"])
}

func TestEqualArrayPayloads(t *testing.T) {
	id := mustIASIO(t)
	now := time.Now()
	a, err := New(id, ArrayOfDouble, []float64{1, 2, 3}, Operational, Reliable, WithTimestamps(Timestamps{PluginProduced: now}))
	require.NoError(t, err)
	b, err := New(id, ArrayOfDouble, []float64{1, 2, 3}, Operational, Reliable, WithTimestamps(Timestamps{PluginProduced: now}))
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	c, err := New(id, ArrayOfDouble, []float64{1, 2, 4}, Operational, Reliable, WithTimestamps(Timestamps{PluginProduced: now}))
	require.NoError(t, err)
	assert.False(t, a.Equal(c))
}

func TestProductionTimePrefersDUProduced(t *testing.T) {
	plugin := time.Now().Add(-time.Minute)
	du := time.Now()
	ts := Timestamps{PluginProduced: plugin, DUProduced: du}
	assert.True(t, ts.ProductionTime().Equal(du))

	ts2 := Timestamps{PluginProduced: plugin}
	assert.True(t, ts2.ProductionTime().Equal(plugin))
}

func TestMinValidity(t *testing.T) {
	assert.Equal(t, Reliable, MinValidity(Reliable, Reliable))
	assert.Equal(t, Unreliable, MinValidity(Reliable, Unreliable))
	assert.Equal(t, Unreliable, MinValidity(Unreliable, Unreliable))
	assert.Equal(t, Unreliable, MinValidityAll(nil))
	assert.Equal(t, Reliable, MinValidityAll([]Validity{Reliable, Reliable}))
	assert.Equal(t, Unreliable, MinValidityAll([]Validity{Reliable, Unreliable}))
}
