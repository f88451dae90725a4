package tf

import (
	"testing"
	"time"

	"github.com/iascore/alarmcore/identifier"
	"github.com/iascore/alarmcore/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoubleInput(t *testing.T, local string, reading float64) value.Value {
	t.Helper()
	ms, err := identifier.New("plant", identifier.MonitoredSystem, nil)
	require.NoError(t, err)
	plugin, err := identifier.New("plc1", identifier.Plugin, ms)
	require.NoError(t, err)
	conv, err := identifier.New("conv1", identifier.Converter, plugin)
	require.NoError(t, err)
	iasio, err := identifier.New(local, identifier.IASIO, conv)
	require.NoError(t, err)
	v, err := value.New(iasio, value.Double, reading, value.Operational, value.Reliable,
		value.WithTimestamps(value.Timestamps{PluginProduced: time.Now()}))
	require.NoError(t, err)
	return v
}

func TestAveragingComputesArithmeticMean(t *testing.T) {
	a := &Averaging{}
	require.NoError(t, a.Initialize(InitParams{}))

	inputs := map[string]value.Value{
		"t1": mustDoubleInput(t, "T1", 5),
		"t2": mustDoubleInput(t, "T2", 6),
		"t3": mustDoubleInput(t, "T3", 7),
		"t4": mustDoubleInput(t, "T4", 8),
	}
	result, err := a.Eval(inputs, value.Value{})
	require.NoError(t, err)
	assert.Equal(t, value.Double, result.TypeTag)
	assert.InDelta(t, 6.5, result.Payload.(float64), 1e-9)
}

func TestAveragingRejectsEmptyInputs(t *testing.T) {
	a := &Averaging{}
	require.NoError(t, a.Initialize(InitParams{}))
	_, err := a.Eval(map[string]value.Value{}, value.Value{})
	require.Error(t, err)
}
