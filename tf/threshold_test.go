package tf

import (
	"testing"
	"time"

	"github.com/iascore/alarmcore/identifier"
	"github.com/iascore/alarmcore/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func thresholdParams() InitParams {
	return InitParams{
		CEID:      "ce1",
		RunningID: "sup@du@ce1",
		Properties: map[string]string{
			"high_on":            "50",
			"high_off":           "25",
			"low_on":             "-20",
			"low_off":            "-10",
			"alarm_set_priority": "SET_HIGH",
		},
	}
}

func mustInput(t *testing.T, reading float64) value.Value {
	t.Helper()
	ms, err := identifier.New("plant", identifier.MonitoredSystem, nil)
	require.NoError(t, err)
	plugin, err := identifier.New("plc1", identifier.Plugin, ms)
	require.NoError(t, err)
	conv, err := identifier.New("conv1", identifier.Converter, plugin)
	require.NoError(t, err)
	iasio, err := identifier.New("Temperature", identifier.IASIO, conv)
	require.NoError(t, err)
	v, err := value.New(iasio, value.Double, reading, value.Operational, value.Reliable,
		value.WithTimestamps(value.Timestamps{PluginProduced: time.Now()}))
	require.NoError(t, err)
	return v
}

func TestThresholdValidatesConfiguration(t *testing.T) {
	th := &Threshold{}
	params := thresholdParams()
	params.Properties["high_on"] = "10" // < high_off(25): invalid
	err := th.Initialize(params)
	require.Error(t, err)
}

func TestThresholdHysteresisSequence(t *testing.T) {
	th := &Threshold{}
	require.NoError(t, th.Initialize(thresholdParams()))

	readings := []float64{5, 100, 150, 40, 10, -15, -30, -40, -15, 0}
	expected := []value.AlarmPriority{
		value.Cleared, value.SetHigh, value.SetHigh, value.SetHigh, value.Cleared,
		value.Cleared, value.SetHigh, value.SetHigh, value.SetHigh, value.Cleared,
	}

	prior, err := value.New(mustInput(t, 0).ID(), value.Alarm, value.Cleared, value.Operational, value.Reliable,
		value.WithTimestamps(value.Timestamps{DUProduced: time.Now()}))
	require.NoError(t, err)

	for i, reading := range readings {
		result, err := th.Eval(map[string]value.Value{"Temperature": mustInput(t, reading)}, prior)
		require.NoError(t, err)
		assert.Equal(t, expected[i], result.Payload, "step %d reading %v", i, reading)

		prior, err = value.New(prior.ID(), value.Alarm, result.Payload, value.Operational, value.Reliable,
			value.WithTimestamps(value.Timestamps{DUProduced: time.Now()}))
		require.NoError(t, err)
	}
}

func TestThresholdRejectsMultipleInputs(t *testing.T) {
	th := &Threshold{}
	require.NoError(t, th.Initialize(thresholdParams()))
	_, err := th.Eval(map[string]value.Value{
		"a": mustInput(t, 1),
		"b": mustInput(t, 2),
	}, value.Value{})
	require.Error(t, err)
}
