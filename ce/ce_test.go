package ce

import (
	"errors"
	"testing"
	"time"

	"github.com/iascore/alarmcore/identifier"
	"github.com/iascore/alarmcore/tf"
	"github.com/iascore/alarmcore/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTF struct {
	initErr     error
	evalErr     error
	evalCalls   int
	result      tf.Eval
	evalLatency time.Duration
}

func (f *fakeTF) Initialize(tf.InitParams) error { return f.initErr }

func (f *fakeTF) Eval(inputs map[string]value.Value, prior value.Value) (tf.Eval, error) {
	f.evalCalls++
	if f.evalLatency > 0 {
		time.Sleep(f.evalLatency)
	}
	if f.evalErr != nil {
		return tf.Eval{}, f.evalErr
	}
	return f.result, nil
}

func (f *fakeTF) Shutdown() error { return nil }

func mustCEID(t *testing.T) *identifier.Identifier {
	t.Helper()
	sup, err := identifier.New("sup1", identifier.Supervisor, nil)
	require.NoError(t, err)
	du, err := identifier.New("du1", identifier.DU, sup)
	require.NoError(t, err)
	ceID, err := identifier.New("ce1", identifier.CE, du)
	require.NoError(t, err)
	return ceID
}

func mustInputValue(t *testing.T, ceID *identifier.Identifier, local string, reading float64) value.Value {
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

func TestCEInitializeSuccessMovesToInputsUndefined(t *testing.T) {
	id := mustCEID(t)
	c, err := New(id, "Out", value.Double, []string{"Temperature"}, &fakeTF{}, time.Second, nil, DefaultLimits, nil)
	require.NoError(t, err)

	state := c.Initialize()
	assert.Equal(t, InputsUndefined, state)
	assert.Equal(t, InputsUndefined, c.State())
}

func TestCEInitializeFailureMovesToTFBroken(t *testing.T) {
	id := mustCEID(t)
	c, err := New(id, "Out", value.Double, []string{"Temperature"}, &fakeTF{initErr: errors.New("boom")}, time.Second, nil, DefaultLimits, nil)
	require.NoError(t, err)

	state := c.Initialize()
	assert.Equal(t, TFBroken, state)
}

func TestCERejectsDuplicateInputs(t *testing.T) {
	id := mustCEID(t)
	_, err := New(id, "Out", value.Double, []string{"a", "a"}, &fakeTF{}, time.Second, nil, DefaultLimits, nil)
	require.Error(t, err)
}

func TestCEMovesToHealthyWhenAllInputsReceived(t *testing.T) {
	id := mustCEID(t)
	fake := &fakeTF{result: tf.Eval{TypeTag: value.Double, Payload: 1.0, Mode: value.Operational}}
	c, err := New(id, "Out", value.Double, []string{"Temperature"}, fake, time.Second, nil, DefaultLimits, nil)
	require.NoError(t, err)
	c.Initialize()

	_, hasOutput, state, err := c.Update([]value.Value{mustInputValue(t, id, "Temperature", 5)})
	require.NoError(t, err)
	assert.True(t, hasOutput)
	assert.Equal(t, Healthy, state)
	assert.Equal(t, 1, fake.evalCalls)
}

func TestCERejectsUnacceptedInput(t *testing.T) {
	id := mustCEID(t)
	c, err := New(id, "Out", value.Double, []string{"Temperature"}, &fakeTF{}, time.Second, nil, DefaultLimits, nil)
	require.NoError(t, err)
	c.Initialize()

	_, _, _, err = c.Update([]value.Value{mustInputValue(t, id, "Other", 1)})
	require.Error(t, err)
}

func TestCETFFailureEntersTFBrokenAndStopsReinvoking(t *testing.T) {
	id := mustCEID(t)
	fake := &fakeTF{evalErr: errors.New("tf threw")}
	c, err := New(id, "Out", value.Alarm, []string{"Temperature"}, fake, time.Second, nil, DefaultLimits, nil)
	require.NoError(t, err)
	c.Initialize()

	out1, hasOutput, state, err := c.Update([]value.Value{mustInputValue(t, id, "Temperature", 5)})
	require.NoError(t, err)
	assert.True(t, hasOutput)
	assert.Equal(t, TFBroken, state)
	assert.Equal(t, 1, fake.evalCalls)

	out2, hasOutput, state, err := c.Update([]value.Value{mustInputValue(t, id, "Temperature", 200)})
	require.NoError(t, err)
	assert.True(t, hasOutput)
	assert.Equal(t, TFBroken, state)
	assert.Equal(t, 1, fake.evalCalls, "TF must not be re-invoked once broken")
	assert.True(t, out1.Equal(out2.Value))
}

func TestCESlowTFTransitionsToSlowThenBroken(t *testing.T) {
	id := mustCEID(t)
	fake := &fakeTF{
		result:      tf.Eval{TypeTag: value.Double, Payload: 1.0, Mode: value.Operational},
		evalLatency: 5 * time.Millisecond,
	}
	limits := Limits{MaxTolerableTFTime: time.Millisecond, MaxSlowDuration: 10 * time.Millisecond}
	c, err := New(id, "Out", value.Double, []string{"Temperature"}, fake, time.Second, nil, limits, nil)
	require.NoError(t, err)
	c.Initialize()

	_, _, state, err := c.Update([]value.Value{mustInputValue(t, id, "Temperature", 1)})
	require.NoError(t, err)
	assert.Equal(t, Slow, state)

	time.Sleep(15 * time.Millisecond)
	out, hasOutput, state, err := c.Update([]value.Value{mustInputValue(t, id, "Temperature", 2)})
	require.NoError(t, err)
	assert.Equal(t, TFBroken, state)
	require.True(t, hasOutput)
	assert.Equal(t, 1.0, out.Payload(), "a successful-but-slow eval must still publish its freshly computed output, not a stale one")
}

func TestCEValidityConstraintUnknownIDBreaksCE(t *testing.T) {
	id := mustCEID(t)
	fake := &fakeTF{result: tf.Eval{
		TypeTag:        value.Double,
		Payload:        1.0,
		Mode:           value.Operational,
		ValiditySubset: []string{"NotAnInput"},
	}}
	c, err := New(id, "Out", value.Double, []string{"Temperature"}, fake, time.Second, nil, DefaultLimits, nil)
	require.NoError(t, err)
	c.Initialize()

	_, hasOutput, state, err := c.Update([]value.Value{mustInputValue(t, id, "Temperature", 1)})
	require.NoError(t, err)
	assert.True(t, hasOutput)
	assert.Equal(t, TFBroken, state)
}

func TestCEShutdownIsIdempotent(t *testing.T) {
	id := mustCEID(t)
	c, err := New(id, "Out", value.Double, []string{"Temperature"}, &fakeTF{}, time.Second, nil, DefaultLimits, nil)
	require.NoError(t, err)
	c.Initialize()

	require.NoError(t, c.Shutdown())
	require.NoError(t, c.Shutdown())
	assert.Equal(t, Closed, c.State())
}
