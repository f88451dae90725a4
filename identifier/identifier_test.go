package identifier

import (
	"testing"

	"github.com/iascore/alarmcore/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsEmptyLocal(t *testing.T) {
	_, err := New("", MonitoredSystem, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEmptyLocalID)
}

func TestNewRejectsSeparatorInLocal(t *testing.T) {
	_, err := New("bad@name", MonitoredSystem, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSeparatorInLocal)
}

func TestNewRejectsWrongParentKind(t *testing.T) {
	ms, err := New("sys1", MonitoredSystem, nil)
	require.NoError(t, err)

	// CONVERTER must be a child of PLUGIN, not MONITORED_SYSTEM.
	_, err = New("conv1", Converter, ms)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnexpectedParent)
}

func TestNewRejectsMissingRequiredParent(t *testing.T) {
	_, err := New("plugin1", Plugin, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnexpectedParent)
}

func TestNewRejectsParentOnRootKind(t *testing.T) {
	ms, err := New("sys1", MonitoredSystem, nil)
	require.NoError(t, err)
	_, err = New("sys2", MonitoredSystem, ms)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnexpectedParent)
}

func buildChain(t *testing.T) *Identifier {
	t.Helper()
	ms, err := New("plant", MonitoredSystem, nil)
	require.NoError(t, err)
	plugin, err := New("plc1", Plugin, ms)
	require.NoError(t, err)
	conv, err := New("conv1", Converter, plugin)
	require.NoError(t, err)
	iasio, err := New("Temperature", IASIO, conv)
	require.NoError(t, err)
	return iasio
}

func TestRunningIDIncludesEveryAncestor(t *testing.T) {
	iasio := buildChain(t)
	assert.Equal(t, "plant@plc1@conv1@Temperature", iasio.RunningID())
}

func TestFullRunningIDIsSelfDescribing(t *testing.T) {
	iasio := buildChain(t)
	full := iasio.FullRunningID()
	assert.Contains(t, full, "(plant:MONITORED_SYSTEM)")
	assert.Contains(t, full, "(plc1:PLUGIN)")
	assert.Contains(t, full, "(conv1:CONVERTER)")
	assert.Contains(t, full, "(Temperature:IASIO)")
}

func TestAncestorOfKind(t *testing.T) {
	iasio := buildChain(t)

	ms, ok := iasio.AncestorOfKind(MonitoredSystem)
	require.True(t, ok)
	assert.Equal(t, "plant", ms.Local())

	_, ok = iasio.AncestorOfKind(DU)
	assert.False(t, ok)
}

func TestIASIOMayBeChildOfCE(t *testing.T) {
	du, err := New("du1", DU, mustSupervisor(t))
	require.NoError(t, err)
	ce, err := New("ce1", CE, du)
	require.NoError(t, err)
	out, err := New("Alarm1", IASIO, ce)
	require.NoError(t, err)
	assert.Equal(t, "sup1@du1@ce1@Alarm1", out.RunningID())
}

func mustSupervisor(t *testing.T) *Identifier {
	t.Helper()
	s, err := New("sup1", Supervisor, nil)
	require.NoError(t, err)
	return s
}

func TestParseFullRunningIDRoundTrip(t *testing.T) {
	iasio := buildChain(t)
	parsed, err := ParseFullRunningID(iasio.FullRunningID())
	require.NoError(t, err)
	assert.True(t, iasio.Equal(parsed))
}

func TestParseFullRunningIDRejectsMalformed(t *testing.T) {
	_, err := ParseFullRunningID("not-a-segment")
	require.Error(t, err)
}

func TestEqualComparesByValue(t *testing.T) {
	a := buildChain(t)
	b := buildChain(t)
	assert.True(t, a.Equal(b))

	other, err := New("Humidity", IASIO, a.Parent())
	require.NoError(t, err)
	assert.False(t, a.Equal(other))
}
