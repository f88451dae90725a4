package value

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustValue(t *testing.T, produced time.Time, validity Validity) Value {
	t.Helper()
	id := mustIASIO(t)
	v, err := New(id, Double, 1.0, Operational, validity, WithTimestamps(Timestamps{PluginProduced: produced}))
	require.NoError(t, err)
	return v
}

func TestNewInputIsInputNotOutput(t *testing.T) {
	now := time.Now()
	v := mustValue(t, now, Reliable)
	io := NewInput(v, ValidityInfo{Tag: Reliable, ObservedAt: now})

	assert.True(t, io.IsInput())
	assert.False(t, io.IsOutput())

	_, ok := io.FromInputs()
	assert.False(t, ok)

	info, ok := io.FromBus()
	require.True(t, ok)
	assert.Equal(t, Reliable, info.Tag)
}

func TestNewOutputIsOutputNotInput(t *testing.T) {
	now := time.Now()
	v := mustValue(t, now, Reliable)
	io := NewOutput(v, ValidityInfo{Tag: Reliable, ObservedAt: now})

	assert.True(t, io.IsOutput())
	assert.False(t, io.IsInput())

	_, ok := io.FromBus()
	assert.False(t, ok)
}

func TestValidityInfoEffectiveWithinTimeFrame(t *testing.T) {
	now := time.Now()
	info := ValidityInfo{Tag: Reliable, ObservedAt: now.Add(-5 * time.Second)}
	assert.Equal(t, Reliable, info.Effective(now, 10*time.Second))
}

func TestValidityInfoEffectiveDowngradesOnStaleness(t *testing.T) {
	now := time.Now()
	info := ValidityInfo{Tag: Reliable, ObservedAt: now.Add(-30 * time.Second)}
	assert.Equal(t, Unreliable, info.Effective(now, 10*time.Second))
}

func TestValidityInfoEffectiveHonorsStoredUnreliable(t *testing.T) {
	now := time.Now()
	info := ValidityInfo{Tag: Unreliable, ObservedAt: now}
	assert.Equal(t, Unreliable, info.Effective(now, 10*time.Second))
}

func TestValidityInfoEffectiveAbsentTimestampIsUnreliable(t *testing.T) {
	now := time.Now()
	info := ValidityInfo{Tag: Reliable}
	assert.Equal(t, Unreliable, info.Effective(now, 10*time.Second))
}

func TestWithFromBusReplacesValidityInfo(t *testing.T) {
	now := time.Now()
	v := mustValue(t, now, Reliable)
	io := NewInput(v, ValidityInfo{Tag: Reliable, ObservedAt: now})

	later := now.Add(time.Minute)
	v2 := mustValue(t, later, Unreliable)
	updated := io.WithFromBus(v2, ValidityInfo{Tag: Unreliable, ObservedAt: later})

	info, ok := updated.FromBus()
	require.True(t, ok)
	assert.Equal(t, Unreliable, info.Tag)
}
