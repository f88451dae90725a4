package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatParseRoundTrip(t *testing.T) {
	in := time.Date(2026, 3, 5, 14, 30, 7, 500000000, time.UTC)
	s := Format(in)
	assert.Equal(t, "2026-03-05T14:30:07.5", s)

	out, err := Parse(s)
	require.NoError(t, err)
	assert.True(t, in.Equal(out), "got %v want %v", out, in)
}

func TestFormatZero(t *testing.T) {
	assert.Equal(t, "", Format(time.Time{}))
}

func TestParseEmpty(t *testing.T) {
	out, err := Parse("")
	require.NoError(t, err)
	assert.True(t, out.IsZero())
}

func TestAgeAbsent(t *testing.T) {
	age := Age(time.Time{}, time.Now())
	assert.True(t, age > 365*24*time.Hour)
}

func TestAgePresent(t *testing.T) {
	now := time.Now()
	past := now.Add(-5 * time.Second)
	age := Age(past, now)
	assert.InDelta(t, 5*time.Second, age, float64(10*time.Millisecond))
}
