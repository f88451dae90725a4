package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "CE", "update", "merge inputs"))
	assert.NoError(t, WrapTransient(nil, "CE", "update", "merge inputs"))
	assert.NoError(t, WrapInvalid(nil, "CE", "update", "merge inputs"))
	assert.NoError(t, WrapFatal(nil, "CE", "update", "merge inputs"))
}

func TestWrapMessageFormat(t *testing.T) {
	err := Wrap(ErrTFEvalFailed, "CE", "update", "eval")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CE.update: eval failed")
	assert.ErrorIs(t, err, ErrTFEvalFailed)
}

func TestClassification(t *testing.T) {
	t.Run("transient", func(t *testing.T) {
		err := WrapTransient(ErrPublishFailed, "DU", "publish", "send")
		assert.True(t, IsTransient(err))
		assert.False(t, IsFatal(err))
		assert.False(t, IsInvalid(err))
	})
	t.Run("invalid", func(t *testing.T) {
		err := WrapInvalid(ErrInvalidConfig, "Config", "Resolve", "validate")
		assert.True(t, IsInvalid(err))
	})
	t.Run("fatal", func(t *testing.T) {
		err := WrapFatal(ErrCyclicTopology, "Topology", "New", "validate")
		assert.True(t, IsFatal(err))
	})
	t.Run("unclassified defaults fatal", func(t *testing.T) {
		assert.True(t, IsFatal(ErrTFEvalFailed))
	})
}
