package tf

import (
	"testing"

	"github.com/iascore/alarmcore/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRejectsDuplicateName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("threshold", func() TransferFunction { return &Threshold{} }))
	err := r.Register("threshold", func() TransferFunction { return &Threshold{} })
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTFAlreadyRegistered)
}

func TestRegistryNewRejectsUnknownName(t *testing.T) {
	r := NewRegistry()
	_, err := r.New("nonexistent")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrTFNotRegistered)
}

func TestDefaultRegistryHasCoreTFs(t *testing.T) {
	r := NewDefaultRegistry()
	for _, name := range []string{"threshold", "multiplicity", "averaging"} {
		instance, err := r.New(name)
		require.NoError(t, err)
		assert.NotNil(t, instance)
	}
}
