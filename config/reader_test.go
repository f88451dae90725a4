package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iascore/alarmcore/tf"
)

func writeDoc(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

const validDoc = `
id: sup1
busUrl: nats://localhost:4222
heartbeatFrequency: 5s
dus:
  - id: du1
    output: Out
    autoSendPeriod: 10s
    tolerance: 2s
    ces:
      - id: ce1
        inputs: [Temperature]
        output: Out
        outputType: DOUBLE
        tf:
          class: threshold
          properties:
            high_on: "50"
`

func TestFileReaderResolvesDocument(t *testing.T) {
	path := writeDoc(t, validDoc)
	r, err := NewFileReader(path, tf.NewDefaultRegistry())
	require.NoError(t, err)

	sup, err := r.Supervisor()
	require.NoError(t, err)
	assert.Equal(t, "sup1", sup.ID)
	assert.Equal(t, 5*time.Second, sup.HeartbeatFrequency)

	dus, err := r.DUDefinitions()
	require.NoError(t, err)
	require.Len(t, dus, 1)
	assert.Equal(t, "du1", dus[0].ID)
	assert.Equal(t, 10*time.Second, dus[0].AutoSendPeriod)
	require.Len(t, dus[0].Definition.CEs, 1)
	assert.Equal(t, "ce1", dus[0].Definition.CEs[0].ID)
	assert.NotNil(t, dus[0].Definition.CEs[0].TF)
}

func TestFileReaderDUDefinitionNotFound(t *testing.T) {
	path := writeDoc(t, validDoc)
	r, err := NewFileReader(path, tf.NewDefaultRegistry())
	require.NoError(t, err)

	_, err = r.DUDefinition("missing")
	require.Error(t, err)
}

func TestFileReaderRejectsMissingRequiredField(t *testing.T) {
	path := writeDoc(t, "id: sup1\ndus: []\n")
	_, err := NewFileReader(path, tf.NewDefaultRegistry())
	require.Error(t, err, "missing busUrl must fail schema validation")
}

func TestFileReaderRejectsUnknownTFClass(t *testing.T) {
	path := writeDoc(t, `
id: sup1
busUrl: nats://localhost:4222
dus:
  - id: du1
    output: Out
    ces:
      - id: ce1
        inputs: [Temperature]
        output: Out
        outputType: DOUBLE
        tf:
          class: nonexistent
`)
	r, err := NewFileReader(path, tf.NewDefaultRegistry())
	require.NoError(t, err)

	_, err = r.DUDefinitions()
	require.Error(t, err)
}

func TestTemplatedDUInstanceOutOfBoundsIsRejected(t *testing.T) {
	path := writeDoc(t, `
id: sup1
busUrl: nats://localhost:4222
dus:
  - idFormat: "du-%d"
    instance: 5
    template:
      min: 1
      max: 3
    output: Out
    ces:
      - id: ce1
        inputs: [Temperature]
        output: Out
        outputType: DOUBLE
        tf:
          class: threshold
`)
	r, err := NewFileReader(path, tf.NewDefaultRegistry())
	require.NoError(t, err)

	_, err = r.DUDefinitions()
	require.Error(t, err, "instance 5 outside [1,3] must be rejected, not clamped")
}

func TestTemplatedDUInstanceInBoundsResolves(t *testing.T) {
	path := writeDoc(t, `
id: sup1
busUrl: nats://localhost:4222
dus:
  - idFormat: "du-%d"
    instance: 2
    template:
      min: 1
      max: 3
    output: Out
    ces:
      - id: ce1
        inputs: [Temperature]
        output: Out
        outputType: DOUBLE
        tf:
          class: threshold
`)
	r, err := NewFileReader(path, tf.NewDefaultRegistry())
	require.NoError(t, err)

	dus, err := r.DUDefinitions()
	require.NoError(t, err)
	require.Len(t, dus, 1)
	assert.Equal(t, "du-2", dus[0].ID)
}
