package config

import (
	"fmt"
	"os"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/iascore/alarmcore/du"
	"github.com/iascore/alarmcore/errors"
	"github.com/iascore/alarmcore/tf"
)

// Reader is the configuration contract the Supervisor depends on (§6):
// resolve its own identity, and resolve any DU id to a fully-built
// du.Definition with all transitive CEs and TF instances in place.
type Reader interface {
	Supervisor() (Supervisor, error)
	DUDefinitions() ([]ResolvedDU, error)
	DUDefinition(duID string) (ResolvedDU, error)
}

// FileReader loads one YAML document from disk, validates it against
// schemaJSON, and resolves TF classes against registry.
type FileReader struct {
	doc      Document
	registry *tf.Registry
}

// NewFileReader reads and validates path, returning a Reader backed by its
// contents. registry resolves each CE's TF class name to an instance; pass
// tf.NewDefaultRegistry() for the reference TF set.
func NewFileReader(path string, registry *tf.Registry) (*FileReader, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapFatal(err, "config", "NewFileReader", "read "+path)
	}

	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, errors.WrapInvalid(err, "config", "NewFileReader", "parse "+path)
	}
	if err := validate(generic); err != nil {
		return nil, errors.WrapInvalid(err, "config", "NewFileReader", "validate "+path)
	}

	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.WrapInvalid(err, "config", "NewFileReader", "decode "+path)
	}

	return &FileReader{doc: doc, registry: registry}, nil
}

func validate(document any) error {
	documentLoader := gojsonschema.NewGoLoader(toStringKeyed(document))
	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return err
	}
	if !result.Valid() {
		msg := "invalid configuration document:"
		for _, re := range result.Errors() {
			msg += " " + re.String() + ";"
		}
		return fmt.Errorf("%w: %s", errors.ErrInvalidConfig, msg)
	}
	return nil
}

// toStringKeyed recursively converts map[any]any (yaml.v3's native decode
// target for mappings) into map[string]any so gojsonschema's JSON-oriented
// loader can walk it.
func toStringKeyed(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = toStringKeyed(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprintf("%v", k)] = toStringKeyed(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = toStringKeyed(val)
		}
		return out
	default:
		return v
	}
}

// Supervisor resolves the document's own identity.
func (r *FileReader) Supervisor() (Supervisor, error) {
	freq, err := durationOr(r.doc.HeartbeatFrequency, defaultHeartbeatFrequency)
	if err != nil {
		return Supervisor{}, errors.WrapInvalid(err, "config", "Supervisor", "parse heartbeatFrequency")
	}
	return Supervisor{
		ID:                 r.doc.ID,
		BusURL:             r.doc.BusURL,
		HeartbeatFrequency: freq,
		LogLevel:           r.doc.LogLevel,
	}, nil
}

// DUDefinitions resolves every DU entry in the document, substituting
// templated ids with their configured instance number.
func (r *FileReader) DUDefinitions() ([]ResolvedDU, error) {
	out := make([]ResolvedDU, 0, len(r.doc.DUs))
	for _, spec := range r.doc.DUs {
		resolved, err := r.resolve(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return out, nil
}

// DUDefinition resolves the single DU matching duID, or ErrConfigNotFound.
func (r *FileReader) DUDefinition(duID string) (ResolvedDU, error) {
	for _, spec := range r.doc.DUs {
		id, err := resolvedID(spec)
		if err != nil {
			return ResolvedDU{}, err
		}
		if id == duID {
			return r.resolve(spec)
		}
	}
	return ResolvedDU{}, errors.WrapInvalid(errors.ErrConfigNotFound, "config", "DUDefinition", duID)
}

func resolvedID(spec DUSpec) (string, error) {
	if spec.IDFormat == "" {
		return spec.ID, nil
	}
	if spec.Template != nil {
		if spec.Instance < spec.Template.Min || spec.Instance > spec.Template.Max {
			return "", errors.WrapInvalid(errors.ErrInstanceOutOfRange, "config", "resolvedID",
				fmt.Sprintf("%s instance %d outside [%d,%d]", spec.IDFormat, spec.Instance, spec.Template.Min, spec.Template.Max))
		}
	}
	return fmt.Sprintf(spec.IDFormat, spec.Instance), nil
}

func (r *FileReader) resolve(spec DUSpec) (ResolvedDU, error) {
	id, err := resolvedID(spec)
	if err != nil {
		return ResolvedDU{}, err
	}

	autoSend, err := durationOr(spec.AutoSendPeriod, defaultAutoSendPeriod)
	if err != nil {
		return ResolvedDU{}, errors.WrapInvalid(err, "config", "resolve", "parse autoSendPeriod for "+id)
	}
	tolerance, err := durationOr(spec.Tolerance, defaultTolerance)
	if err != nil {
		return ResolvedDU{}, errors.WrapInvalid(err, "config", "resolve", "parse tolerance for "+id)
	}
	throttle, err := durationOr(spec.ThrottleMinInterval, defaultThrottleMinInterval)
	if err != nil {
		return ResolvedDU{}, errors.WrapInvalid(err, "config", "resolve", "parse throttleMinInterval for "+id)
	}

	ces := make([]du.CEConfig, 0, len(spec.CEs))
	for _, ceSpec := range spec.CEs {
		instance, err := tfInstance(r.registry, ceSpec)
		if err != nil {
			return ResolvedDU{}, errors.WrapInvalid(err, "config", "resolve", fmt.Sprintf("%s/%s transfer function", id, ceSpec.ID))
		}
		outputType, err := typeTagOr(ceSpec.OutputType)
		if err != nil {
			return ResolvedDU{}, errors.WrapInvalid(err, "config", "resolve", fmt.Sprintf("%s/%s output type", id, ceSpec.ID))
		}
		limits, err := limitsOr(ceSpec)
		if err != nil {
			return ResolvedDU{}, errors.WrapInvalid(err, "config", "resolve", fmt.Sprintf("%s/%s limits", id, ceSpec.ID))
		}

		ces = append(ces, du.CEConfig{
			ID:            ceSpec.ID,
			Inputs:        ceSpec.Inputs,
			Output:        ceSpec.Output,
			OutputTypeTag: outputType,
			TF:            instance,
			Properties:    ceSpec.TF.Properties,
			Limits:        limits,
		})
	}

	return ResolvedDU{
		ID:                  id,
		Definition:          du.Definition{CEs: ces, OutputID: spec.Output},
		AutoSendPeriod:      autoSend,
		Tolerance:           tolerance,
		ThrottleMinInterval: throttle,
	}, nil
}

func tfInstance(registry *tf.Registry, spec CESpec) (tf.TransferFunction, error) {
	return registry.New(spec.TF.Class)
}

var (
	defaultHeartbeatFrequency  = 15 * time.Second
	defaultAutoSendPeriod      = 30 * time.Second
	defaultTolerance           = 5 * time.Second
	defaultThrottleMinInterval = 250 * time.Millisecond
)
