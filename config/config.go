// Package config resolves on-disk DU/CE definitions into the du.Definition
// trees the Supervisor deploys (§6: "the reader's contract is: given a DU
// id, return a DU-definition with all transitive children resolved, or
// 'not found'"). Documents are YAML, validated against a JSON schema before
// resolution, grounded on the teacher's config.Loader/config.Manager
// file-then-validate idiom.
package config

import (
	"time"

	"github.com/iascore/alarmcore/ce"
	"github.com/iascore/alarmcore/du"
	"github.com/iascore/alarmcore/value"
)

// TFSpec names a registered tf.Registry factory plus the property bag
// passed to TransferFunction.Initialize.
type TFSpec struct {
	Class      string            `yaml:"class" json:"class"`
	Properties map[string]string `yaml:"properties" json:"properties"`
}

// CESpec is one computing element inside a DU document.
type CESpec struct {
	ID                 string  `yaml:"id" json:"id"`
	Inputs             []string `yaml:"inputs" json:"inputs"`
	Output             string  `yaml:"output" json:"output"`
	OutputType         string  `yaml:"outputType" json:"outputType"`
	TF                 TFSpec  `yaml:"tf" json:"tf"`
	MaxTolerableTFTime string  `yaml:"maxTolerableTfTime,omitempty" json:"maxTolerableTfTime,omitempty"`
	MaxSlowDuration    string  `yaml:"maxSlowDuration,omitempty" json:"maxSlowDuration,omitempty"`
}

// Template bounds the instance numbers a templated DU id may be deployed
// at (§9 Open Question: an instance outside [Min,Max] is rejected, never
// clamped).
type Template struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// DUSpec is one DU document entry. A templated entry carries IDFormat (a
// fmt.Sprintf pattern with one %d verb) and Template bounds instead of a
// fixed ID; Instance picks which concrete id gets deployed.
type DUSpec struct {
	ID       string    `yaml:"id,omitempty" json:"id,omitempty"`
	IDFormat string    `yaml:"idFormat,omitempty" json:"idFormat,omitempty"`
	Instance int       `yaml:"instance,omitempty" json:"instance,omitempty"`
	Template *Template `yaml:"template,omitempty" json:"template,omitempty"`
	Output   string    `yaml:"output" json:"output"`
	CEs      []CESpec  `yaml:"ces" json:"ces"`

	AutoSendPeriod      string `yaml:"autoSendPeriod,omitempty" json:"autoSendPeriod,omitempty"`
	Tolerance           string `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`
	ThrottleMinInterval string `yaml:"throttleMinInterval,omitempty" json:"throttleMinInterval,omitempty"`
}

// Document is one supervisor's whole configuration: its own identity and
// bus/heartbeat defaults, plus the DUs it deploys.
type Document struct {
	ID                  string   `yaml:"id" json:"id"`
	BusURL              string   `yaml:"busUrl" json:"busUrl"`
	HeartbeatFrequency  string   `yaml:"heartbeatFrequency" json:"heartbeatFrequency"`
	AutoSendPeriod      string   `yaml:"autoSendPeriod" json:"autoSendPeriod"`
	Tolerance           string   `yaml:"tolerance" json:"tolerance"`
	ThrottleMinInterval string   `yaml:"throttleMinInterval" json:"throttleMinInterval"`
	LogLevel            string   `yaml:"logLevel,omitempty" json:"logLevel,omitempty"`
	DUs                 []DUSpec `yaml:"dus" json:"dus"`
}

// Supervisor is the resolved, typed form of Document's top-level fields.
type Supervisor struct {
	ID                 string
	BusURL             string
	HeartbeatFrequency time.Duration
	LogLevel           string
}

// ResolvedDU is one fully-resolved DU: a du.Definition ready for du.New,
// plus the per-DU timing parameters du.New also needs.
type ResolvedDU struct {
	ID                  string
	Definition          du.Definition
	AutoSendPeriod      time.Duration
	Tolerance           time.Duration
	ThrottleMinInterval time.Duration
}

func durationOr(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	return time.ParseDuration(s)
}

func limitsOr(spec CESpec) (ce.Limits, error) {
	limits := ce.DefaultLimits
	if spec.MaxTolerableTFTime != "" {
		d, err := time.ParseDuration(spec.MaxTolerableTFTime)
		if err != nil {
			return ce.Limits{}, err
		}
		limits.MaxTolerableTFTime = d
	}
	if spec.MaxSlowDuration != "" {
		d, err := time.ParseDuration(spec.MaxSlowDuration)
		if err != nil {
			return ce.Limits{}, err
		}
		limits.MaxSlowDuration = d
	}
	return limits, nil
}

func typeTagOr(s string) (value.TypeTag, error) {
	tag, ok := value.ParseTypeTag(s)
	if !ok {
		return 0, &unknownTypeTagError{s}
	}
	return tag, nil
}

type unknownTypeTagError struct{ tag string }

func (e *unknownTypeTagError) Error() string { return "config: unknown value type tag " + e.tag }
