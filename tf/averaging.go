package tf

import (
	"github.com/iascore/alarmcore/errors"
	"github.com/iascore/alarmcore/value"
)

// Averaging is the third reference TF (§4.4a, supplementing the original
// two so scenario S3's "seven CEs with one averaging TF feeding a level-2
// multiplicity" is buildable). Output type is DOUBLE: the arithmetic mean
// of N numeric inputs. Validity is the plain min over all inputs — it sets
// no constraint subset.
type Averaging struct{}

// Initialize takes no configuration.
func (a *Averaging) Initialize(params InitParams) error { return nil }

// Eval computes the arithmetic mean of every input, coerced to float64.
func (a *Averaging) Eval(inputs map[string]value.Value, priorOutput value.Value) (Eval, error) {
	if len(inputs) == 0 {
		return Eval{}, errors.WrapInvalid(errors.ErrTypeMismatch, "Averaging", "Eval", "expects at least one input")
	}

	sum := 0.0
	for _, in := range inputs {
		f, err := coerceFloat(in)
		if err != nil {
			return Eval{}, errors.WrapInvalid(err, "Averaging", "Eval", "coerce input to double")
		}
		sum += f
	}

	return Eval{
		TypeTag: value.Double,
		Payload: sum / float64(len(inputs)),
		Mode:    value.Operational,
	}, nil
}

// Shutdown is a no-op: Averaging holds no resources.
func (a *Averaging) Shutdown() error { return nil }
