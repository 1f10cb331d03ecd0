// Package serving turns one external prediction request into a model
// prediction and exposes it over HTTP.
package serving

import (
	"fmt"
	"math"
	"strings"

	"github.com/YuminosukeSato/abalone/dataset"
	"github.com/YuminosukeSato/abalone/pkg/errors"
)

// HealthMessage is the static readiness payload.
const HealthMessage = "App up and running!"

// ModelInput is one abalone to predict.
type ModelInput struct {
	Length        float64 `json:"length"`
	Diameter      float64 `json:"diameter"`
	Height        float64 `json:"height"`
	WholeWeight   float64 `json:"whole_weight"`
	ShuckedWeight float64 `json:"shucked_weight"`
	VisceraWeight float64 `json:"viscera_weight"`
	ShellWeight   float64 `json:"shell_weight"`
	Sex           string  `json:"sex"`
}

// ModelOutput is the predicted age in years.
type ModelOutput struct {
	AbaloneAge float64 `json:"abalone_age"`
}

// HealthResponse is returned by the health operation.
type HealthResponse struct {
	HealthCheck string `json:"health_check"`
}

// Values returns the continuous attributes keyed by dataset column name.
func (in ModelInput) Values() map[string]float64 {
	return map[string]float64{
		dataset.ColLength:        in.Length,
		dataset.ColDiameter:      in.Diameter,
		dataset.ColHeight:        in.Height,
		dataset.ColWholeWeight:   in.WholeWeight,
		dataset.ColShuckedWeight: in.ShuckedWeight,
		dataset.ColVisceraWeight: in.VisceraWeight,
		dataset.ColShellWeight:   in.ShellWeight,
	}
}

// Validate rejects negative or non-finite measurements and unknown sex
// symbols. All failures are ValueErrors.
func (in ModelInput) Validate() error {
	values := in.Values()
	for _, col := range dataset.ContinuousColumns {
		v := values[col]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.NewValueError("ModelInput.Validate", fmt.Sprintf("%s is not a finite number", col))
		}
		if v < 0 {
			return errors.NewValueError("ModelInput.Validate", fmt.Sprintf("%s must be non-negative, got %g", col, v))
		}
	}
	if !dataset.IsKnownSex(in.Sex) {
		return errors.NewValueError("ModelInput.Validate",
			fmt.Sprintf("unknown sex symbol %q (want one of %s)", in.Sex, strings.Join(dataset.KnownSexes(), ", ")))
	}
	return nil
}

// predictRequest is the wire form of ModelInput. Pointers tell a missing
// field from a zero.
type predictRequest struct {
	Length        *float64 `json:"length"`
	Diameter      *float64 `json:"diameter"`
	Height        *float64 `json:"height"`
	WholeWeight   *float64 `json:"whole_weight"`
	ShuckedWeight *float64 `json:"shucked_weight"`
	VisceraWeight *float64 `json:"viscera_weight"`
	ShellWeight   *float64 `json:"shell_weight"`
	Sex           *string  `json:"sex"`
}

func (r predictRequest) input() (ModelInput, error) {
	var missing []string
	num := func(name string, p *float64) float64 {
		if p == nil {
			missing = append(missing, name)
			return 0
		}
		return *p
	}
	in := ModelInput{
		Length:        num("length", r.Length),
		Diameter:      num("diameter", r.Diameter),
		Height:        num("height", r.Height),
		WholeWeight:   num("whole_weight", r.WholeWeight),
		ShuckedWeight: num("shucked_weight", r.ShuckedWeight),
		VisceraWeight: num("viscera_weight", r.VisceraWeight),
		ShellWeight:   num("shell_weight", r.ShellWeight),
	}
	if r.Sex == nil {
		missing = append(missing, "sex")
	} else {
		in.Sex = *r.Sex
	}
	if len(missing) > 0 {
		return ModelInput{}, errors.NewValueError("predict", "missing fields: "+strings.Join(missing, ", "))
	}
	return in, nil
}
