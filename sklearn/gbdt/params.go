package gbdt

import (
	"fmt"

	"github.com/YuminosukeSato/abalone/pkg/errors"
)

// Params holds the boosting hyperparameters. Zero values are not defaults;
// start from DefaultParams.
type Params struct {
	NumEstimators  int     `yaml:"n_estimators" json:"n_estimators"`
	LearningRate   float64 `yaml:"learning_rate" json:"learning_rate"`
	MaxDepth       int     `yaml:"max_depth" json:"max_depth"`
	MinChildWeight float64 `yaml:"min_child_weight" json:"min_child_weight"`
	Lambda         float64 `yaml:"reg_lambda" json:"reg_lambda"`
	Gamma          float64 `yaml:"gamma" json:"gamma"`
	Objective      string  `yaml:"objective" json:"objective"`
}

// DefaultParams returns the library defaults: 100 trees of depth 6 with
// learning rate 0.3, min child weight 1, L2 regularization 1 and no
// minimum split loss.
func DefaultParams() Params {
	return Params{
		NumEstimators:  100,
		LearningRate:   0.3,
		MaxDepth:       6,
		MinChildWeight: 1,
		Lambda:         1,
		Gamma:          0,
		Objective:      ObjectiveSquaredError,
	}
}

// Validate checks that every parameter is in range.
func (p Params) Validate() error {
	switch {
	case p.NumEstimators < 1:
		return errors.NewValueError("Params.Validate", fmt.Sprintf("n_estimators must be >= 1, got %d", p.NumEstimators))
	case p.LearningRate <= 0 || p.LearningRate > 1:
		return errors.NewValueError("Params.Validate", fmt.Sprintf("learning_rate must be in (0, 1], got %g", p.LearningRate))
	case p.MaxDepth < 1:
		return errors.NewValueError("Params.Validate", fmt.Sprintf("max_depth must be >= 1, got %d", p.MaxDepth))
	case p.MinChildWeight < 0:
		return errors.NewValueError("Params.Validate", fmt.Sprintf("min_child_weight must be >= 0, got %g", p.MinChildWeight))
	case p.Lambda < 0:
		return errors.NewValueError("Params.Validate", fmt.Sprintf("reg_lambda must be >= 0, got %g", p.Lambda))
	case p.Gamma < 0:
		return errors.NewValueError("Params.Validate", fmt.Sprintf("gamma must be >= 0, got %g", p.Gamma))
	}
	if _, err := CreateObjectiveFunction(p.Objective); err != nil {
		return err
	}
	return nil
}
