package gbdt

import (
	"fmt"

	"github.com/YuminosukeSato/abalone/pkg/errors"
)

// ObjectiveFunction defines the loss a booster minimizes.
type ObjectiveFunction interface {
	// CalculateGradient calculates the gradient for a single sample
	CalculateGradient(prediction, target float64) float64

	// CalculateHessian calculates the hessian for a single sample
	CalculateHessian(prediction, target float64) float64

	// CalculateLoss calculates the loss for a single sample
	CalculateLoss(prediction, target float64) float64

	// GetInitScore returns the initial score for this objective
	GetInitScore(targets []float64) float64

	// Name returns the name of the objective
	Name() string
}

// ObjectiveSquaredError is the only supported objective name.
const ObjectiveSquaredError = "reg:squarederror"

// SquaredErrorObjective implements 0.5·(prediction − target)².
type SquaredErrorObjective struct{}

func (SquaredErrorObjective) CalculateGradient(prediction, target float64) float64 {
	return prediction - target
}

func (SquaredErrorObjective) CalculateHessian(_, _ float64) float64 {
	return 1.0
}

func (SquaredErrorObjective) CalculateLoss(prediction, target float64) float64 {
	diff := prediction - target
	return 0.5 * diff * diff
}

// GetInitScore returns the mean of the targets.
func (SquaredErrorObjective) GetInitScore(targets []float64) float64 {
	if len(targets) == 0 {
		return 0
	}
	var sum float64
	for _, t := range targets {
		sum += t
	}
	return sum / float64(len(targets))
}

func (SquaredErrorObjective) Name() string { return ObjectiveSquaredError }

// CreateObjectiveFunction returns the objective registered under name.
// An empty name selects squared error.
func CreateObjectiveFunction(name string) (ObjectiveFunction, error) {
	switch name {
	case "", ObjectiveSquaredError, "regression", "l2":
		return SquaredErrorObjective{}, nil
	}
	return nil, errors.NewValueError("CreateObjectiveFunction", fmt.Sprintf("unsupported objective %q", name))
}
