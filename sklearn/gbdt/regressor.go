package gbdt

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/abalone/core/model"
	"github.com/YuminosukeSato/abalone/pkg/errors"
	"github.com/YuminosukeSato/abalone/pkg/log"
)

// Regressor is a gradient boosted tree regressor with a Fit/Predict API.
type Regressor struct {
	state *model.StateManager

	Params Params

	// FeatureNames are attached to the fitted model when set.
	FeatureNames []string

	model *Model
}

// NewRegressor creates a regressor with DefaultParams.
func NewRegressor() *Regressor {
	return NewRegressorWithParams(DefaultParams())
}

// NewRegressorWithParams creates a regressor with explicit parameters.
func NewRegressorWithParams(params Params) *Regressor {
	return &Regressor{
		state:  model.NewStateManager("gbdt.Regressor"),
		Params: params,
	}
}

// WithNumEstimators sets the number of boosting rounds
func (r *Regressor) WithNumEstimators(n int) *Regressor {
	r.Params.NumEstimators = n
	return r
}

// WithLearningRate sets the learning rate
func (r *Regressor) WithLearningRate(lr float64) *Regressor {
	r.Params.LearningRate = lr
	return r
}

// WithMaxDepth sets the maximum depth
func (r *Regressor) WithMaxDepth(d int) *Regressor {
	r.Params.MaxDepth = d
	return r
}

// WithFeatureNames records column names on the fitted model.
func (r *Regressor) WithFeatureNames(names []string) *Regressor {
	r.FeatureNames = append([]string(nil), names...)
	return r
}

// Fit trains the regressor on X (n_samples × n_features) and y.
func (r *Regressor) Fit(X mat.Matrix, y *mat.VecDense) (err error) {
	defer errors.Recover(&err, "gbdt.Regressor.Fit")

	if err := r.Params.Validate(); err != nil {
		return err
	}
	if X == nil || y == nil {
		return errors.NewValueError("gbdt.Regressor.Fit", "nil input")
	}

	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewValueError("gbdt.Regressor.Fit", "empty data")
	}
	if y.Len() != rows {
		return errors.NewDimensionError("gbdt.Regressor.Fit", rows, y.Len(), 0)
	}
	if len(r.FeatureNames) != 0 && len(r.FeatureNames) != cols {
		return errors.NewDimensionError("gbdt.Regressor.Fit", len(r.FeatureNames), cols, 1)
	}
	if err := errors.CheckMatrix("gbdt.Regressor.Fit", X, rows, cols, 0); err != nil {
		return err
	}
	if err := errors.CheckMatrix("gbdt.Regressor.Fit", y, rows, 1, 0); err != nil {
		return err
	}

	logger := log.GetLoggerWithName("gbdt.regressor")
	logger.Info("Training gbdt.Regressor",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"n_estimators", r.Params.NumEstimators,
		"learning_rate", r.Params.LearningRate,
		"max_depth", r.Params.MaxDepth,
	)
	start := time.Now()

	xDense := mat.DenseCopyOf(X)
	targets := make([]float64, rows)
	for i := range targets {
		targets[i] = y.AtVec(i)
	}

	r.state.Reset()
	trainer := NewTrainer(r.Params)
	if err := trainer.Fit(xDense, targets); err != nil {
		return errors.Wrap(err, "training failed")
	}

	r.model = trainer.GetModel()
	r.model.FeatureNames = append([]string(nil), r.FeatureNames...)
	r.state.SetDimensions(cols, rows)
	r.state.SetFitted()

	logger.Info("Training completed",
		log.OperationKey, log.OperationFit,
		log.DurationMsKey, time.Since(start),
		"trees", len(r.model.Trees),
	)
	return nil
}

// Predict makes one prediction per row of X.
func (r *Regressor) Predict(X mat.Matrix) (*mat.VecDense, error) {
	if err := r.state.RequireFitted("Predict"); err != nil {
		return nil, err
	}
	return r.model.Predict(X)
}

// Model returns the fitted ensemble.
func (r *Regressor) Model() (*Model, error) {
	if err := r.state.RequireFitted("Model"); err != nil {
		return nil, err
	}
	return r.model, nil
}

// IsFitted reports whether Fit has completed successfully.
func (r *Regressor) IsFitted() bool {
	return r.state.IsFitted()
}
