// Package artifact persists fitted models together with the feature schema
// they were trained on, and serves them to concurrent readers.
package artifact

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/abalone/pkg/errors"
	"github.com/YuminosukeSato/abalone/preprocessing"
	"github.com/YuminosukeSato/abalone/sklearn/gbdt"
)

// Metadata describes the training run that produced an artifact.
type Metadata struct {
	RunID        string
	CreatedAt    time.Time
	DataPath     string
	TrainSamples int
	TestSamples  int
	RMSE         float64
	R2           float64
}

// Artifact is a fitted model plus everything needed to feed it. It is
// read-only once built or loaded and may be shared between goroutines.
type Artifact struct {
	Model    *gbdt.Model
	Params   gbdt.Params
	Schema   *preprocessing.FeatureSchema
	Metadata Metadata
}

// New assembles an artifact and checks that the model and schema agree.
func New(model *gbdt.Model, schema *preprocessing.FeatureSchema, meta Metadata) (*Artifact, error) {
	a := &Artifact{Schema: schema, Metadata: meta}
	if model != nil {
		a.Model = model
		a.Params = model.Params
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// FeatureColumns is the exact column list Predict accepts.
func (a *Artifact) FeatureColumns() []string {
	return a.Schema.FeatureColumns()
}

// Validate checks the artifact's internal consistency.
func (a *Artifact) Validate() error {
	if a.Model == nil {
		return errors.NewValueError("Artifact.Validate", "missing model")
	}
	if a.Schema == nil {
		return errors.NewValueError("Artifact.Validate", "missing feature schema")
	}
	if err := a.Schema.Validate(); err != nil {
		return errors.Wrap(err, "feature schema")
	}
	if err := a.Model.Validate(); err != nil {
		return errors.Wrap(err, "model")
	}

	cols := a.Schema.FeatureColumns()
	if a.Model.NumFeatures != len(cols) {
		return errors.NewValueError("Artifact.Validate",
			fmt.Sprintf("model expects %d features, schema defines %d", a.Model.NumFeatures, len(cols)))
	}
	if len(a.Model.FeatureNames) > 0 && !preprocessing.SameColumns(a.Model.FeatureNames, cols) {
		return errors.NewValueError("Artifact.Validate", "model feature names differ from schema columns")
	}
	return nil
}

// Predict returns one prediction per frame row, in row order. The frame's
// columns must match the schema exactly; nothing is reordered or filled in.
func (a *Artifact) Predict(frame preprocessing.Frame) (*mat.VecDense, error) {
	want := a.Schema.FeatureColumns()
	if !preprocessing.SameColumns(want, frame.Columns) {
		return nil, errors.NewSchemaMismatchError(want, frame.Columns, "frame columns differ from the artifact schema")
	}
	if frame.Rows() == 0 {
		return nil, errors.NewValueError("Artifact.Predict", "empty frame")
	}
	return a.Model.Predict(frame.Data)
}
