// Package pipeline is the training flow. Each step is a plain function
// with its own inputs and outputs so it can be called, retried and
// logged on its own; Train and Run sequence them.
package pipeline

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/abalone/artifact"
	"github.com/YuminosukeSato/abalone/dataset"
	"github.com/YuminosukeSato/abalone/metrics"
	"github.com/YuminosukeSato/abalone/pkg/log"
	"github.com/YuminosukeSato/abalone/preprocessing"
	"github.com/YuminosukeSato/abalone/selection"
	"github.com/YuminosukeSato/abalone/sklearn/gbdt"
)

// Step names as they appear in logs.
const (
	StepReadData      = "read-data"
	StepTransformData = "transform-data"
	StepSplit         = "val-split"
	StepTrainModel    = "train-model"
	StepPredict       = "predict"
	StepEvaluate      = "evaluate"
	StepSaveModel     = "save-model"
	StepPlot          = "plot"
	StepTrack         = "track-run"
)

// Features is the output of TransformData.
type Features struct {
	Frame  preprocessing.Frame
	Schema *preprocessing.FeatureSchema
}

// Evaluation holds the test-set metrics.
type Evaluation struct {
	RMSE float64
	R2   float64
}

// ReadData reads the dataset CSV at path.
func ReadData(_ context.Context, path string) (*dataset.Dataset, error) {
	ds, err := dataset.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	stepLogger(StepReadData).Info("Dataset read",
		log.PathKey, path,
		log.SamplesKey, ds.Len(),
		log.ColumnsKey, ds.Columns(),
	)
	return ds, nil
}

// TransformData fits the feature schema on ds and encodes it.
func TransformData(_ context.Context, ds *dataset.Dataset, opts preprocessing.Options) (Features, error) {
	frame, schema, err := preprocessing.Transform(ds, opts)
	if err != nil {
		return Features{}, err
	}
	stepLogger(StepTransformData).Info("Features built",
		log.OperationKey, log.OperationTransform,
		log.SamplesKey, frame.Rows(),
		log.ColumnsKey, frame.Columns,
		log.SchemaVersionKey, schema.Version,
	)
	return Features{Frame: frame, Schema: schema}, nil
}

// SplitData separates the target and splits rows into train and test.
func SplitData(_ context.Context, f Features, opts selection.SplitOptions) (*selection.Split, error) {
	split, err := selection.TrainTestSplit(f.Frame, f.Schema.Target, opts)
	if err != nil {
		return nil, err
	}
	stepLogger(StepSplit).Info("Data split",
		log.TrainSamplesKey, split.XTrain.Rows(),
		log.TestSamplesKey, split.XTest.Rows(),
	)
	return split, nil
}

// TrainModel fits a gradient boosted regressor on the train side.
func TrainModel(_ context.Context, split *selection.Split, params gbdt.Params) (*gbdt.Model, error) {
	reg := gbdt.NewRegressorWithParams(params).WithFeatureNames(split.XTrain.Columns)
	if err := reg.Fit(split.XTrain.Data, split.YTrain); err != nil {
		return nil, err
	}
	return reg.Model()
}

// Predict runs the artifact on a frame.
func Predict(_ context.Context, a *artifact.Artifact, X preprocessing.Frame) (*mat.VecDense, error) {
	return a.Predict(X)
}

// Evaluate scores predictions against the truth.
func Evaluate(_ context.Context, yTrue, yPred *mat.VecDense) (Evaluation, error) {
	rmse, r2, err := metrics.Evaluate(yTrue, yPred)
	if err != nil {
		return Evaluation{}, err
	}
	stepLogger(StepEvaluate).Info("Model evaluated",
		log.OperationKey, log.OperationScore,
		log.PhaseKey, log.PhaseTesting,
		log.RMSEKey, rmse,
		log.R2ScoreKey, r2,
	)
	return Evaluation{RMSE: rmse, R2: r2}, nil
}

// Saver persists an artifact. *artifact.Cache satisfies it.
type Saver interface {
	Save(path string, a *artifact.Artifact) error
}

type fileSaver struct{}

func (fileSaver) Save(path string, a *artifact.Artifact) error { return artifact.Save(path, a) }

// SaveModel writes the artifact to path.
func SaveModel(_ context.Context, s Saver, path string, a *artifact.Artifact) error {
	start := time.Now()
	if err := s.Save(path, a); err != nil {
		return err
	}
	stepLogger(StepSaveModel).Info("Artifact saved",
		log.PathKey, path,
		log.RunIDKey, a.Metadata.RunID,
		log.DurationMsKey, time.Since(start),
	)
	return nil
}

func stepLogger(step string) log.Logger {
	return log.GetLoggerWithName("pipeline").With(log.StepKey, step)
}
