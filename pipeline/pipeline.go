package pipeline

import (
	"context"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/abalone/artifact"
	"github.com/YuminosukeSato/abalone/dataset"
	"github.com/YuminosukeSato/abalone/pkg/config"
	"github.com/YuminosukeSato/abalone/pkg/errors"
	"github.com/YuminosukeSato/abalone/pkg/log"
	"github.com/YuminosukeSato/abalone/pkg/retry"
	"github.com/YuminosukeSato/abalone/preprocessing"
	"github.com/YuminosukeSato/abalone/report"
	"github.com/YuminosukeSato/abalone/selection"
	"github.com/YuminosukeSato/abalone/sklearn/gbdt"
	"github.com/YuminosukeSato/abalone/tracking"
)

// Options configures a training flow.
type Options struct {
	DataPath   string
	ModelPath  string
	Features   preprocessing.Options
	Split      selection.SplitOptions
	Params     gbdt.Params
	Retry      retry.Policy
	Experiment string

	// PlotPath, when set, receives a predicted-vs-actual chart of the
	// test rows.
	PlotPath string

	// Saver defaults to writing the file directly.
	Saver Saver
}

// DefaultOptions returns the built-in flow settings.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// OptionsFromConfig maps the configuration onto flow options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		DataPath:   cfg.Data.Path,
		ModelPath:  cfg.Model.Path,
		Features:   preprocessing.Options{DropRings: cfg.Training.DropRings},
		Split:      cfg.SplitOptions(),
		Params:     cfg.Training.Params,
		Retry:      cfg.RetryPolicy(),
		Experiment: cfg.Tracking.Experiment,
		PlotPath:   cfg.Training.PlotPath,
	}
}

// Result is everything a training flow produced.
type Result struct {
	Artifact    *artifact.Artifact
	Split       *selection.Split
	Predictions *mat.VecDense
	Evaluation  Evaluation
}

// Train runs transform, split, train, predict and evaluate on ds and
// returns the fitted artifact. Nothing is written.
func Train(ctx context.Context, ds *dataset.Dataset, opts Options) (*Result, error) {
	policy := opts.Retry

	features, err := retry.Step(StepTransformData, policy, func(ctx context.Context) (Features, error) {
		return TransformData(ctx, ds, opts.Features)
	})(ctx)
	if err != nil {
		return nil, err
	}

	split, err := retry.Step(StepSplit, policy, func(ctx context.Context) (*selection.Split, error) {
		return SplitData(ctx, features, opts.Split)
	})(ctx)
	if err != nil {
		return nil, err
	}

	model, err := retry.Step(StepTrainModel, policy, func(ctx context.Context) (*gbdt.Model, error) {
		return TrainModel(ctx, split, opts.Params)
	})(ctx)
	if err != nil {
		return nil, err
	}

	a, err := artifact.New(model, features.Schema, artifact.Metadata{
		CreatedAt:    time.Now().UTC(),
		DataPath:     ds.Source(),
		TrainSamples: split.XTrain.Rows(),
		TestSamples:  split.XTest.Rows(),
	})
	if err != nil {
		return nil, err
	}

	pred, err := retry.Step(StepPredict, policy, func(ctx context.Context) (*mat.VecDense, error) {
		return Predict(ctx, a, split.XTest)
	})(ctx)
	if err != nil {
		return nil, err
	}

	eval, err := retry.Step(StepEvaluate, policy, func(ctx context.Context) (Evaluation, error) {
		return Evaluate(ctx, split.YTest, pred)
	})(ctx)
	if err != nil {
		return nil, err
	}
	a.Metadata.RMSE = eval.RMSE
	a.Metadata.R2 = eval.R2

	return &Result{Artifact: a, Split: split, Predictions: pred, Evaluation: eval}, nil
}

// Run is the full training flow: read the dataset, train, save the
// artifact and record the run in sink. The previous artifact at
// ModelPath is left in place when any step fails.
func Run(ctx context.Context, opts Options, sink tracking.Sink) (res *Result, err error) {
	if sink == nil {
		sink = tracking.NewLogSink()
	}
	saver := opts.Saver
	if saver == nil {
		saver = fileSaver{}
	}
	policy := opts.Retry
	logger := log.GetLoggerWithName("pipeline")
	start := time.Now()

	runID, err := retry.Step(StepTrack, policy, func(ctx context.Context) (string, error) {
		return sink.StartRun(ctx, opts.Experiment)
	})(ctx)
	if err != nil {
		return nil, err
	}
	logger = logger.With(log.RunIDKey, runID)

	defer func() {
		status := tracking.StatusFinished
		if err != nil {
			status = tracking.StatusFailed
			logger.Error("Training flow failed", err, log.DurationMsKey, time.Since(start))
		}
		if endErr := sink.EndRun(context.WithoutCancel(ctx), runID, status); endErr != nil {
			logger.Warn("Could not close tracking run", endErr)
		}
	}()

	err = policy.Execute(ctx, StepTrack, func(ctx context.Context) error {
		return sink.LogParams(ctx, runID, runParams(opts))
	})
	if err != nil {
		return nil, errors.Wrap(err, "log params")
	}

	if opts.PlotPath != "" {
		if err = report.CheckPath(opts.PlotPath); err != nil {
			return nil, err
		}
	}

	ds, err := retry.Step(StepReadData, policy, func(ctx context.Context) (*dataset.Dataset, error) {
		return ReadData(ctx, opts.DataPath)
	})(ctx)
	if err != nil {
		return nil, err
	}

	res, err = Train(ctx, ds, opts)
	if err != nil {
		return nil, err
	}
	res.Artifact.Metadata.RunID = runID

	err = policy.Execute(ctx, StepSaveModel, func(ctx context.Context) error {
		return SaveModel(ctx, saver, opts.ModelPath, res.Artifact)
	})
	if err != nil {
		return nil, err
	}

	if opts.PlotPath != "" {
		err = policy.Execute(ctx, StepPlot, func(context.Context) error {
			return report.PredictedVsActual(opts.PlotPath, res.Split.YTest, res.Predictions,
				res.Evaluation.RMSE, res.Evaluation.R2)
		})
		if err != nil {
			return nil, err
		}
	}

	err = policy.Execute(ctx, StepTrack, func(ctx context.Context) error {
		return sink.LogMetrics(ctx, runID, map[string]float64{
			"rmse":          res.Evaluation.RMSE,
			"r2":            res.Evaluation.R2,
			"train_samples": float64(res.Split.XTrain.Rows()),
			"test_samples":  float64(res.Split.XTest.Rows()),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Training flow finished",
		log.PathKey, opts.ModelPath,
		log.RMSEKey, res.Evaluation.RMSE,
		log.R2ScoreKey, res.Evaluation.R2,
		log.DurationMsKey, time.Since(start),
	)
	return res, nil
}

func runParams(opts Options) map[string]any {
	p := opts.Params
	return map[string]any{
		"data_path":        opts.DataPath,
		"model_path":       opts.ModelPath,
		"drop_rings":       opts.Features.DropRings,
		"test_size":        opts.Split.TestSize,
		"seed":             opts.Split.Seed,
		"n_estimators":     p.NumEstimators,
		"learning_rate":    p.LearningRate,
		"max_depth":        p.MaxDepth,
		"min_child_weight": p.MinChildWeight,
		"reg_lambda":       p.Lambda,
		"gamma":            p.Gamma,
		"objective":        p.Objective,
	}
}
