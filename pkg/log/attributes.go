// Standard attribute keys for the training flow and the serving path.
//
// Keys follow a hierarchical naming convention ("data.samples",
// "serving.stage") so logs can be filtered by prefix.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator type, e.g. "gbdt.Regressor".
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the model lifecycle.
	PhaseKey = "ml.phase"

	// StepKey names a pipeline step ("read-data", "transform-data", ...).
	StepKey = "pipeline.step"

	// AttemptKey is the 1-based attempt number of a retried step.
	AttemptKey = "pipeline.attempt"

	// RunIDKey identifies one training run in the tracking sink.
	RunIDKey = "tracking.run_id"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of rows in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of feature columns.
	FeaturesKey = "data.features"

	// ColumnsKey lists feature column names.
	ColumnsKey = "data.columns"

	// TrainSamplesKey and TestSamplesKey describe a train/test split.
	TrainSamplesKey = "data.train_samples"
	TestSamplesKey  = "data.test_samples"

	// PathKey is a file path being read or written.
	PathKey = "io.path"

	// SchemaVersionKey is the feature schema version stored in an artifact.
	SchemaVersionKey = "schema.version"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// LossKey records the training loss.
	LossKey = "metrics.loss"

	// RMSEKey records root mean squared error.
	RMSEKey = "metrics.rmse"

	// R2ScoreKey records R² coefficient of determination for regression.
	R2ScoreKey = "metrics.r2_score"

	// IterationKey records the boosting iteration.
	IterationKey = "training.iteration"
)

// Serving Context
const (
	// StageKey is the inference adapter stage (Received, Encoded, ...).
	StageKey = "serving.stage"

	// PredictionKey is the predicted age.
	PredictionKey = "serving.prediction"

	// CacheHitKey reports whether an artifact came from the cache.
	CacheHitKey = "cache.hit"
)

// Error Context
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"

	PhaseTraining      = "training"
	PhaseTesting       = "testing"
	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
)
