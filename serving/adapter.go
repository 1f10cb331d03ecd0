package serving

import (
	"context"
	"fmt"
	"time"

	"github.com/YuminosukeSato/abalone/artifact"
	"github.com/YuminosukeSato/abalone/pkg/errors"
	"github.com/YuminosukeSato/abalone/pkg/log"
)

// Stage is a step of one prediction request.
type Stage string

const (
	StageReceived  Stage = "Received"
	StageEncoded   Stage = "Encoded"
	StagePredicted Stage = "Predicted"
	StageResponded Stage = "Responded"
)

// StageError records the last stage a failed request reached. The cause
// stays reachable through errors.As.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Adapter serves predictions from the artifact at one path. The artifact
// is read through the shared cache on every request, so a retrained model
// saved through the same cache is picked up without a restart.
type Adapter struct {
	cache     *artifact.Cache
	modelPath string
	metrics   *Metrics
	logger    log.Logger
}

// NewAdapter creates an adapter. metrics may be nil.
func NewAdapter(cache *artifact.Cache, modelPath string, metrics *Metrics) *Adapter {
	return &Adapter{
		cache:     cache,
		modelPath: modelPath,
		metrics:   metrics,
		logger:    log.GetLoggerWithName("serving"),
	}
}

// Health returns the static readiness payload.
func (a *Adapter) Health() HealthResponse {
	return HealthResponse{HealthCheck: HealthMessage}
}

// Warm loads the artifact into the cache and validates that its schema can
// be served.
func (a *Adapter) Warm(ctx context.Context) error {
	art, _, err := a.cache.Get(ctx, a.modelPath)
	if err != nil {
		return err
	}
	if art.Schema.IncludeRings {
		a.logger.Warn("Artifact schema includes Rings; every prediction will fail",
			log.PathKey, a.modelPath,
			log.ColumnsKey, art.FeatureColumns(),
		)
	}
	a.logger.Info("Serving artifact",
		log.PathKey, a.modelPath,
		log.SchemaVersionKey, art.Schema.Version,
		log.RunIDKey, art.Metadata.RunID,
		log.FeaturesKey, len(art.FeatureColumns()),
	)
	return nil
}

// Predict runs one request through Received, Encoded, Predicted and
// Responded. Errors are *StageError values wrapping the error kind.
func (a *Adapter) Predict(ctx context.Context, in ModelInput) (out ModelOutput, err error) {
	start := time.Now()
	stage := StageReceived
	logger := a.logger.With(log.OperationKey, log.OperationPredict)

	defer func() {
		if r := recover(); r != nil {
			err = errors.NewPanicError("serving.Predict", r)
		}
		if err != nil {
			err = &StageError{Stage: stage, Err: err}
		}
		a.observe(start, out, err)
		if err != nil {
			logger.Warn("Prediction failed", err, log.StageKey, string(stage))
		}
	}()

	// Received
	if err := in.Validate(); err != nil {
		return ModelOutput{}, err
	}
	logger.Debug("Request received", log.StageKey, string(stage))

	art, hit, err := a.cache.Get(ctx, a.modelPath)
	if a.metrics != nil && err == nil {
		a.metrics.CacheLookup.WithLabelValues(cacheResult(hit)).Inc()
	}
	if err != nil {
		return ModelOutput{}, err
	}

	frame, err := art.Schema.EncodeInput(in.Values(), in.Sex)
	if err != nil {
		return ModelOutput{}, err
	}
	stage = StageEncoded
	logger.Debug("Input encoded",
		log.StageKey, string(stage),
		log.ColumnsKey, frame.Columns,
		log.CacheHitKey, hit,
	)

	pred, err := art.Predict(frame)
	if err != nil {
		return ModelOutput{}, err
	}
	stage = StagePredicted

	out = ModelOutput{AbaloneAge: pred.AtVec(0)}
	stage = StageResponded
	logger.Info("Prediction served",
		log.StageKey, string(stage),
		log.PredictionKey, out.AbaloneAge,
		log.DurationMsKey, time.Since(start),
	)
	return out, nil
}

func (a *Adapter) observe(start time.Time, out ModelOutput, err error) {
	if a.metrics == nil {
		return
	}
	a.metrics.Latency.Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		a.metrics.Requests.WithLabelValues(outcomeOK).Inc()
		a.metrics.Predictions.Observe(out.AbaloneAge)
	case errors.IsClientError(err):
		a.metrics.Requests.WithLabelValues(outcomeClientError).Inc()
	default:
		a.metrics.Requests.WithLabelValues(outcomeServerError).Inc()
	}
}

func cacheResult(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
