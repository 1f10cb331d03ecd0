package tracking

import (
	"context"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/abalone/pkg/log"
)

// LogSink writes run events to the structured logger and stores nothing.
type LogSink struct {
	logger log.Logger
}

// NewLogSink creates a sink on the process logger.
func NewLogSink() *LogSink {
	return &LogSink{logger: log.GetLoggerWithName("tracking")}
}

func (s *LogSink) StartRun(_ context.Context, experiment string) (string, error) {
	id := uuid.NewString()
	s.logger.Info("Run started", log.RunIDKey, id, "experiment", experiment)
	return id, nil
}

func (s *LogSink) LogParams(_ context.Context, runID string, params map[string]any) error {
	s.logger.Info("Run params", log.RunIDKey, runID, "params", params)
	return nil
}

func (s *LogSink) LogMetrics(_ context.Context, runID string, metrics map[string]float64) error {
	s.logger.Info("Run metrics", log.RunIDKey, runID, "metrics", metrics)
	return nil
}

func (s *LogSink) EndRun(_ context.Context, runID string, status Status) error {
	s.logger.Info("Run ended", log.RunIDKey, runID, "status", string(status))
	return nil
}

func (s *LogSink) Close() error { return nil }

// Open returns a BoltSink for a non-empty path and a LogSink otherwise.
func Open(path string) (Sink, error) {
	if path == "" {
		return NewLogSink(), nil
	}
	return OpenBolt(path)
}
