// Package tracking records training runs: their parameters, metrics and
// outcome.
package tracking

import (
	"context"
	"time"
)

// Status is the final state of a run.
type Status string

const (
	StatusRunning  Status = "RUNNING"
	StatusFinished Status = "FINISHED"
	StatusFailed   Status = "FAILED"
)

// Run is one training run as stored by a Sink.
type Run struct {
	ID         string             `json:"id"`
	Experiment string             `json:"experiment"`
	Status     Status             `json:"status"`
	StartedAt  time.Time          `json:"started_at"`
	EndedAt    time.Time          `json:"ended_at,omitempty"`
	Params     map[string]any     `json:"params,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// Sink receives run parameters and metrics. Implementations must be safe
// for use by one training flow at a time; they need not be concurrent.
type Sink interface {
	StartRun(ctx context.Context, experiment string) (string, error)
	LogParams(ctx context.Context, runID string, params map[string]any) error
	LogMetrics(ctx context.Context, runID string, metrics map[string]float64) error
	EndRun(ctx context.Context, runID string, status Status) error
	Close() error
}
