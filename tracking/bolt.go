package tracking

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/YuminosukeSato/abalone/pkg/errors"
	"github.com/YuminosukeSato/abalone/pkg/log"
)

const runsBucket = "runs"

// BoltSink stores runs in a bbolt file, one JSON document per run keyed by
// a time-ordered UUID.
type BoltSink struct {
	db   *bbolt.DB
	path string
	now  func() time.Time
}

// OpenBolt opens (or creates) the tracking database at path.
func OpenBolt(path string) (*BoltSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.NewIOError("open tracking store", path, err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.NewIOError("open tracking store", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(runsBucket)); err != nil {
			return errors.Wrap(err, "create runs bucket")
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errors.NewIOError("open tracking store", path, err)
	}

	return &BoltSink{db: db, path: path, now: time.Now}, nil
}

// Close closes the database.
func (s *BoltSink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *BoltSink) StartRun(_ context.Context, experiment string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", errors.Wrap(err, "generate run id")
	}
	run := Run{
		ID:         id.String(),
		Experiment: experiment,
		Status:     StatusRunning,
		StartedAt:  s.now().UTC(),
	}
	if err := s.put(&run); err != nil {
		return "", err
	}

	log.GetLoggerWithName("tracking").Info("Run started",
		log.RunIDKey, run.ID,
		"experiment", experiment,
		log.PathKey, s.path,
	)
	return run.ID, nil
}

func (s *BoltSink) LogParams(_ context.Context, runID string, params map[string]any) error {
	return s.update(runID, func(run *Run) {
		if run.Params == nil {
			run.Params = make(map[string]any, len(params))
		}
		for k, v := range params {
			run.Params[k] = v
		}
	})
}

func (s *BoltSink) LogMetrics(_ context.Context, runID string, metrics map[string]float64) error {
	return s.update(runID, func(run *Run) {
		if run.Metrics == nil {
			run.Metrics = make(map[string]float64, len(metrics))
		}
		for k, v := range metrics {
			run.Metrics[k] = v
		}
	})
}

func (s *BoltSink) EndRun(_ context.Context, runID string, status Status) error {
	return s.update(runID, func(run *Run) {
		run.Status = status
		run.EndedAt = s.now().UTC()
	})
}

// GetRun returns the stored run.
func (s *BoltSink) GetRun(runID string) (*Run, error) {
	var run Run
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(runsBucket)).Get([]byte(runID))
		if data == nil {
			return errors.NewValueError("tracking.GetRun", "unknown run "+runID)
		}
		return json.Unmarshal(data, &run)
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the runs of an experiment, oldest first. An empty
// experiment lists every run.
func (s *BoltSink) ListRuns(experiment string) ([]Run, error) {
	var runs []Run
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(runsBucket)).ForEach(func(_, v []byte) error {
			var run Run
			if err := json.Unmarshal(v, &run); err != nil {
				return nil // skip malformed records
			}
			if experiment == "" || run.Experiment == experiment {
				runs = append(runs, run)
			}
			return nil
		})
	})
	return runs, err
}

func (s *BoltSink) put(run *Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return errors.Wrap(err, "marshal run")
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(runsBucket)).Put([]byte(run.ID), data)
	})
	if err != nil {
		return errors.NewIOError("write run", s.path, err)
	}
	return nil
}

func (s *BoltSink) update(runID string, mutate func(*Run)) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))
		data := b.Get([]byte(runID))
		if data == nil {
			return errors.NewValueError("tracking.update", "unknown run "+runID)
		}
		var run Run
		if err := json.Unmarshal(data, &run); err != nil {
			return errors.Wrap(err, "unmarshal run")
		}
		mutate(&run)
		out, err := json.Marshal(&run)
		if err != nil {
			return errors.Wrap(err, "marshal run")
		}
		return b.Put([]byte(runID), out)
	})
}
