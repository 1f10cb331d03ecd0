package artifact

import (
	"os"
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/abalone/pkg/errors"
	"github.com/YuminosukeSato/abalone/pkg/log"
)

// Save writes a to path atomically: the bytes go to a temporary file in the
// same directory, which is synced and then renamed over path. A failed save
// leaves any previous file at path untouched.
func Save(path string, a *Artifact) error {
	logger := log.GetLoggerWithName("artifact")
	start := time.Now()

	if a == nil {
		return errors.NewValueError("artifact.Save", "nil artifact")
	}
	if err := a.Validate(); err != nil {
		return err
	}
	data, err := Marshal(a)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewIOError("save", path, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.NewIOError("save", path, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return errors.NewIOError("save", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return errors.NewIOError("save", path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewIOError("save", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.NewIOError("save", path, err)
	}
	committed = true
	syncDir(dir)

	logger.Info("Artifact saved",
		log.PathKey, path,
		log.SchemaVersionKey, a.Schema.Version,
		log.FeaturesKey, a.Model.NumFeatures,
		"bytes", len(data),
		log.DurationMsKey, time.Since(start),
	)
	return nil
}

// Load reads and validates the artifact at path.
func Load(path string) (*Artifact, error) {
	logger := log.GetLoggerWithName("artifact")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError("load", path, err)
	}
	a, err := Unmarshal(path, data)
	if err != nil {
		return nil, err
	}

	logger.Info("Artifact loaded",
		log.PathKey, path,
		log.SchemaVersionKey, a.Schema.Version,
		log.RunIDKey, a.Metadata.RunID,
		log.ColumnsKey, a.Schema.FeatureColumns(),
	)
	return a, nil
}

// syncDir flushes the directory entry of a completed rename. Not every
// platform supports it, so errors are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
