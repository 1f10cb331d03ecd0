package serving

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/abalone/artifact"
	"github.com/YuminosukeSato/abalone/dataset"
	"github.com/YuminosukeSato/abalone/preprocessing"
	"github.com/YuminosukeSato/abalone/sklearn/gbdt"
)

var scenarioInput = ModelInput{
	Length:        0.4,
	Diameter:      0.3,
	Height:        0.1,
	WholeWeight:   0.5,
	ShuckedWeight: 0.2,
	VisceraWeight: 0.1,
	ShellWeight:   0.15,
	Sex:           "M",
}

func records(sexes ...string) []dataset.RawRecord {
	recs := make([]dataset.RawRecord, 24)
	for i := range recs {
		f := float64(i)
		recs[i] = dataset.RawRecord{
			Sex:           sexes[i%len(sexes)],
			Length:        0.3 + f*0.01,
			Diameter:      0.2 + f*0.008,
			Height:        0.08 + f*0.002,
			WholeWeight:   0.2 + f*0.02,
			ShuckedWeight: 0.09 + f*0.008,
			VisceraWeight: 0.04 + f*0.004,
			ShellWeight:   0.06 + f*0.007,
			Rings:         4 + i%11,
		}
	}
	return recs
}

// saveArtifact trains a small model on recs and writes it to a temp file.
func saveArtifact(t *testing.T, recs []dataset.RawRecord, opts preprocessing.Options) (string, *artifact.Artifact) {
	t.Helper()

	frame, schema, err := preprocessing.Transform(dataset.New(recs), opts)
	require.NoError(t, err)
	y, err := frame.Column(schema.Target)
	require.NoError(t, err)
	X, err := frame.Drop(schema.Target)
	require.NoError(t, err)

	reg := gbdt.NewRegressor().WithNumEstimators(5).WithFeatureNames(X.Columns)
	require.NoError(t, reg.Fit(X.Data, y))
	model, err := reg.Model()
	require.NoError(t, err)

	a, err := artifact.New(model, schema, artifact.Metadata{RunID: "serving-test"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.abalone")
	require.NoError(t, artifact.Save(path, a))
	return path, a
}

func newAdapter(t *testing.T, path string) (*Adapter, *prometheus.Registry) {
	t.Helper()
	cache, err := artifact.NewCache(2)
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	return NewAdapter(cache, path, NewMetrics(reg)), reg
}

// writeInconsistentArtifact stores an artifact whose schema claims Rings
// while the model was fitted without it.
func writeInconsistentArtifact(t *testing.T) string {
	t.Helper()
	_, a := saveArtifact(t, records("F", "I", "M"), preprocessing.Options{DropRings: true})

	schema := *a.Schema
	schema.IncludeRings = true
	broken := *a
	broken.Schema = &schema

	data, err := artifact.Marshal(&broken)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "inconsistent.abalone")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
