package artifact

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/abalone/dataset"
	"github.com/YuminosukeSato/abalone/preprocessing"
	"github.com/YuminosukeSato/abalone/sklearn/gbdt"
)

func sampleDataset() *dataset.Dataset {
	sexes := []string{"M", "F", "I"}
	recs := make([]dataset.RawRecord, 30)
	for i := range recs {
		f := float64(i)
		recs[i] = dataset.RawRecord{
			Sex:           sexes[i%3],
			Length:        0.3 + f*0.01,
			Diameter:      0.2 + f*0.008,
			Height:        0.08 + f*0.002,
			WholeWeight:   0.2 + f*0.02,
			ShuckedWeight: 0.09 + f*0.008,
			VisceraWeight: 0.04 + f*0.004,
			ShellWeight:   0.06 + f*0.007,
			Rings:         5 + i%12,
		}
	}
	return dataset.New(recs)
}

// trainArtifact fits a small model on sampleDataset and returns it with the
// feature frame used for training.
func trainArtifact(t *testing.T) (*Artifact, preprocessing.Frame) {
	t.Helper()

	frame, schema, err := preprocessing.Transform(sampleDataset(), preprocessing.Options{DropRings: true})
	require.NoError(t, err)
	y, err := frame.Column(schema.Target)
	require.NoError(t, err)
	X, err := frame.Drop(schema.Target)
	require.NoError(t, err)

	reg := gbdt.NewRegressor().WithNumEstimators(10).WithFeatureNames(X.Columns)
	require.NoError(t, reg.Fit(X.Data, y))
	model, err := reg.Model()
	require.NoError(t, err)

	a, err := New(model, schema, Metadata{
		RunID:        "test-run",
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		TrainSamples: 30,
	})
	require.NoError(t, err)
	return a, X
}
