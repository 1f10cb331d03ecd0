package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/abalone/pkg/errors"
	"github.com/YuminosukeSato/abalone/preprocessing"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	a, X := trainArtifact(t)
	path := filepath.Join(t.TempDir(), "models", "model.abalone")

	require.NoError(t, Save(path, a))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, a.Schema, loaded.Schema)
	assert.Equal(t, a.Params, loaded.Params)
	assert.Equal(t, a.Metadata.RunID, loaded.Metadata.RunID)
	assert.True(t, a.Metadata.CreatedAt.Equal(loaded.Metadata.CreatedAt))

	before, err := a.Predict(X)
	require.NoError(t, err)
	after, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, before.RawVector().Data, after.RawVector().Data)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	a, _ := trainArtifact(t)
	good, err := Marshal(a)
	require.NoError(t, err)

	truncated := good[:len(good)/2]
	badVersion := append([]byte(nil), good...)
	badVersion[len(magic)] = 99
	garbageBody := append(append([]byte(nil), good[:len(magic)+1]...), []byte("not zstd at all")...)

	tests := []struct {
		name    string
		content []byte
	}{
		{name: "empty file", content: nil},
		{name: "bad magic", content: []byte("PK\x03\x04 something else")},
		{name: "bad version", content: badVersion},
		{name: "truncated", content: truncated},
		{name: "garbage body", content: garbageBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			require.NoError(t, os.WriteFile(path, tt.content, 0o600))

			_, err := Load(path)
			var corrupt *errors.CorruptArtifactError
			require.True(t, errors.As(err, &corrupt), "got %v", err)
			assert.False(t, errors.IsRetryable(err))
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "absent"))
		var ioErr *errors.IOError
		require.True(t, errors.As(err, &ioErr))
		assert.True(t, errors.IsRetryable(err))
	})
}

func TestLoad_InconsistentArtifactIsCorrupt(t *testing.T) {
	a, _ := trainArtifact(t)

	// a schema with Rings has one more feature column than the model
	schema := *a.Schema
	schema.IncludeRings = true
	inconsistent := &Artifact{Model: a.Model, Params: a.Params, Schema: &schema, Metadata: a.Metadata}

	data, err := Marshal(inconsistent)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.abalone")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err = Load(path)
	var corrupt *errors.CorruptArtifactError
	assert.True(t, errors.As(err, &corrupt))
}

func TestSave_FailureKeepsPreviousArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.abalone")

	a, _ := trainArtifact(t)
	require.NoError(t, Save(path, a))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	t.Run("invalid artifact", func(t *testing.T) {
		err := Save(path, &Artifact{Schema: a.Schema})
		require.Error(t, err)

		after, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("rename onto a directory", func(t *testing.T) {
		target := filepath.Join(dir, "occupied")
		require.NoError(t, os.MkdirAll(filepath.Join(target, "child"), 0o755))

		err := Save(target, a)
		var ioErr *errors.IOError
		require.True(t, errors.As(err, &ioErr), "got %v", err)
	})

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temporary file left behind")
	}
}

func TestArtifact_PredictRejectsForeignColumns(t *testing.T) {
	a, X := trainArtifact(t)

	reordered := append([]string(nil), X.Columns...)
	reordered[0], reordered[1] = reordered[1], reordered[0]
	frame, err := preprocessing.NewFrame(reordered, X.Data)
	require.NoError(t, err)

	_, err = a.Predict(frame)
	var mismatch *errors.SchemaMismatchError
	assert.True(t, errors.As(err, &mismatch))
}

func TestArtifact_PredictOneRow(t *testing.T) {
	a, X := trainArtifact(t)

	pred, err := a.Predict(X.SelectRows([]int{4}))
	require.NoError(t, err)
	all, err := a.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, all.AtVec(4), pred.AtVec(0))
}

func TestNew_RejectsMismatchedModel(t *testing.T) {
	a, _ := trainArtifact(t)
	schema := *a.Schema
	schema.Categories = []string{"F", "M"}
	schema.Reference = "F"

	_, err := New(a.Model, &schema, Metadata{})
	assert.Error(t, err)
}
