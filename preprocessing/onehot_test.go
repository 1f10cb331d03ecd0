package preprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/abalone/pkg/errors"
)

func TestOneHotEncoder(t *testing.T) {
	enc := NewOneHotEncoder("Sex", true)

	_, err := enc.Transform([]string{"M"})
	var notFitted *errors.NotFittedError
	require.True(t, errors.As(err, &notFitted))

	require.NoError(t, enc.Fit([]string{"M", "I", "M", "F"}))
	assert.Equal(t, []string{"F", "I", "M"}, enc.Categories)
	assert.Equal(t, "F", enc.Reference())
	assert.Equal(t, []string{"Sex_I", "Sex_M"}, enc.FeatureNames())

	X, err := enc.Transform([]string{"F", "I", "M"})
	require.NoError(t, err)
	r, c := X.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, []float64{0, 0}, X.RawRowView(0))
	assert.Equal(t, []float64{1, 0}, X.RawRowView(1))
	assert.Equal(t, []float64{0, 1}, X.RawRowView(2))
}

func TestOneHotEncoder_KeepFirst(t *testing.T) {
	enc := NewOneHotEncoder("Sex", false)
	require.NoError(t, enc.Fit([]string{"I", "F"}))
	assert.Equal(t, []string{"Sex_F", "Sex_I"}, enc.FeatureNames())

	X, err := enc.Transform([]string{"F"})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, X.RawRowView(0))
}

func TestOneHotEncoder_Errors(t *testing.T) {
	enc := NewOneHotEncoder("Sex", true)
	assert.Error(t, enc.Fit(nil))

	require.NoError(t, enc.Fit([]string{"F", "M"}))
	_, err := enc.Transform([]string{"I"})
	var mismatch *errors.SchemaMismatchError
	assert.True(t, errors.As(err, &mismatch))
}
