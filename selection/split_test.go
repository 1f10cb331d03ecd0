package selection

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/abalone/pkg/errors"
	"github.com/YuminosukeSato/abalone/preprocessing"
)

// makeFrame は行番号を特徴量とし、その10倍を目的変数とするFrameを作る
func makeFrame(t *testing.T, n int) preprocessing.Frame {
	t.Helper()
	data := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		data.Set(i, 0, float64(i))
		data.Set(i, 1, float64(i)*10)
	}
	f, err := preprocessing.NewFrame([]string{"x", "age"}, data)
	require.NoError(t, err)
	return f
}

func TestTrainTestSplit_Sizes(t *testing.T) {
	tests := []struct {
		n         int
		wantTrain int
		wantTest  int
	}{
		{n: 10, wantTrain: 7, wantTest: 3},
		{n: 100, wantTrain: 67, wantTest: 33},
		{n: 2, wantTrain: 1, wantTest: 1},
		{n: 4177, wantTrain: 2799, wantTest: 1378},
	}

	for _, tt := range tests {
		split, err := TrainTestSplit(makeFrame(t, tt.n), "age", DefaultSplitOptions())
		require.NoError(t, err)
		assert.Equal(t, tt.wantTrain, split.XTrain.Rows(), "n=%d", tt.n)
		assert.Equal(t, tt.wantTest, split.XTest.Rows(), "n=%d", tt.n)
		assert.Equal(t, tt.wantTrain, split.YTrain.Len())
		assert.Equal(t, tt.wantTest, split.YTest.Len())
	}
}

func TestTrainTestSplit_DisjointAndComplete(t *testing.T) {
	split, err := TrainTestSplit(makeFrame(t, 10), "age", DefaultSplitOptions())
	require.NoError(t, err)

	all := append(append([]int(nil), split.TrainIndex...), split.TestIndex...)
	sort.Ints(all)
	for i, v := range all {
		assert.Equal(t, i, v)
	}

	assert.Equal(t, []string{"x"}, split.XTrain.Columns)
	for i, src := range split.TrainIndex {
		assert.Equal(t, float64(src), split.XTrain.Data.At(i, 0))
		assert.Equal(t, float64(src)*10, split.YTrain.AtVec(i))
	}
	for i, src := range split.TestIndex {
		assert.Equal(t, float64(src), split.XTest.Data.At(i, 0))
		assert.Equal(t, float64(src)*10, split.YTest.AtVec(i))
	}
}

func TestTrainTestSplit_Deterministic(t *testing.T) {
	a, err := TrainTestSplit(makeFrame(t, 50), "age", DefaultSplitOptions())
	require.NoError(t, err)
	b, err := TrainTestSplit(makeFrame(t, 50), "age", DefaultSplitOptions())
	require.NoError(t, err)
	assert.Equal(t, a.TestIndex, b.TestIndex)
	assert.Equal(t, a.TrainIndex, b.TrainIndex)

	c, err := TrainTestSplit(makeFrame(t, 50), "age", SplitOptions{TestSize: 0.33, Seed: 7})
	require.NoError(t, err)
	assert.NotEqual(t, a.TestIndex, c.TestIndex)
}

func TestTrainTestSplit_Errors(t *testing.T) {
	tests := []struct {
		name   string
		frame  preprocessing.Frame
		target string
		opts   SplitOptions
	}{
		{name: "missing target", frame: makeFrame(t, 10), target: "rings", opts: DefaultSplitOptions()},
		{name: "single row", frame: makeFrame(t, 1), target: "age", opts: DefaultSplitOptions()},
		{name: "bad test size", frame: makeFrame(t, 10), target: "age", opts: SplitOptions{TestSize: 1.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TrainTestSplit(tt.frame, tt.target, tt.opts)
			var valErr *errors.ValueError
			assert.True(t, errors.As(err, &valErr))
		})
	}
}
