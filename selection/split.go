// Package selection はモデル選択のためのデータ分割を提供する。
package selection

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/abalone/pkg/errors"
	"github.com/YuminosukeSato/abalone/preprocessing"
)

const (
	// DefaultTestSize はテストデータの割合のデフォルト値
	DefaultTestSize = 0.33

	// DefaultSeed は分割に使う乱数シードのデフォルト値
	DefaultSeed uint64 = 42
)

// SplitOptions は分割の設定
type SplitOptions struct {
	TestSize float64
	Seed     uint64
}

// DefaultSplitOptions はデフォルトの分割設定を返す
func DefaultSplitOptions() SplitOptions {
	return SplitOptions{TestSize: DefaultTestSize, Seed: DefaultSeed}
}

// Split は学習用とテスト用に分割されたデータ
type Split struct {
	XTrain preprocessing.Frame
	XTest  preprocessing.Frame
	YTrain *mat.VecDense
	YTest  *mat.VecDense

	// TrainIndex と TestIndex は元のFrameの行番号
	TrainIndex []int
	TestIndex  []int
}

// TrainTestSplit はFrameを目的変数と特徴量に分け、学習用とテスト用に分割する。
//
// テスト行数は floor(TestSize·n)（最低1行）、残りが学習行になる。
// 同じ入力と同じシードからは常に同じ分割が得られる。
func TrainTestSplit(frame preprocessing.Frame, target string, opts SplitOptions) (*Split, error) {
	if opts.TestSize <= 0 || opts.TestSize >= 1 {
		return nil, errors.NewValueError("TrainTestSplit", fmt.Sprintf("test size must be in (0, 1), got %g", opts.TestSize))
	}
	if frame.Index(target) < 0 {
		return nil, errors.NewValueError("TrainTestSplit", fmt.Sprintf("target column %q not found", target))
	}
	n := frame.Rows()
	if n < 2 {
		return nil, errors.NewValueError("TrainTestSplit", fmt.Sprintf("need at least 2 rows, got %d", n))
	}

	nTest := int(math.Floor(opts.TestSize * float64(n)))
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= n {
		nTest = n - 1
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	perm := rng.Perm(n)
	testIdx := append([]int(nil), perm[:nTest]...)
	trainIdx := append([]int(nil), perm[nTest:]...)

	y, err := frame.Column(target)
	if err != nil {
		return nil, err
	}
	X, err := frame.Drop(target)
	if err != nil {
		return nil, err
	}

	return &Split{
		XTrain:     X.SelectRows(trainIdx),
		XTest:      X.SelectRows(testIdx),
		YTrain:     selectVec(y, trainIdx),
		YTest:      selectVec(y, testIdx),
		TrainIndex: trainIdx,
		TestIndex:  testIdx,
	}, nil
}

func selectVec(v *mat.VecDense, idx []int) *mat.VecDense {
	out := mat.NewVecDense(len(idx), nil)
	for i, src := range idx {
		out.SetVec(i, v.AtVec(src))
	}
	return out
}
