package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/abalone/core/model"
	"github.com/YuminosukeSato/abalone/pkg/errors"
)

// OneHotEncoder はカテゴリ列を0/1の指示列に変換する。
// カテゴリはソート順に並べ、DropFirstが真の場合は先頭（参照カテゴリ）の列を作らない。
type OneHotEncoder struct {
	state *model.StateManager

	// Prefix は出力列名の接頭辞（例: "Sex" → "Sex_I"）
	Prefix string

	// DropFirst は参照カテゴリの列を落とすかどうか
	DropFirst bool

	// Categories は学習時に観測したカテゴリ（ソート済み）
	Categories []string
}

// NewOneHotEncoder は新しいOneHotEncoderを作成する
//
// 使用例:
//
//	enc := preprocessing.NewOneHotEncoder("Sex", true)
//	err := enc.Fit([]string{"M", "F", "I"})
//	X, err := enc.Transform([]string{"M"}) // [[0, 1]] (Sex_I, Sex_M)
func NewOneHotEncoder(prefix string, dropFirst bool) *OneHotEncoder {
	return &OneHotEncoder{
		state:     model.NewStateManager("OneHotEncoder"),
		Prefix:    prefix,
		DropFirst: dropFirst,
	}
}

// newFittedOneHotEncoder は保存済みのカテゴリから学習済みのエンコーダを復元する
func newFittedOneHotEncoder(prefix string, categories []string) *OneHotEncoder {
	enc := NewOneHotEncoder(prefix, true)
	enc.Categories = append([]string(nil), categories...)
	enc.state.SetDimensions(len(enc.FeatureNames()), 0)
	enc.state.SetFitted()
	return enc
}

// Fit は値の集合からカテゴリを学習する
func (e *OneHotEncoder) Fit(values []string) error {
	if len(values) == 0 {
		return errors.NewValueError("OneHotEncoder.Fit", "empty data")
	}

	seen := make(map[string]struct{})
	categories := make([]string, 0, 3)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		categories = append(categories, v)
	}
	sort.Strings(categories)

	e.Categories = categories
	e.state.SetDimensions(len(e.FeatureNames()), len(values))
	e.state.SetFitted()
	return nil
}

// Reference は参照カテゴリ（ソート順の先頭）を返す
func (e *OneHotEncoder) Reference() string {
	if len(e.Categories) == 0 {
		return ""
	}
	return e.Categories[0]
}

// FeatureNames は出力列名を返す
func (e *OneHotEncoder) FeatureNames() []string {
	cats := e.Categories
	if e.DropFirst && len(cats) > 0 {
		cats = cats[1:]
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = e.Prefix + "_" + c
	}
	return names
}

// Knows は値が学習済みのカテゴリに含まれるかを返す
func (e *OneHotEncoder) Knows(value string) bool {
	for _, c := range e.Categories {
		if c == value {
			return true
		}
	}
	return false
}

// Transform は値を指示列の行列に変換する。
// カテゴリが1種類のみでDropFirstの場合、出力は0列になり nil を返す。
func (e *OneHotEncoder) Transform(values []string) (*mat.Dense, error) {
	if err := e.state.RequireFitted("Transform"); err != nil {
		return nil, err
	}

	names := e.FeatureNames()
	if len(names) == 0 || len(values) == 0 {
		return nil, nil
	}

	offset := 0
	if e.DropFirst {
		offset = 1
	}
	index := make(map[string]int, len(e.Categories))
	for i, c := range e.Categories {
		index[c] = i - offset
	}

	out := mat.NewDense(len(values), len(names), nil)
	for i, v := range values {
		j, ok := index[v]
		if !ok {
			return nil, errors.NewSchemaMismatchError(e.Categories, []string{v},
				fmt.Sprintf("category %q was not seen during fit", v))
		}
		if j >= 0 {
			out.Set(i, j, 1)
		}
	}
	return out, nil
}
