package preprocessing

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/abalone/dataset"
	"github.com/YuminosukeSato/abalone/pkg/errors"
	"github.com/YuminosukeSato/abalone/pkg/log"
)

// SchemaVersion は現在のFeatureSchemaの形式バージョン
const SchemaVersion = 1

const (
	// TargetColumn は目的変数の列名
	TargetColumn = "age"

	// TargetOffset は年輪数から年齢を求めるための加算値
	TargetOffset = 1.5
)

// Options は学習時の変換オプション
type Options struct {
	// DropRings はRings列を特徴量から除外するかどうか。
	// 推論時の入力にはRingsが無いため、配信するモデルでは真にする。
	DropRings bool
}

// FeatureSchema は特徴量の列構成を定義する。学習と推論の両方がこの型から列を生成し、
// モデルの成果物に一緒に保存される。
type FeatureSchema struct {
	Version      int
	Continuous   []string
	Categorical  string
	Categories   []string
	Reference    string
	IncludeRings bool
	Target       string
	TargetOffset float64
}

// FitSchema はデータセットに現れるカテゴリからスキーマを作成する
func FitSchema(ds *dataset.Dataset, opts Options) (*FeatureSchema, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, errors.NewValueError("FitSchema", "empty dataset")
	}

	enc := NewOneHotEncoder(dataset.ColSex, true)
	if err := enc.Fit(sexColumn(ds)); err != nil {
		return nil, errors.Wrap(err, "fit sex encoder")
	}

	return &FeatureSchema{
		Version:      SchemaVersion,
		Continuous:   append([]string(nil), dataset.ContinuousColumns...),
		Categorical:  dataset.ColSex,
		Categories:   enc.Categories,
		Reference:    enc.Reference(),
		IncludeRings: !opts.DropRings,
		Target:       TargetColumn,
		TargetOffset: TargetOffset,
	}, nil
}

// Transform はデータセットを学習用のFrameに変換する
func Transform(ds *dataset.Dataset, opts Options) (Frame, *FeatureSchema, error) {
	schema, err := FitSchema(ds, opts)
	if err != nil {
		return Frame{}, nil, err
	}
	frame, err := schema.Transform(ds)
	if err != nil {
		return Frame{}, nil, err
	}
	return frame, schema, nil
}

// encoder はスキーマのカテゴリから学習済みのエンコーダを復元する
func (s *FeatureSchema) encoder() *OneHotEncoder {
	return newFittedOneHotEncoder(s.Categorical, s.Categories)
}

// IndicatorColumns は指示列の名前を返す（参照カテゴリを除くソート順）
func (s *FeatureSchema) IndicatorColumns() []string {
	return s.encoder().FeatureNames()
}

// FeatureColumns はモデルに渡す特徴量の列を順番通りに返す
func (s *FeatureSchema) FeatureColumns() []string {
	cols := append([]string(nil), s.Continuous...)
	if s.IncludeRings {
		cols = append(cols, dataset.ColRings)
	}
	return append(cols, s.IndicatorColumns()...)
}

// FrameColumns は学習用Frameの列（目的変数を含む）を返す
func (s *FeatureSchema) FrameColumns() []string {
	cols := append([]string(nil), s.Continuous...)
	if s.IncludeRings {
		cols = append(cols, dataset.ColRings)
	}
	cols = append(cols, s.Target)
	return append(cols, s.IndicatorColumns()...)
}

// Validate はスキーマ自体の整合性を検証する（保存済み成果物の読み込み時に使う）
func (s *FeatureSchema) Validate() error {
	switch {
	case s.Version != SchemaVersion:
		return errors.NewValueError("FeatureSchema.Validate", fmt.Sprintf("unsupported schema version %d", s.Version))
	case len(s.Continuous) == 0:
		return errors.NewValueError("FeatureSchema.Validate", "no continuous columns")
	case len(s.Categories) == 0:
		return errors.NewValueError("FeatureSchema.Validate", "no categories")
	case s.Reference != s.Categories[0]:
		return errors.NewValueError("FeatureSchema.Validate", "reference is not the first category")
	case s.Target == "":
		return errors.NewValueError("FeatureSchema.Validate", "empty target column")
	}
	for i := 1; i < len(s.Categories); i++ {
		if s.Categories[i-1] >= s.Categories[i] {
			return errors.NewValueError("FeatureSchema.Validate", "categories are not sorted and unique")
		}
	}
	return nil
}

// Transform はデータセット全体を学習用のFrameに変換する。
// 列の順序は連続値、Rings（含める場合）、目的変数、指示列。
func (s *FeatureSchema) Transform(ds *dataset.Dataset) (Frame, error) {
	logger := log.GetLoggerWithName("preprocessing")

	if ds == nil || ds.Len() == 0 {
		return Frame{}, errors.NewValueError("FeatureSchema.Transform", "empty dataset")
	}

	indicators, err := s.encoder().Transform(sexColumn(ds))
	if err != nil {
		return Frame{}, err
	}

	cols := s.FrameColumns()
	n := ds.Len()
	data := mat.NewDense(n, len(cols), nil)
	for i := 0; i < n; i++ {
		rec := ds.Record(i)
		j := 0
		for _, c := range s.Continuous {
			v, ok := rec.Value(c)
			if !ok {
				return Frame{}, errors.NewSchemaMismatchError(s.Continuous, dataset.ContinuousColumns,
					fmt.Sprintf("dataset has no column %q", c))
			}
			data.Set(i, j, v)
			j++
		}
		if s.IncludeRings {
			data.Set(i, j, float64(rec.Rings))
			j++
		}
		data.Set(i, j, float64(rec.Rings)+s.TargetOffset)
		j++
		if indicators != nil {
			for k := 0; k < indicators.RawMatrix().Cols; k++ {
				data.Set(i, j+k, indicators.At(i, k))
			}
		}
	}

	logger.Debug("Dataset transformed",
		log.OperationKey, log.OperationTransform,
		log.PhaseKey, log.PhasePreprocessing,
		log.SamplesKey, n,
		log.ColumnsKey, cols,
	)

	return Frame{Columns: cols, Data: data}, nil
}

// EncodeInput は推論リクエスト1件を1行のFrameに変換する。
// 列はFeatureColumns()と完全に一致する。
func (s *FeatureSchema) EncodeInput(values map[string]float64, symbol string) (Frame, error) {
	if s.IncludeRings {
		return Frame{}, errors.NewSchemaMismatchError(s.FeatureColumns(), inputColumns(values),
			"schema includes Rings but serving input carries no rings")
	}

	cols := s.FeatureColumns()
	row := make([]float64, len(cols))
	for j, c := range s.Continuous {
		v, ok := values[c]
		if !ok {
			return Frame{}, errors.NewSchemaMismatchError(cols, inputColumns(values),
				fmt.Sprintf("input has no column %q", c))
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Frame{}, errors.NewValueError("EncodeInput", fmt.Sprintf("%s is not a finite number", c))
		}
		row[j] = v
	}

	if !dataset.IsKnownSex(symbol) {
		return Frame{}, errors.NewValueError("EncodeInput",
			fmt.Sprintf("unknown sex symbol %q (want one of %s)", symbol, strings.Join(dataset.KnownSexes(), ", ")))
	}
	enc := s.encoder()
	if !enc.Knows(symbol) {
		return Frame{}, errors.NewSchemaMismatchError(s.Categories, []string{symbol},
			fmt.Sprintf("sex %q was not present in the training data", symbol))
	}
	indicators, err := enc.Transform([]string{symbol})
	if err != nil {
		return Frame{}, err
	}
	if indicators != nil {
		copy(row[len(s.Continuous):], indicators.RawRowView(0))
	}

	return Frame{Columns: cols, Data: mat.NewDense(1, len(cols), row)}, nil
}

func sexColumn(ds *dataset.Dataset) []string {
	out := make([]string, ds.Len())
	for i := range out {
		out[i] = ds.Record(i).Sex
	}
	return out
}

func inputColumns(values map[string]float64) []string {
	cols := make([]string, 0, len(values))
	for _, c := range append(append([]string(nil), dataset.ContinuousColumns...), dataset.ColRings) {
		if _, ok := values[c]; ok {
			cols = append(cols, c)
		}
	}
	return cols
}
