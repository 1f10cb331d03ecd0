// Package preprocessing は生データからモデル入力の特徴量行列を作る処理を提供する。
//
// FeatureSchema が学習時と推論時の列構成を一元的に定義し、
// 学習データ全体の変換（Transform）と推論リクエスト1件の変換（EncodeInput）の
// 両方が同じスキーマから列を生成する。
package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/abalone/pkg/errors"
)

// Frame は列名付きの数値テーブル
type Frame struct {
	Columns []string
	Data    *mat.Dense
}

// NewFrame は列名と行列からFrameを作成する。列数が一致しない場合はDimensionErrorを返す。
func NewFrame(columns []string, data *mat.Dense) (Frame, error) {
	if data == nil {
		return Frame{}, errors.NewValueError("NewFrame", "nil matrix")
	}
	_, c := data.Dims()
	if c != len(columns) {
		return Frame{}, errors.NewDimensionError("NewFrame", len(columns), c, 1)
	}
	seen := make(map[string]struct{}, len(columns))
	for _, name := range columns {
		if _, dup := seen[name]; dup {
			return Frame{}, errors.NewValueError("NewFrame", fmt.Sprintf("duplicate column %q", name))
		}
		seen[name] = struct{}{}
	}
	return Frame{Columns: append([]string(nil), columns...), Data: data}, nil
}

// Rows は行数を返す
func (f Frame) Rows() int {
	if f.Data == nil {
		return 0
	}
	r, _ := f.Data.Dims()
	return r
}

// Index は列名の位置を返す。存在しない場合は-1
func (f Frame) Index(column string) int {
	for i, c := range f.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Column は指定した列をベクトルとしてコピーして返す
func (f Frame) Column(column string) (*mat.VecDense, error) {
	j := f.Index(column)
	if j < 0 {
		return nil, errors.NewValueError("Frame.Column", fmt.Sprintf("column %q not found", column))
	}
	v := mat.NewVecDense(f.Rows(), nil)
	v.CopyVec(f.Data.ColView(j))
	return v, nil
}

// Drop は指定した列を除いた新しいFrameを返す
func (f Frame) Drop(column string) (Frame, error) {
	j := f.Index(column)
	if j < 0 {
		return Frame{}, errors.NewValueError("Frame.Drop", fmt.Sprintf("column %q not found", column))
	}
	r := f.Rows()
	cols := make([]string, 0, len(f.Columns)-1)
	cols = append(cols, f.Columns[:j]...)
	cols = append(cols, f.Columns[j+1:]...)

	if len(cols) == 0 || r == 0 {
		return Frame{Columns: cols, Data: &mat.Dense{}}, nil
	}

	out := mat.NewDense(r, len(cols), nil)
	for i := 0; i < r; i++ {
		dst := 0
		for k := range f.Columns {
			if k == j {
				continue
			}
			out.Set(i, dst, f.Data.At(i, k))
			dst++
		}
	}
	return Frame{Columns: cols, Data: out}, nil
}

// SelectRows は指定した行だけを順番通りに取り出した新しいFrameを返す
func (f Frame) SelectRows(rows []int) Frame {
	cols := append([]string(nil), f.Columns...)
	if len(rows) == 0 || len(cols) == 0 {
		return Frame{Columns: cols, Data: &mat.Dense{}}
	}
	out := mat.NewDense(len(rows), len(cols), nil)
	for i, src := range rows {
		out.SetRow(i, f.Data.RawRowView(src))
	}
	return Frame{Columns: cols, Data: out}
}

// SameColumns は2つの列リストが順序も含めて一致するかを返す
func SameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
