package errors

import (
	"bytes"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIOError(t *testing.T) {
	err := NewIOError("ReadCSV", "/no/such/file.csv", fs.ErrNotExist)

	want := "abalone: ReadCSV: /no/such/file.csv: file does not exist"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	// スタックトレースの存在確認
	formatted := fmt.Sprintf("%+v", err)
	if !strings.Contains(formatted, "errors_test.go") {
		t.Error("Expected stack trace to contain test file name")
	}

	var ioErr *IOError
	require.True(t, As(err, &ioErr))
	assert.Equal(t, "/no/such/file.csv", ioErr.Path)
	assert.True(t, Is(err, fs.ErrNotExist))
}

func TestNewSchemaError(t *testing.T) {
	tests := []struct {
		name    string
		line    int
		wantMsg string
	}{
		{
			name:    "header",
			line:    0,
			wantMsg: "abalone: schema error in abalone.csv, column 'Rings': missing column",
		},
		{
			name:    "data line",
			line:    7,
			wantMsg: "abalone: schema error in abalone.csv at line 7, column 'Rings': missing column",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSchemaError("abalone.csv", "Rings", tt.line, "missing column")
			assert.Equal(t, tt.wantMsg, err.Error())

			var schemaErr *SchemaError
			assert.True(t, As(err, &schemaErr))
		})
	}
}

func TestNewSchemaMismatchError(t *testing.T) {
	err := NewSchemaMismatchError([]string{"Length", "Sex_I"}, []string{"Length", "Sex_F"}, "column order differs")

	assert.Equal(t,
		"abalone: feature schema mismatch: column order differs (expected [Length, Sex_I], got [Length, Sex_F])",
		err.Error())

	var mismatch *SchemaMismatchError
	require.True(t, As(err, &mismatch))
	assert.Equal(t, []string{"Length", "Sex_I"}, mismatch.Expected)
}

func TestNewCorruptArtifactError(t *testing.T) {
	cause := fmt.Errorf("unexpected EOF")
	err := NewCorruptArtifactError("model.abalone", "decode model", cause)

	assert.Equal(t, "abalone: corrupt artifact model.abalone: decode model: unexpected EOF", err.Error())
	assert.True(t, Is(err, cause))
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Fit", 10, 9, 0)

	want := "abalone: Fit: dimension mismatch on axis 0 (rows). Expected 10, got 9"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("Regressor", "Predict")

	want := "abalone: Regressor: this model is not fitted yet. Call Fit() before using Predict()"
	assert.Equal(t, want, err.Error())
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "io", err: NewIOError("Save", "model.abalone", fs.ErrPermission), want: true},
		{name: "wrapped io", err: Wrap(NewIOError("Save", "m", nil), "step save-model"), want: true},
		{name: "schema", err: NewSchemaError("a.csv", "Sex", 2, "unknown symbol"), want: false},
		{name: "value", err: NewValueError("Evaluate", "length mismatch"), want: false},
		{name: "mismatch", err: NewSchemaMismatchError(nil, nil, "x"), want: false},
		{name: "corrupt", err: NewCorruptArtifactError("m", "bad magic", nil), want: false},
		{name: "plain", err: fmt.Errorf("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(NewValueError("EncodeInput", "unknown sex symbol")))
	assert.False(t, IsClientError(NewSchemaMismatchError(nil, nil, "x")))
	// 次元の不一致もValueErrorの一種
	assert.True(t, IsClientError(NewDimensionError("Evaluate", 3, 2, 0)))
	assert.False(t, IsClientError(nil))

	// 壊れたアーティファクトは原因がValueErrorでもサーバー側のエラー
	corrupt := NewCorruptArtifactError("model.abalone", "inconsistent artifact",
		NewValueError("Artifact.Validate", "model expects 9 features, schema defines 10"))
	assert.False(t, IsClientError(corrupt))
	assert.False(t, IsClientError(Wrap(corrupt, "Received")))
	var valErr *ValueError
	assert.True(t, As(corrupt, &valErr))
}

func TestMarshalZerologObject(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	var ioErr *IOError
	require.True(t, As(NewIOError("Save", "model.abalone", fs.ErrPermission), &ioErr))
	logger.Error().EmbedObject(ioErr).Msg("save failed")

	out := buf.String()
	assert.Contains(t, out, `"type":"IOError"`)
	assert.Contains(t, out, `"path":"model.abalone"`)
}

func TestWarn(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(func(error) {})

	Warn(NewUndefinedMetricWarning("r2", "constant y_true", 0))

	require.Len(t, got, 1)
	assert.Contains(t, got[0].Error(), "'r2' is ill-defined")
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Fit", 10, 0)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}
	assert.Contains(t, wrapped.Error(), "in Fit: expected 10, got 0")
}
