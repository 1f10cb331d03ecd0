package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/abalone/pkg/errors"
	"github.com/YuminosukeSato/abalone/pkg/log"
)

// Dataset is an ordered, immutable collection of records.
type Dataset struct {
	source  string
	columns []string
	records []RawRecord
}

// New builds a Dataset from records already in memory. Columns are reported
// in canonical order.
func New(records []RawRecord) *Dataset {
	recs := make([]RawRecord, len(records))
	copy(recs, records)
	return &Dataset{
		source:  "memory",
		columns: append([]string(nil), Columns...),
		records: recs,
	}
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.records) }

// Columns returns the column names in the order of the source header.
func (d *Dataset) Columns() []string { return append([]string(nil), d.columns...) }

// Source names where the data came from (file path, "reader" or "memory").
func (d *Dataset) Source() string { return d.source }

// Record returns row i.
func (d *Dataset) Record(i int) RawRecord { return d.records[i] }

// Records returns a copy of all rows.
func (d *Dataset) Records() []RawRecord {
	out := make([]RawRecord, len(d.records))
	copy(out, d.records)
	return out
}

// ReadCSV loads the abalone CSV at path.
func ReadCSV(path string) (*Dataset, error) {
	logger := log.GetLoggerWithName("dataset")

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIOError("read", path, err)
	}
	defer f.Close()

	ds, err := read(f, path)
	if err != nil {
		return nil, err
	}

	logger.Info("Dataset loaded",
		log.PathKey, path,
		log.SamplesKey, ds.Len(),
		log.ColumnsKey, ds.columns,
	)
	return ds, nil
}

// Read parses CSV data from r.
func Read(r io.Reader) (*Dataset, error) {
	return read(r, "reader")
}

func read(r io.Reader, source string) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.NewSchemaError(source, "", 0, "missing header")
		}
		return nil, readError(source, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	index := make(map[string]int, len(header))
	var columns []string
	for i, name := range header {
		if _, dup := index[name]; dup {
			return nil, errors.NewSchemaError(source, name, 0, "duplicate column")
		}
		index[name] = i
	}
	for _, name := range header {
		if isExpected(name) {
			columns = append(columns, name)
		}
	}
	for _, name := range Columns {
		if _, ok := index[name]; !ok {
			return nil, errors.NewSchemaError(source, name, 0, "missing column")
		}
	}

	var records []RawRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readError(source, err)
		}
		line, _ := reader.FieldPos(0)

		rec, err := parseRow(source, line, row, index)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return &Dataset{source: source, columns: columns, records: records}, nil
}

func parseRow(source string, line int, row []string, index map[string]int) (RawRecord, error) {
	var rec RawRecord

	sex := strings.TrimSpace(row[index[ColSex]])
	if !IsKnownSex(sex) {
		return rec, errors.NewSchemaError(source, ColSex, line,
			fmt.Sprintf("unknown sex symbol %q (want one of %s)", sex, strings.Join(KnownSexes(), ", ")))
	}
	rec.Sex = sex

	for _, col := range ContinuousColumns {
		cell := strings.TrimSpace(row[index[col]])
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return rec, errors.NewSchemaError(source, col, line, fmt.Sprintf("not a number: %q", cell))
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return rec, errors.NewSchemaError(source, col, line, fmt.Sprintf("not a finite number: %q", cell))
		}
		if v < 0 {
			return rec, errors.NewSchemaError(source, col, line, fmt.Sprintf("negative value %g", v))
		}
		rec.set(col, v)
	}

	cell := strings.TrimSpace(row[index[ColRings]])
	rings, err := strconv.Atoi(cell)
	if err != nil {
		return rec, errors.NewSchemaError(source, ColRings, line, fmt.Sprintf("not an integer: %q", cell))
	}
	if rings < 0 {
		return rec, errors.NewSchemaError(source, ColRings, line, fmt.Sprintf("negative value %d", rings))
	}
	rec.Rings = rings

	return rec, nil
}

// readError classifies a csv reader failure. Malformed CSV is a data
// problem; anything else came from the underlying reader.
func readError(source string, err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return errors.NewSchemaError(source, "", parseErr.Line, parseErr.Err.Error())
	}
	return errors.NewIOError("read", source, err)
}

func isExpected(name string) bool {
	for _, c := range Columns {
		if c == name {
			return true
		}
	}
	return false
}
