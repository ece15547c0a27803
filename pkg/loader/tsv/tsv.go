// Package tsv parses the tab-delimited O*NET text files into tables with
// named columns, replacing duck-typed row access with explicit lookups that
// fail as malformed-record errors instead of runtime surprises.
package tsv

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JadenBair-FS/aris/pkg/loader"
)

// Table is a parsed tab-delimited file: a header of column names and the
// data rows below it.
type Table struct {
	File   string
	Rows   [][]string
	colIdx map[string]int
}

// Parse reads content as a tab-delimited table whose first row is the
// header. Short or over-long rows are kept; missing cells surface later as
// malformed-record errors from Field.
func Parse(file string, content []byte) (*Table, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: empty file", file)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", file, err)
	}

	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[strings.TrimSpace(name)] = i
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		rows = append(rows, row)
	}

	return &Table{File: file, Rows: rows, colIdx: colIdx}, nil
}

// Field returns the named column of row i. A missing column or a row too
// short to carry it is a *loader.MalformedRecordError.
func (t *Table) Field(i int, col string) (string, error) {
	idx, ok := t.colIdx[col]
	if !ok {
		return "", &loader.MalformedRecordError{
			File: t.File, Line: i + 2,
			Reason: fmt.Sprintf("missing column %q", col),
		}
	}
	if idx >= len(t.Rows[i]) {
		return "", &loader.MalformedRecordError{
			File: t.File, Line: i + 2,
			Reason: fmt.Sprintf("row too short for column %q", col),
		}
	}
	return t.Rows[i][idx], nil
}

// FloatField returns the named column of row i parsed as a float. An
// unparsable value is a *loader.MalformedRecordError.
func (t *Table) FloatField(i int, col string) (float64, error) {
	raw, err := t.Field(i, col)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, &loader.MalformedRecordError{
			File: t.File, Line: i + 2,
			Reason: fmt.Sprintf("unparsable value %q in column %q", raw, col),
		}
	}
	return v, nil
}
