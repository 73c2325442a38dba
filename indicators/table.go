// Package indicators reads, reformats and queries the world economic
// indicators CSV. Each row is one (country, series) pair followed by a
// contiguous block of year columns starting at "1999 [YR1999]".
package indicators

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/patrickcap/exploronomics/errors"
)

const utf8BOM = "\uFEFF"

// Table is a CSV file held in memory
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the index of the named column
func (t *Table) Column(name string) (int, bool) {
	for i, h := range t.Header {
		if h == name {
			return i, true
		}
	}
	return -1, false
}

// YearBlock returns the index of the first year column. Every column from
// there to the end of the row holds a numeric observation.
func (t *Table) YearBlock() (int, error) {
	idx, ok := t.Column(FirstYearColumn)
	if !ok {
		return -1, errors.NewMissingColumnError(FirstYearColumn)
	}
	return idx, nil
}

// ReadTable loads a whole CSV document. Blank lines are skipped and rows
// shorter than the header are padded with MissingValue; rows longer than
// the header are rejected.
func ReadTable(in io.Reader) (*Table, error) {
	r := newReader(in)

	header, err := r.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrParse, "input has no header row").WithContext("line", 1)
	}
	if err != nil {
		return nil, parseError(err, 1)
	}
	header = cleanHeader(header)

	t := &Table{Header: header}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, parseError(err, 0)
		}
		line, _ := r.FieldPos(0)
		row, err := fitRow(record, len(header), line)
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

// ReadTableFile loads the CSV at path
func ReadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFoundError(path, err)
		}
		return nil, errors.Wrapf(errors.ErrPermissionDenied, err, "failed to open '%s'", path)
	}
	defer f.Close()

	t, err := ReadTable(f)
	if err != nil {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			appErr.WithContext("path", path)
		}
		return nil, err
	}
	return t, nil
}

// WriteTable writes the header and every row, without an index column
func WriteTable(out io.Writer, t *Table) error {
	w := csv.NewWriter(out)
	if err := w.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// WriteTableFile writes t to path, replacing any existing file
func WriteTableFile(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrPermissionDenied, err, "failed to create '%s'", path)
	}

	if err := WriteTable(f, t); err != nil {
		f.Close()
		return errors.Wrapf(errors.ErrUnknown, err, "failed to write '%s'", path)
	}

	if err := f.Close(); err != nil {
		return errors.Wrapf(errors.ErrUnknown, err, "failed to close '%s'", path)
	}
	return nil
}

func newReader(in io.Reader) *csv.Reader {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	return r
}

// cleanHeader strips a UTF-8 byte order mark from the first column name
func cleanHeader(header []string) []string {
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	return header
}

func fitRow(record []string, width int, line int) ([]string, error) {
	if len(record) > width {
		return nil, errors.NewParseError(
			fmt.Errorf("expected %d fields, saw %d", width, len(record)), line)
	}
	for len(record) < width {
		record = append(record, MissingValue)
	}
	return record, nil
}

func parseError(err error, line int) *errors.AppError {
	var pe *csv.ParseError
	if stderrors.As(err, &pe) {
		line = pe.Line
	}
	return errors.NewParseError(err, line)
}
