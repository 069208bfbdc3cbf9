// Package tabular decodes uploaded spreadsheets and CSV files into
// header-keyed records.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

// Format identifies a supported file encoding.
type Format string

const (
	FormatUnknown     Format = ""
	FormatSpreadsheet Format = "xlsx"
	FormatCSV         Format = "csv"
)

// ErrUnreadable matches every ReadError.
var ErrUnreadable = errors.New("file is not a readable spreadsheet or csv")

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

// ReadError reports a file that could not be decoded in any supported format.
type ReadError struct {
	Format Format
	Err    error
}

func (e *ReadError) Error() string {
	if e.Format == FormatUnknown {
		return fmt.Sprintf("error reading file: %v", e.Err)
	}
	return fmt.Sprintf("error reading %s file: %v", e.Format, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrUnreadable) match any ReadError.
func (e *ReadError) Is(target error) bool { return target == ErrUnreadable }

// Hint carries what the caller knows about the upload.
type Hint struct {
	FileName string
	Format   Format
}

// Record is one data row. Cells beyond the end of a short row are absent
// from Values; empty cells inside the row are present with a nil value.
type Record struct {
	Row    int
	Values map[string]any
}

// Get returns the cell for column, treating absent and nil alike.
func (r Record) Get(column string) (any, bool) {
	v, ok := r.Values[column]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Has reports whether the column exists on this row.
func (r Record) Has(column string) bool {
	_, ok := r.Values[column]
	return ok
}

// Table is the decoded content of the first sheet.
type Table struct {
	Format  Format
	Headers []string
	Records []Record
}

// TabularSource turns an upload into a Table.
type TabularSource interface {
	Read(r io.Reader, hint Hint) (Table, error)
}

// Reader is the TabularSource backed by excelize and encoding/csv.
type Reader struct{}

// NewReader returns the default TabularSource.
func NewReader() *Reader {
	return &Reader{}
}

var _ TabularSource = (*Reader)(nil)

const spreadsheetMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DetectFormat picks a format from the file extension, then the hint.
func DetectFormat(hint Hint) Format {
	switch strings.ToLower(filepath.Ext(hint.FileName)) {
	case ".xlsx", ".xlsm", ".xls":
		return FormatSpreadsheet
	case ".csv":
		return FormatCSV
	}
	return hint.Format
}

// SniffFormat guesses the format from the payload's magic bytes.
func SniffFormat(payload []byte) Format {
	for m := mimetype.Detect(payload); m != nil; m = m.Parent() {
		switch {
		case m.Is(spreadsheetMIME), m.Is("application/zip"):
			return FormatSpreadsheet
		case m.Is("text/csv"), m.Is("text/plain"):
			return FormatCSV
		}
	}
	return FormatUnknown
}

// Read decodes the upload. Without an extension or format hint it sniffs
// the content, and failing that tries the spreadsheet decoder before CSV.
func (rd *Reader) Read(r io.Reader, hint Hint) (Table, error) {
	if r == nil {
		return Table{}, &ReadError{Err: errors.New("no data supplied")}
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return Table{}, &ReadError{Format: hint.Format, Err: fmt.Errorf("failed to read upload: %w", err)}
	}
	if len(payload) == 0 {
		return Table{}, &ReadError{Format: hint.Format, Err: errors.New("file is empty")}
	}

	format := DetectFormat(hint)
	if format == FormatUnknown {
		format = SniffFormat(payload)
	}
	switch format {
	case FormatSpreadsheet:
		return readSpreadsheet(payload)
	case FormatCSV:
		return readCSV(payload)
	}

	table, sheetErr := readSpreadsheet(payload)
	if sheetErr == nil {
		return table, nil
	}
	table, csvErr := readCSV(payload)
	if csvErr == nil {
		return table, nil
	}
	return Table{}, &ReadError{Err: errors.Join(sheetErr, csvErr)}
}

func readSpreadsheet(payload []byte) (Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return Table{}, &ReadError{Format: FormatSpreadsheet, Err: fmt.Errorf("failed to open workbook: %w", err)}
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, &ReadError{Format: FormatSpreadsheet, Err: errors.New("workbook has no sheets")}
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return Table{}, &ReadError{Format: FormatSpreadsheet, Err: fmt.Errorf("failed to read rows: %w", err)}
	}
	defer func() { _ = rows.Close() }()

	// Raw values keep dates and times as serial numbers for the normalizer.
	var raw [][]string
	for rows.Next() {
		cols, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return Table{}, &ReadError{Format: FormatSpreadsheet, Err: fmt.Errorf("failed to read row %d: %w", len(raw)+1, err)}
		}
		raw = append(raw, cols)
	}
	if err := rows.Error(); err != nil {
		return Table{}, &ReadError{Format: FormatSpreadsheet, Err: err}
	}

	return buildTable(FormatSpreadsheet, raw), nil
}

func readCSV(payload []byte) (Table, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return Table{}, &ReadError{Format: FormatCSV, Err: fmt.Errorf("failed to read csv: %w", err)}
	}
	if len(records) == 0 {
		return Table{}, &ReadError{Format: FormatCSV, Err: errors.New("no header row found")}
	}

	return buildTable(FormatCSV, records), nil
}

// buildTable treats the first row as the header and keys the remaining rows
// by it. Spreadsheet rows are numbered from 1, so data starts at row 2.
func buildTable(format Format, rows [][]string) Table {
	table := Table{Format: format, Headers: []string{}, Records: []Record{}}
	if len(rows) == 0 {
		return table
	}

	table.Headers = sanitizeHeaders(padRow(rows[0], widestRow(rows)))

	for idx, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		values := make(map[string]any, len(row))
		for col, cell := range row {
			if col >= len(table.Headers) {
				break
			}
			if strings.TrimSpace(cell) == "" {
				values[table.Headers[col]] = nil
				continue
			}
			values[table.Headers[col]] = cell
		}
		table.Records = append(table.Records, Record{Row: idx + 2, Values: values})
	}

	return table
}

// sanitizeHeaders names blank headers Column_N and suffixes repeats. Names
// written in the file are reserved first, so a synthesised name never
// collides with a later literal header.
func sanitizeHeaders(raw []string) []string {
	names := make([]string, len(raw))
	literal := make(map[string]struct{}, len(raw))
	for idx, value := range raw {
		names[idx] = strings.TrimSpace(value)
		if names[idx] != "" {
			literal[names[idx]] = struct{}{}
		}
	}

	headers := make([]string, len(raw))
	used := make(map[string]struct{}, len(raw))
	for idx, name := range names {
		if name == "" {
			name = fmt.Sprintf("Column_%d", idx)
			for n := 2; taken(name, literal, used); n++ {
				name = fmt.Sprintf("Column_%d_%d", idx, n)
			}
		} else if _, dup := used[name]; dup {
			base := name
			for n := 2; taken(name, literal, used); n++ {
				name = fmt.Sprintf("%s_%d", base, n)
			}
		}
		used[name] = struct{}{}
		headers[idx] = name
	}

	return headers
}

func taken(name string, literal, used map[string]struct{}) bool {
	if _, ok := used[name]; ok {
		return true
	}
	_, ok := literal[name]
	return ok
}

// padRow extends row with blank cells up to width. The spreadsheet reader
// drops trailing empty cells, so the header can be narrower than its data.
func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}

func widestRow(rows [][]string) int {
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	return width
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
