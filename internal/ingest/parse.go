package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// maxDiagnostics caps the structural problems collected before giving up.
const maxDiagnostics = 10

// ErrEmptyFile is returned for input without a header row.
var ErrEmptyFile = errors.New("ingest: file is empty")

// Diagnostic is one structural problem reported by the tabular parser.
type Diagnostic struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ParseError reports structural problems in the uploaded file.
type ParseError struct {
	Diagnostics []Diagnostic
}

func (e *ParseError) Error() string {
	parts := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		parts[i] = fmt.Sprintf("line %d: %s", d.Line, d.Message)
	}
	return "ingest: malformed input: " + strings.Join(parts, "; ")
}

// recordReader yields raw records and the file line of the last one.
type recordReader interface {
	Read() ([]string, error)
	Line() int
}

// Parse decodes data as XLSX when filename ends in .xlsx, as CSV otherwise.
func Parse(filename string, data []byte) ([]Row, error) {
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return ParseXLSX(data)
	}
	return ParseCSV(bytes.NewReader(data))
}

// ParseCSV reads a header row and the records below it.
func ParseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = false
	return decode(&csvRecords{r: cr})
}

// ParseXLSX reads the first sheet of an .xlsx workbook.
func ParseXLSX(data []byte) ([]Row, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, &ParseError{Diagnostics: []Diagnostic{{Line: 0, Message: "open workbook: " + err.Error()}}}
	}
	if len(f.Sheets) == 0 {
		return nil, ErrEmptyFile
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return decode(&sheetRecords{rows: rows})
}

func decode(rr recordReader) ([]Row, error) {
	rawHeader, err := rr.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, &ParseError{Diagnostics: []Diagnostic{diagnostic(err, rr.Line())}}
	}

	keys := mapHeader(rawHeader)
	dec, err := csvutil.NewDecoder(rr, keys...)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: new decoder")
	}

	var (
		rows  []Row
		diags []Diagnostic
	)
	for {
		var row Row
		err := dec.Decode(&row)
		if err == io.EOF {
			break
		}
		if err != nil {
			diags = append(diags, diagnostic(err, rr.Line()))
			if len(diags) >= maxDiagnostics {
				break
			}
			continue
		}

		row.Line = rr.Line()
		row.keys = keys
		if unused := dec.Unused(); len(unused) > 0 {
			record := dec.Record()
			row.Extra = make(map[string]string, len(unused))
			for _, i := range unused {
				row.Extra[keys[i]] = record[i]
			}
		}
		row.trim()
		rows = append(rows, row)
	}

	if len(diags) > 0 {
		return nil, &ParseError{Diagnostics: diags}
	}
	return rows, nil
}

func diagnostic(err error, line int) Diagnostic {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return Diagnostic{Line: perr.Line, Message: perr.Err.Error()}
	}
	return Diagnostic{Line: line, Message: err.Error()}
}

// csvRecords adapts csv.Reader; the header fixes the field count for every
// later record. Line is the start line of the last record read without a
// reader error.
type csvRecords struct {
	r    *csv.Reader
	line int
}

func (c *csvRecords) Read() ([]string, error) {
	rec, err := c.r.Read()
	if err == nil {
		c.line, _ = c.r.FieldPos(0)
	}
	return rec, err
}

func (c *csvRecords) Line() int {
	return c.line
}

// sheetRecords serves spreadsheet rows, skipping blank ones and padding
// short rows to the header width.
type sheetRecords struct {
	rows  [][]string
	next  int
	line  int
	width int
}

func (s *sheetRecords) Read() ([]string, error) {
	for s.next < len(s.rows) {
		cells := s.rows[s.next]
		s.next++
		s.line = s.next
		if isBlank(cells) {
			continue
		}
		if s.width == 0 {
			s.width = len(cells)
			return cells, nil
		}
		for len(cells) > s.width && strings.TrimSpace(cells[len(cells)-1]) == "" {
			cells = cells[:len(cells)-1]
		}
		if len(cells) > s.width {
			return nil, &csv.ParseError{StartLine: s.line, Line: s.line, Column: s.width + 1, Err: csv.ErrFieldCount}
		}
		for len(cells) < s.width {
			cells = append(cells, "")
		}
		return cells, nil
	}
	return nil, io.EOF
}

func (s *sheetRecords) Line() int {
	return s.line
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
