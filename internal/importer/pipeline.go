// Package importer parses spreadsheet uploads into validated records.
//
// An import moves each row through Parsed -> Validated -> Accepted or Rejected:
//
//  1. The file is read fully and decoded into a grid (CSV or XLSX); the first
//     row holds headers.
//  2. Headers are normalized (trimmed, trailing "*" marker removed). Any
//     required field without a matching header aborts the whole import.
//  3. Every data row is validated field by field. All problems in a row are
//     reported, and a row with any problem is dropped entirely.
//  4. Rows without problems and with at least one value become records.
//
// Parse never returns a Go error: decode failures, header problems and row
// problems all arrive in Result.Errors, in file order.
package importer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JonMunkholm/gridkit/internal/projection"
	"github.com/JonMunkholm/gridkit/internal/record"
	"github.com/JonMunkholm/gridkit/internal/schema"
)

// RequiredMarker is appended to required column labels in templates and
// stripped from headers on import.
const RequiredMarker = "*"

// NoValidDataMessage is reported when a file yields neither rows nor errors.
const NoValidDataMessage = "No valid data found in file"

// ContextCheckInterval is how often (in rows) to check for cancellation.
const ContextCheckInterval = 100

// RowError is one field-level problem in one row.
type RowError struct {
	Row     int    `json:"row"` // 1-based line in the file; the header is row 1
	Field   string `json:"field"`
	Label   string `json:"label"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("Row %d: %s %s", e.Row, e.Label, e.Message)
}

// HeaderError lists required columns missing from the header row.
type HeaderError struct {
	Missing []string
}

func (e *HeaderError) Error() string {
	return "missing required column: " + strings.Join(e.Missing, ", ")
}

// Messages renders one entry per missing column.
func (e *HeaderError) Messages() []string {
	out := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		out[i] = "Missing required column: " + m
	}
	return out
}

// Result is the outcome of one import.
type Result struct {
	Rows      []*record.Record `json:"rows"`
	Errors    []string         `json:"errors"`
	RowErrors []RowError       `json:"rowErrors,omitempty"`
	Header    *HeaderError     `json:"-"`
	TotalRows int              `json:"totalRows"` // Data rows seen, blank rows included
	Rejected  int              `json:"rejected"`  // Rows dropped for errors
}

// OK reports whether the import produced records and no errors.
func (r Result) OK() bool {
	return len(r.Errors) == 0 && len(r.Rows) > 0
}

func (r *Result) fail(msg string) Result {
	r.Errors = append(r.Errors, msg)
	r.Rows = nil
	return *r
}

// Parser holds import options. The zero value is usable.
type Parser struct {
	// MaxFileSize rejects larger files; zero disables the limit.
	MaxFileSize int64
	// Sheet selects an XLSX worksheet; empty means the first one.
	Sheet string
	// Now supplies the current time for two-digit year handling.
	Now func() time.Time
}

func (p *Parser) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Parse imports r using a zero-value Parser.
func Parse(ctx context.Context, r io.Reader, fileName string, s *schema.Schema) Result {
	var p Parser
	return p.ParseReader(ctx, r, fileName, s)
}

// ParseReader reads r fully and imports it.
func (p *Parser) ParseReader(ctx context.Context, r io.Reader, fileName string, s *schema.Schema) Result {
	data, err := readAll(r, p.MaxFileSize)
	if err != nil {
		res := Result{}
		return res.fail("Unable to read file: " + err.Error())
	}
	return p.ParseBytes(ctx, data, fileName, s)
}

// ParseBytes imports an in-memory file.
func (p *Parser) ParseBytes(ctx context.Context, data []byte, fileName string, s *schema.Schema) Result {
	res := Result{Rows: []*record.Record{}}

	if err := s.Validate(); err != nil {
		return res.fail("Invalid schema: " + err.Error())
	}
	if p.MaxFileSize > 0 && int64(len(data)) > p.MaxFileSize {
		return res.fail(fmt.Sprintf("Unable to read file: file too large: exceeds %d bytes", p.MaxFileSize))
	}

	grid, err := decodeGrid(data, DetectFormat(fileName, data), p.Sheet)
	if err != nil {
		return res.fail("Unable to read file: " + err.Error())
	}
	if len(grid) == 0 {
		return res.fail(NoValidDataMessage)
	}

	columns, herr := matchHeaders(grid[0], s)
	if herr != nil {
		res.Header = herr
		res.Errors = herr.Messages()
		res.Rows = nil
		return res
	}

	fields := s.Fields()
	for i, row := range grid[1:] {
		if i%ContextCheckInterval == 0 && ctx.Err() != nil {
			return res.fail("Import cancelled: " + ctx.Err().Error())
		}
		res.TotalRows++
		if blankRow(row) {
			continue
		}

		line := i + 2
		rec, rowErrs := p.validateRow(line, row, fields, columns)
		if len(rowErrs) > 0 {
			res.Rejected++
			res.RowErrors = append(res.RowErrors, rowErrs...)
			for _, e := range rowErrs {
				res.Errors = append(res.Errors, e.Error())
			}
			continue
		}
		if rec.Len() > 0 {
			res.Rows = append(res.Rows, rec)
		}
	}

	if len(res.Rows) == 0 && len(res.Errors) == 0 {
		res.Errors = append(res.Errors, NoValidDataMessage)
	}
	return res
}

// validateRow checks every field of one row. Kinds are converted first so a
// dependent field's rules can follow the converted value of the field it
// depends on. It keeps going after a failure so the caller sees every
// problem in the row.
func (p *Parser) validateRow(line int, row []string, fields []schema.Field, columns map[string]int) (*record.Record, []RowError) {
	rec := record.New[string]()
	raws := make(map[string]string, len(columns))
	badKind := make(map[string]string)

	for _, f := range fields {
		pos, ok := columns[f.Key]
		if !ok {
			continue
		}
		raw := ""
		if pos < len(row) {
			raw = CleanCell(row[pos])
		}
		raws[f.Key] = raw
		if raw == "" {
			continue
		}
		v, msg := p.convertKind(f, raw)
		if msg != "" {
			badKind[f.Key] = msg
			continue
		}
		rec.Set(f.Key, v)
	}

	var errs []RowError
	for _, f := range fields {
		raw, ok := raws[f.Key]
		if !ok {
			continue
		}
		if msg, bad := badKind[f.Key]; bad {
			errs = append(errs, RowError{Row: line, Field: f.Key, Label: f.InputLabel(), Value: raw, Message: msg})
			continue
		}

		var current any
		if f.DependsOn != nil {
			current = rec.Value(f.DependsOn.Key)
		}
		vis := projection.Resolve(f.DependsOn, current, f.Rules)
		if !vis.Visible {
			// Hidden by its dependency: the value is kept but not enforced.
			continue
		}

		if raw == "" {
			if f.Required {
				errs = append(errs, RowError{Row: line, Field: f.Key, Label: f.InputLabel(), Message: "is required"})
			}
			continue
		}
		if msg := checkRules(f, rec.Value(f.Key), vis.Rules); msg != "" {
			errs = append(errs, RowError{Row: line, Field: f.Key, Label: f.InputLabel(), Value: raw, Message: msg})
		}
	}
	return rec, errs
}

func blankRow(row []string) bool {
	for _, c := range row {
		if CleanCell(c) != "" {
			return false
		}
	}
	return true
}

// NormalizeHeader trims a header cell and strips a trailing required marker.
func NormalizeHeader(h string) string {
	h = CleanCell(h)
	h = strings.TrimSpace(strings.TrimSuffix(h, RequiredMarker))
	return strings.ToLower(h)
}

// matchHeaders maps field keys to column positions. A field matches a header
// equal (case-insensitively) to its input label, display title or key.
func matchHeaders(header []string, s *schema.Schema) (map[string]int, *HeaderError) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		n := NormalizeHeader(h)
		if n == "" {
			continue
		}
		if _, seen := positions[n]; !seen {
			positions[n] = i
		}
	}

	columns := make(map[string]int)
	var missing []string
	for _, f := range s.Fields() {
		found := false
		for _, candidate := range []string{f.InputLabel(), f.DisplayTitle(), f.Key} {
			if pos, ok := positions[strings.ToLower(strings.TrimSpace(candidate))]; ok {
				columns[f.Key] = pos
				found = true
				break
			}
		}
		if !found && f.Required && !f.HiddenFromInput() {
			missing = append(missing, f.InputLabel())
		}
	}

	if len(missing) > 0 {
		return nil, &HeaderError{Missing: missing}
	}
	return columns, nil
}
