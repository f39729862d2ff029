package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/gridkit/internal/schema"
	"github.com/xuri/excelize/v2"
)

// TemplatePrefix starts every generated template file name.
const TemplatePrefix = "template_"

const templateSheet = "Sheet1"

// TemplateFileName builds the download name for an entity's upload template,
// e.g. "Purchase Orders" -> "template_purchase_orders.xlsx".
func TemplateFileName(entity string, format Format) string {
	name := strings.ToLower(strings.Join(strings.Fields(entity), "_"))
	if name == "" {
		name = "data"
	}
	return TemplatePrefix + name + format.Extension()
}

// TemplateHeaders returns the header row for s: the input label of every
// field shown in forms, with " *" appended for required fields.
func TemplateHeaders(s *schema.Schema) []string {
	var headers []string
	for _, f := range s.Fields() {
		if f.HiddenFromInput() {
			continue
		}
		label := f.InputLabel()
		if f.Required {
			label += " " + RequiredMarker
		}
		headers = append(headers, label)
	}
	return headers
}

// TemplateExamples returns the example row matching TemplateHeaders.
func TemplateExamples(s *schema.Schema) []string {
	var row []string
	for _, f := range s.Fields() {
		if f.HiddenFromInput() {
			continue
		}
		row = append(row, exampleValue(f))
	}
	return row
}

// WriteTemplate writes an upload template for s to w.
func WriteTemplate(w io.Writer, s *schema.Schema, format Format, withExample bool) error {
	if err := s.Validate(); err != nil {
		return err
	}

	rows := [][]string{TemplateHeaders(s)}
	if withExample {
		rows = append(rows, TemplateExamples(s))
	}

	switch format {
	case FormatXLSX:
		return writeXLSX(w, rows)
	case FormatCSV, "":
		cw := csv.NewWriter(w)
		if err := cw.WriteAll(rows); err != nil {
			return fmt.Errorf("write csv template: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unsupported format %q", format)
}

func writeXLSX(w io.Writer, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(templateSheet, cell, &values); err != nil {
			return fmt.Errorf("write xlsx template: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx template: %w", err)
	}
	return nil
}

// exampleValue prefers the field's configured example, then a value that
// would pass import for its kind.
func exampleValue(f schema.Field) string {
	if f.Example != "" {
		return f.Example
	}
	opts := f.StaticOptions()

	switch f.Kind {
	case schema.KindNumber, schema.KindSlider:
		return "100"
	case schema.KindDate:
		return "2024-01-31"
	case schema.KindDateRange:
		return "2024-01-01 ~ 2024-01-31"
	case schema.KindSwitch:
		return "yes"
	case schema.KindSelect, schema.KindRadioGroup:
		if len(opts) > 0 {
			return opts[0].Label
		}
	case schema.KindMultiSelect, schema.KindCheckboxGroup:
		if len(opts) > 1 {
			return opts[0].Label + ", " + opts[1].Label
		}
		if len(opts) == 1 {
			return opts[0].Label
		}
	}

	for _, r := range f.Rules {
		if r.Type == schema.RuleEmail {
			return "name@example.com"
		}
	}
	return ""
}
