package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Column layouts for the bulk-import templates downloaded by admins.
var (
	StudentTemplateColumns = []string{
		"firstName", "lastName", "email", "password", "mobile", "dateOfBirth", "rollNumber",
	}
	QuestionTemplateColumns = []string{
		"text", "option1", "option2", "option3", "option4", "correctOption",
	}
)

const templateSheet = "Sheet1"

// XLSXTemplateExporter writes empty .xlsx import templates and reads
// filled-in workbooks back into row maps keyed by header.
type XLSXTemplateExporter struct{}

// NewXLSXTemplateExporter constructs the exporter.
func NewXLSXTemplateExporter() *XLSXTemplateExporter {
	return &XLSXTemplateExporter{}
}

// RenderTemplate produces a workbook containing only the header row.
func (e *XLSXTemplateExporter) RenderTemplate(columns []string) ([]byte, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("template requires at least one column")
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("resolve cell: %w", err)
		}
		if err := f.SetCellValue(templateSheet, cell, col); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = f.SetCellStyle(templateSheet, "A1", last, style)
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write template: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseRows reads the first sheet of an uploaded workbook. The first row is
// treated as the header; every following non-empty row becomes a map keyed
// by header name. Short rows are padded with empty strings.
func (e *XLSXTemplateExporter) ParseRows(r io.Reader) ([]map[string]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close() //nolint:errcheck

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("workbook is empty")
	}

	headers := rows[0]
	parsed := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		empty := true
		record := make(map[string]string, len(headers))
		for i, header := range headers {
			value := ""
			if i < len(row) {
				value = row[i]
			}
			if value != "" {
				empty = false
			}
			record[header] = value
		}
		if !empty {
			parsed = append(parsed, record)
		}
	}
	return parsed, nil
}
