package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestXLSXTemplateRoundTrip(t *testing.T) {
	exporter := NewXLSXTemplateExporter()
	data, err := exporter.RenderTemplate(StudentTemplateColumns)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	rows, err := exporter.ParseRows(bytes.NewReader(data))
	require.NoError(t, err)
	require.Empty(t, rows, "fresh template has a header row only")
}

func TestXLSXTemplateParseRows(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]string{"text", "option1", "option2"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]string{"What is 2+2?", "3", "4"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]string{"", "", ""}))
	buf := &bytes.Buffer{}
	require.NoError(t, f.Write(buf))

	exporter := NewXLSXTemplateExporter()
	rows, err := exporter.ParseRows(buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "What is 2+2?", rows[0]["text"])
	require.Equal(t, "4", rows[0]["option2"])
}

func TestXLSXTemplateRequiresColumns(t *testing.T) {
	exporter := NewXLSXTemplateExporter()
	_, err := exporter.RenderTemplate(nil)
	require.Error(t, err)
}
