package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Collections",
		Summary: [][2]string{{"Total expected", "400000.00"}},
		Headers: []string{"Line", "Expected", "Received"},
		Rows:    [][]string{{"Semester 1 #1", "100000.00", "50000.00"}},
	}
}

func TestCSVExporterWritesSummaryThenTable(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	reader := csv.NewReader(bytes.NewReader(out))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Total expected", "400000.00"}, records[0])
	assert.Equal(t, []string{"Line", "Expected", "Received"}, records[1])
	assert.Equal(t, "Semester 1 #1", records[2][0])
}

func TestPDFExporterProducesDocument(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestExportersRejectRaggedRows(t *testing.T) {
	data := sampleDataset()
	data.Rows = append(data.Rows, []string{"short"})
	_, err := NewCSVExporter().Render(data)
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(data)
	assert.Error(t, err)
	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
	f, err = ParseFormat("pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", f.ContentType())
	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestCSVExporterAllowsSummaryNarrowerThanTable(t *testing.T) {
	data := sampleDataset()
	data.Summary = append(data.Summary, [2]string{"Currency", "INR"})
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.Equal(t, "Total expected,400000.00\nCurrency,INR\n\nLine,Expected,Received\nSemester 1 #1,100000.00,50000.00\n", string(out))
}
