package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()
	data := Dataset{
		Headers: []string{"No", "Date"},
		Rows: []map[string]string{
			{"No": "1", "Date": "2026-03-10"},
			{"No": "2", "Date": "2026-03-11"},
		},
	}

	payload, err := exporter.Render(data)
	require.NoError(t, err)
	assert.Equal(t, "No,Date\n1,2026-03-10\n2,2026-03-11\n", string(payload))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter()
	data := Dataset{
		Headers: []string{"No", "Date"},
		Rows:    []map[string]string{{"No": "1", "Date": "2026-03-10"}},
	}

	payload, err := exporter.Render(data, "Class schedule batch-a", "Generated for testing")
	require.NoError(t, err)
	assert.NotEmpty(t, payload)
	assert.Equal(t, "%PDF", string(payload[:4]))
}
