package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()
	data := Dataset{
		Preamble: []string{"Networks", "Classes held: 2"},
		Headers:  []string{"Name", "Scholar ID", "2025-03-09", "2025-03-10", "Attended", "Percent"},
		Rows: [][]string{
			{"Alice", "2112001", "P", "A", "1", "50.00"},
			{"Bob", "", "P", "P", "2", "100.00"},
		},
	}

	out, err := exporter.Render(data)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Networks", lines[0])
	assert.Equal(t, "Classes held: 2", lines[1])
	assert.Equal(t, "Name,Scholar ID,2025-03-09,2025-03-10,Attended,Percent", lines[2])
	assert.Equal(t, "Alice,2112001,P,A,1,50.00", lines[3])
}

func TestCSVExporterPadsShortRows(t *testing.T) {
	exporter := NewCSVExporter()
	out, err := exporter.Render(Dataset{
		Headers: []string{"Name", "Scholar ID", "Attended"},
		Rows:    [][]string{{"Alice"}},
	})
	require.NoError(t, err)
	assert.Contains(t, string(out), "Alice,,")
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()
	_, err := exporter.Render(Dataset{Rows: [][]string{{"Alice"}}})
	require.Error(t, err)
}
