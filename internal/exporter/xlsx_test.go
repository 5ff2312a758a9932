package exporter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, sampleReport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"State Metrics", "Agent Totals", "Partials", "Feedback"}, f.GetSheetList())

	rows, err := f.GetRows("State Metrics", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"Account State", "Total Allocated Balance", "Total Collected", "Conversion Rate"}, rows[0])
	assert.Equal(t, []string{"Write Off", "4000", "500", "0.125"}, rows[2])
	assert.Equal(t, "TOTAL", rows[5][0])

	agents, err := f.GetRows("Agent Totals", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, agents, 3)
	assert.Equal(t, "Bob", agents[2][0])
	assert.Equal(t, "500", agents[2][5])

	feedback, err := f.GetRows("Feedback", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Promise to Pay", "2", "1000.5"}, feedback[1])
}
