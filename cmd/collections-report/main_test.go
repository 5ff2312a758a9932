package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"collectdash/internal/exporter"
	"collectdash/internal/shared/testutil"
)

func writeWorkbook(t *testing.T, sheets map[string][][]any, order []string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	path := filepath.Join(t.TempDir(), "portfolio.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestRun_Workbook(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{
		"Alice": {
			testutil.FixtureHeader,
			{"1", "John D", 1000, "Arrears", "Paying Partially", "Employed", 200},
		},
		"Summary": {
			testutil.FixtureHeader,
			{"x", "ignored", 99999, "Arrears", "", "", 9999},
		},
	}, []string{"Alice", "Summary"})
	out := t.TempDir()

	var stdout bytes.Buffer
	err := run(context.Background(), []string{"-workbook", path, "-out", out}, &stdout, testutil.Logger(t))
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "Total collected: KES 200.00")
	for _, name := range []string{exporter.StatesFile, exporter.AgentsFile, exporter.PartialsFile, exporter.FeedbackFile} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
}

func TestRun_FlagErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no source", args: nil},
		{name: "both sources", args: []string{"-workbook", "a.xlsx", "-sheet-id", "abc"}},
		{name: "bad policy", args: []string{"-workbook", "a.xlsx", "-exclusion-policy", "fuzzy"}},
		{name: "missing workbook", args: []string{"-workbook", filepath.Join(t.TempDir(), "none.xlsx"), "-out", t.TempDir()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout bytes.Buffer
			assert.Error(t, run(context.Background(), tt.args, &stdout, testutil.Logger(t)))
		})
	}
}
