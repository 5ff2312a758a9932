package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"collectdash/pkg/contracts/domain"
)

// Built-in excelize number formats.
const (
	numFmtThousands2 = 4  // #,##0.00
	numFmtPercent2   = 10 // 0.00%
	numFmtThousands0 = 3  // #,##0
)

type sheetSpec struct {
	name    string
	headers []string
	rows    [][]any
	// formats maps a zero-based column to a number format.
	formats map[int]int
}

// WriteWorkbook writes every report table to its own worksheet, keeping
// cells numeric.
func WriteWorkbook(w io.Writer, r domain.CollectionsReport) error {
	f := excelize.NewFile()
	defer f.Close()

	sheets := workbookSheets(r)
	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.name); err != nil {
			return fmt.Errorf("create sheet %q: %w", sheet.name, err)
		}
		if err := writeSheet(f, sheet); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func workbookSheets(r domain.CollectionsReport) []sheetSpec {
	states := sheetSpec{
		name:    "State Metrics",
		headers: []string{"Account State", "Total Allocated Balance", "Total Collected", "Conversion Rate"},
		formats: map[int]int{1: numFmtThousands2, 2: numFmtThousands2, 3: numFmtPercent2},
	}
	for _, row := range append(append([]domain.StateMetricsRow(nil), r.States.Rows...), r.States.Total) {
		states.rows = append(states.rows, []any{row.AccountState, row.Allocated, row.Collected, row.ConversionRate})
	}

	agents := sheetSpec{name: "Agent Totals", formats: map[int]int{}}
	agents.headers = append([]string{"Agent"}, r.Agents.States...)
	agents.headers = append(agents.headers, "Total Collected", "Conversion Rate")
	for i := 1; i < len(agents.headers)-1; i++ {
		agents.formats[i] = numFmtThousands2
	}
	agents.formats[len(agents.headers)-1] = numFmtPercent2
	for _, row := range r.Agents.Rows {
		cells := []any{row.Agent}
		for _, v := range row.States {
			cells = append(cells, v)
		}
		agents.rows = append(agents.rows, append(cells, row.Collections, row.ConversionRate))
	}

	partials := sheetSpec{
		name:    "Partials",
		headers: []string{"Account State", "Partials Count", "Partial Amount"},
		formats: map[int]int{1: numFmtThousands0, 2: numFmtThousands2},
	}
	for _, row := range append(append([]domain.PartialsRow(nil), r.Partials.Rows...), r.Partials.Total) {
		partials.rows = append(partials.rows, []any{row.AccountState, row.Count, row.Amount})
	}

	feedback := sheetSpec{
		name:    "Feedback",
		headers: []string{"Feedback", "Count", "Amount"},
		formats: map[int]int{1: numFmtThousands0, 2: numFmtThousands2},
	}
	for _, row := range r.Feedback.Rows {
		feedback.rows = append(feedback.rows, []any{row.Feedback, row.Count, row.Amount})
	}

	return []sheetSpec{states, agents, partials, feedback}
}

func writeSheet(f *excelize.File, sheet sheetSpec) error {
	header := make([]any, len(sheet.headers))
	for i, h := range sheet.headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet.name, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet.name, err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(sheet.headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet.name, "A1", last, bold); err != nil {
		return fmt.Errorf("style %s header: %w", sheet.name, err)
	}

	for i, row := range sheet.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet.name, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet.name, i+2, err)
		}
	}

	if len(sheet.rows) > 0 {
		for col, numFmt := range sheet.formats {
			style, err := f.NewStyle(&excelize.Style{NumFmt: numFmt})
			if err != nil {
				return fmt.Errorf("create number style: %w", err)
			}
			top, _ := excelize.CoordinatesToCellName(col+1, 2)
			bottom, _ := excelize.CoordinatesToCellName(col+1, len(sheet.rows)+1)
			if err := f.SetCellStyle(sheet.name, top, bottom, style); err != nil {
				return fmt.Errorf("style %s column %d: %w", sheet.name, col+1, err)
			}
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(sheet.headers))
	return f.SetColWidth(sheet.name, "A", lastCol, 20)
}
