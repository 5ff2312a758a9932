package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"collectdash/pkg/contracts/domain"
)

// Export file names written by WriteReport.
const (
	StatesFile   = "state_metrics.csv"
	AgentsFile   = "agent_totals.csv"
	PartialsFile = "partials.csv"
	FeedbackFile = "feedback.csv"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a header row plus string records, ready for CSV or XLSX output.
type Table struct {
	Name    string
	Headers []string
	Records [][]string
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// StateMetricsTable renders the per-state table with its TOTAL row.
// Conversion Rate is a ratio.
func StateMetricsTable(t domain.StateMetricsTable) Table {
	out := Table{
		Name:    "State Metrics",
		Headers: []string{"Account State", "Total Allocated Balance", "Total Collected", "Conversion Rate"},
		Records: make([][]string, 0, len(t.Rows)+1),
	}
	for _, r := range append(append([]domain.StateMetricsRow(nil), t.Rows...), t.Total) {
		out.Records = append(out.Records, []string{
			r.AccountState, formatFloat(r.Allocated), formatFloat(r.Collected), formatFloat(r.ConversionRate),
		})
	}
	return out
}

// AgentTotalsTable renders one row per agent: the tracked states in order,
// then Total Collected and Conversion Rate.
func AgentTotalsTable(t domain.AgentTotalsTable) Table {
	headers := make([]string, 0, len(t.States)+3)
	headers = append(headers, "Agent")
	headers = append(headers, t.States...)
	headers = append(headers, "Total Collected", "Conversion Rate")

	out := Table{Name: "Agent Totals", Headers: headers, Records: make([][]string, 0, len(t.Rows))}
	for _, r := range t.Rows {
		rec := make([]string, 0, len(headers))
		rec = append(rec, r.Agent)
		for _, v := range r.States {
			rec = append(rec, formatFloat(v))
		}
		rec = append(rec, formatFloat(r.Collections), formatFloat(r.ConversionRate))
		out.Records = append(out.Records, rec)
	}
	return out
}

// PartialsTable renders the partial-payment summary with its TOTAL row.
func PartialsTable(t domain.PartialsTable) Table {
	out := Table{
		Name:    "Partials",
		Headers: []string{"Account State", "Partials Count", "Partial Amount"},
		Records: make([][]string, 0, len(t.Rows)+1),
	}
	for _, r := range append(append([]domain.PartialsRow(nil), t.Rows...), t.Total) {
		out.Records = append(out.Records, []string{r.AccountState, formatInt(r.Count), formatFloat(r.Amount)})
	}
	return out
}

// FeedbackTable renders the feedback summary in category order.
func FeedbackTable(t domain.FeedbackSummary) Table {
	out := Table{
		Name:    "Feedback",
		Headers: []string{"Feedback", "Count", "Amount"},
		Records: make([][]string, 0, len(t.Rows)),
	}
	for _, r := range t.Rows {
		out.Records = append(out.Records, []string{r.Feedback, formatInt(r.Count), formatFloat(r.Amount)})
	}
	return out
}

// ReportTables returns every table of a report in export order.
func ReportTables(r domain.CollectionsReport) []Table {
	return []Table{
		StateMetricsTable(r.States),
		AgentTotalsTable(r.Agents),
		PartialsTable(r.Partials),
		FeedbackTable(r.Feedback),
	}
}

// EncodeCSV writes t to w.
func EncodeCSV(w io.Writer, t Table, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(t.Headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, record := range t.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// CSVWriter writes export files into one directory.
type CSVWriter struct {
	dir    string
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(dir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{dir: dir, logger: logger.With(slog.String("component", "csv_writer"))}
}

// WriteCSV writes t to name inside the writer's directory. The file is
// written under a temporary name and renamed into place.
func (w *CSVWriter) WriteCSV(name string, t Table, options WriteOptions) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	fullPath := filepath.Join(w.dir, name)
	w.logger.Info("Writing CSV file",
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(t.Records)))

	file, err := os.CreateTemp(w.dir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	tmp := file.Name()

	if err := EncodeCSV(file, t, options); err != nil {
		file.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp, fullPath); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to move %s into place: %w", name, err)
	}
	return fullPath, nil
}

// WriteReport writes the four report CSVs and returns their paths.
func (w *CSVWriter) WriteReport(r domain.CollectionsReport) ([]string, error) {
	names := []string{StatesFile, AgentsFile, PartialsFile, FeedbackFile}
	paths := make([]string, 0, len(names))
	for i, t := range ReportTables(r) {
		p, err := w.WriteCSV(names[i], t, WriteOptions{BOMPrefix: true})
		if err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// formatFloat writes the shortest exact decimal form, so values stay numeric.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}
