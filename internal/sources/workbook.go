package sources

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"collectdash/pkg/contracts/domain"
)

// WorkbookSource reads agent batches from the worksheets of a local Excel
// workbook. The file is reopened on every call so edits are picked up by the
// next pass.
type WorkbookSource struct {
	path   string
	logger *slog.Logger
}

// NewWorkbookSource creates a source over the workbook at path.
func NewWorkbookSource(path string, logger *slog.Logger) *WorkbookSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookSource{
		path:   path,
		logger: logger.With(slog.String("component", "workbook_source")),
	}
}

// ListBatches returns worksheet names in tab order.
func (w *WorkbookSource) ListBatches(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// FetchBatch returns the raw (unformatted) cell values of one worksheet.
func (w *WorkbookSource) FetchBatch(ctx context.Context, name string) (domain.RawBatch, error) {
	if err := ctx.Err(); err != nil {
		return domain.RawBatch{}, err
	}
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return domain.RawBatch{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(name); err != nil || idx < 0 {
		return domain.RawBatch{}, fmt.Errorf("worksheet %q: %w", name, ErrBatchNotFound)
	}

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return domain.RawBatch{}, fmt.Errorf("read worksheet %q: %w", name, err)
	}

	out := make([][]any, len(rows))
	for i, r := range rows {
		cells := make([]any, len(r))
		for j, c := range r {
			cells[j] = c
		}
		out[i] = cells
	}
	w.logger.DebugContext(ctx, "read worksheet",
		slog.String("sheet", name),
		slog.Int("rows", len(out)))
	return domain.RawBatch{Name: name, Rows: out}, nil
}
