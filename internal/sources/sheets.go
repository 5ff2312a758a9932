package sources

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"collectdash/pkg/contracts/domain"
)

// UnformattedValue asks the Sheets API for raw cell values so that numbers
// arrive as numbers rather than locale-formatted strings.
const UnformattedValue = "UNFORMATTED_VALUE"

// SheetsConfig configures access to the Google Sheets API.
type SheetsConfig struct {
	SpreadsheetID   string
	CredentialsFile string
	CredentialsJSON []byte
	// Endpoint overrides the API base URL. Used against local test servers.
	Endpoint string
}

// NewSheetsService creates a Sheets API client from the configured credentials.
func NewSheetsService(ctx context.Context, cfg SheetsConfig, extra ...option.ClientOption) (*sheets.Service, error) {
	var opts []option.ClientOption
	switch {
	case len(cfg.CredentialsJSON) > 0:
		opts = append(opts, option.WithCredentialsJSON(cfg.CredentialsJSON))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	opts = append(opts, extra...)

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// SheetsSource reads agent batches from the worksheets of one spreadsheet.
type SheetsSource struct {
	svc           *sheets.Service
	spreadsheetID string
	logger        *slog.Logger
}

// NewSheetsSource wraps an existing Sheets client.
func NewSheetsSource(svc *sheets.Service, spreadsheetID string, logger *slog.Logger) *SheetsSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &SheetsSource{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		logger:        logger.With(slog.String("component", "sheets_source")),
	}
}

// ListBatches returns worksheet titles in tab order.
func (s *SheetsSource) ListBatches(ctx context.Context) ([]string, error) {
	resp, err := s.svc.Spreadsheets.Get(s.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet %s: %w", s.spreadsheetID, err)
	}

	titles := make([]string, 0, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties == nil {
			continue
		}
		titles = append(titles, sh.Properties.Title)
	}
	s.logger.DebugContext(ctx, "listed worksheets", slog.Int("count", len(titles)))
	return titles, nil
}

// FetchBatch reads every value of one worksheet, unformatted.
func (s *SheetsSource) FetchBatch(ctx context.Context, name string) (domain.RawBatch, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, SheetRange(name)).
		ValueRenderOption(UnformattedValue).
		Context(ctx).
		Do()
	if err != nil {
		return domain.RawBatch{}, fmt.Errorf("get values of %q: %w", name, err)
	}

	rows := make([][]any, len(resp.Values))
	for i, r := range resp.Values {
		rows[i] = r
	}
	return domain.RawBatch{Name: name, Rows: rows}, nil
}

// SheetRange quotes a worksheet title for use as an A1 range covering the
// whole sheet.
func SheetRange(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
