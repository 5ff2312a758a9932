package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"google.golang.org/api/sheets/v4"

	"collectdash/internal/sources"
	"collectdash/pkg/contracts/domain"
)

// SheetsStore keeps messages in one worksheet. Row 1 holds the headers
// Timestamp, Sender, Receiver, Message and ReplyTo; every following row is a
// message. Columns are matched by header name.
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
	worksheet     string
	logger        *slog.Logger

	mu      sync.Mutex
	sheetID *int64
}

// NewSheetsStore wraps an existing Sheets client.
func NewSheetsStore(svc *sheets.Service, spreadsheetID, worksheet string, logger *slog.Logger) *SheetsStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SheetsStore{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		worksheet:     worksheet,
		logger:        logger.With(slog.String("component", "chat_sheets_store")),
	}
}

// Append implements Store. Values are written raw so timestamps stay text.
func (s *SheetsStore) Append(ctx context.Context, msg domain.ChatMessage) error {
	row := &sheets.ValueRange{
		Values: [][]any{{msg.Timestamp, msg.Sender, msg.Receiver, msg.Message, msg.ReplyTo}},
	}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, sources.SheetRange(s.worksheet), row).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}
	return nil
}

// List implements Store.
func (s *SheetsStore) List(ctx context.Context) ([]domain.ChatMessage, error) {
	rows, err := s.rows(ctx)
	if err != nil {
		return nil, err
	}
	return decodeRows(rows), nil
}

// DeleteByTimestamp implements Store.
func (s *SheetsStore) DeleteByTimestamp(ctx context.Context, timestamp string) error {
	rows, err := s.rows(ctx)
	if err != nil {
		return err
	}

	row := -1
	if len(rows) > 0 {
		pos := headerPositions(rows[0])
		for i := 1; i < len(rows); i++ {
			if decodeRow(pos, rows[i]).Timestamp == timestamp {
				row = i
				break
			}
		}
	}
	if row < 0 {
		return ErrMessageNotFound
	}

	sheetID, err := s.resolveSheetID(ctx)
	if err != nil {
		return err
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row),
					EndIndex:   int64(row + 1),
				},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete chat row %d: %w", row+1, err)
	}

	s.logger.InfoContext(ctx, "chat message deleted",
		slog.String("timestamp", timestamp),
		slog.Int("row", row+1))
	return nil
}

func (s *SheetsStore) rows(ctx context.Context) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, sources.SheetRange(s.worksheet)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read chat worksheet %q: %w", s.worksheet, err)
	}
	return resp.Values, nil
}

// resolveSheetID looks up the numeric worksheet id once.
func (s *SheetsStore) resolveSheetID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sheetID != nil {
		return *s.sheetID, nil
	}

	resp, err := s.svc.Spreadsheets.Get(s.spreadsheetID).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet %s: %w", s.spreadsheetID, err)
	}
	for _, sh := range resp.Sheets {
		if sh.Properties != nil && sh.Properties.Title == s.worksheet {
			id := sh.Properties.SheetId
			s.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("worksheet %q not found", s.worksheet)
}

// decodeRows maps value rows to messages using the header row. Rows that
// are entirely blank are skipped.
func decodeRows(rows [][]any) []domain.ChatMessage {
	if len(rows) == 0 {
		return []domain.ChatMessage{}
	}

	pos := headerPositions(rows[0])
	out := make([]domain.ChatMessage, 0, len(rows)-1)
	for _, row := range rows[1:] {
		msg := decodeRow(pos, row)
		if msg == (domain.ChatMessage{}) {
			continue
		}
		out = append(out, msg)
	}
	return out
}

func headerPositions(header []any) map[string]int {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(fmt.Sprint(h))] = i
	}
	return pos
}

func decodeRow(pos map[string]int, row []any) domain.ChatMessage {
	cell := func(name string) string {
		i, ok := pos[name]
		if !ok || i >= len(row) || row[i] == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(row[i]))
	}
	return domain.ChatMessage{
		Timestamp: cell("Timestamp"),
		Sender:    cell("Sender"),
		Receiver:  cell("Receiver"),
		Message:   cell("Message"),
		ReplyTo:   cell("ReplyTo"),
	}
}
