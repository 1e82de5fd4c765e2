package report

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsWriter exports tables to a Google spreadsheet, one sheet per table.
type SheetsWriter struct {
	service       *sheets.Service
	spreadsheetID string
	logger        zerolog.Logger
}

// NewSheetsWriter authenticates with a service account key file.
func NewSheetsWriter(ctx context.Context, spreadsheetID, credentialsFile string, logger zerolog.Logger) (*SheetsWriter, error) {
	if credentialsFile == "" {
		return nil, fmt.Errorf("sheets.credentials_file is required")
	}
	return newSheetsWriter(ctx, spreadsheetID, logger, option.WithAuthCredentialsFile(option.ServiceAccount, credentialsFile))
}

func newSheetsWriter(ctx context.Context, spreadsheetID string, logger zerolog.Logger, opts ...option.ClientOption) (*SheetsWriter, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("sheets.spreadsheet_id is required")
	}
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	return &SheetsWriter{
		service:       service,
		spreadsheetID: spreadsheetID,
		logger:        logger.With().Str("component", "sheets").Logger(),
	}, nil
}

// Write replaces the content of each table's sheet, adding missing sheets first.
func (s *SheetsWriter) Write(ctx context.Context, tables []Table) error {
	doc, err := s.service.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet %s: %w", s.spreadsheetID, err)
	}
	existing := make(map[string]bool, len(doc.Sheets))
	for _, sh := range doc.Sheets {
		if sh.Properties != nil {
			existing[sh.Properties.Title] = true
		}
	}

	var add []*sheets.Request
	for _, t := range tables {
		if !existing[t.Name] {
			add = append(add, &sheets.Request{AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: t.Name},
			}})
		}
	}
	if len(add) > 0 {
		req := &sheets.BatchUpdateSpreadsheetRequest{Requests: add}
		if _, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("add sheets: %w", err)
		}
	}

	for _, t := range tables {
		if _, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, t.Name, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
			return fmt.Errorf("clear sheet %s: %w", t.Name, err)
		}
		records := t.Records()
		values := make([][]interface{}, 0, len(records))
		for _, rec := range records {
			row := make([]interface{}, len(rec))
			for i, v := range rec {
				row[i] = v
			}
			values = append(values, row)
		}
		_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, t.Name+"!A1", &sheets.ValueRange{Values: values}).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("update sheet %s: %w", t.Name, err)
		}
		s.logger.Debug().Str("sheet", t.Name).Int("rows", len(t.Rows)).Msg("sheet updated")
	}
	return nil
}
