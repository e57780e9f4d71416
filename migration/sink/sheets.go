package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/theimaginaryfoundation/note-sheets/migration"
)

// Sheets creates a new spreadsheet per call, one sheet per table, values written
// verbatim (RAW) from A1.
type Sheets struct {
	svc     *sheets.Service
	limiter *rate.Limiter
}

// NewSheets builds a Sheets writer. limiter may be nil.
func NewSheets(ctx context.Context, limiter *rate.Limiter, opts ...option.ClientOption) (*Sheets, error) {
	if ctx == nil {
		return nil, errors.New("NewSheets: ctx is nil")
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewSheets: %w", err)
	}
	return &Sheets{svc: svc, limiter: limiter}, nil
}

func (s *Sheets) WriteTables(ctx context.Context, title string, tables []migration.Table) (string, error) {
	if len(tables) == 0 {
		return "", errors.New("Sheets: no tables")
	}

	book := &sheets.Spreadsheet{Properties: &sheets.SpreadsheetProperties{Title: title}}
	for _, t := range tables {
		book.Sheets = append(book.Sheets, &sheets.Sheet{Properties: &sheets.SheetProperties{Title: t.Name}})
	}
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	created, err := s.svc.Spreadsheets.Create(book).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("Sheets: create spreadsheet: %w", err)
	}

	req := &sheets.BatchUpdateValuesRequest{ValueInputOption: "RAW"}
	for _, t := range tables {
		req.Data = append(req.Data, &sheets.ValueRange{
			Range:  quoteSheetName(t.Name) + "!A1",
			Values: t.Values,
		})
	}
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	if _, err := s.svc.Spreadsheets.Values.BatchUpdate(created.SpreadsheetId, req).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("Sheets: write values (spreadsheet=%s): %w", created.SpreadsheetId, err)
	}

	if created.SpreadsheetUrl != "" {
		return created.SpreadsheetUrl, nil
	}
	return SpreadsheetURL(created.SpreadsheetId), nil
}

func (s *Sheets) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("Sheets: rate limit wait: %w", err)
	}
	return nil
}

// SpreadsheetURL is the browser link for a spreadsheet id.
func SpreadsheetURL(id string) string {
	return "https://docs.google.com/spreadsheets/d/" + id
}

func quoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
