package sheets

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/mamadbah2/billdesk/internal/config"
)

// ErrEmptyRange is returned when a write targets no range.
var ErrEmptyRange = errors.New("sheets: range must not be empty")

// valuesAppender is the part of the Sheets values API the exporter calls.
type valuesAppender interface {
	Append(ctx context.Context, spreadsheetID, sheetRange string, rows [][]interface{}) error
}

type sheetsValues struct {
	service *sheetsapi.Service
}

func (v sheetsValues) Append(ctx context.Context, spreadsheetID, sheetRange string, rows [][]interface{}) error {
	payload := &sheetsapi.ValueRange{Values: rows}
	_, err := v.service.Spreadsheets.Values.Append(spreadsheetID, sheetRange, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// DashboardExporter appends dashboard rows to a Google spreadsheet.
type DashboardExporter struct {
	values        valuesAppender
	spreadsheetID string
	logger        *zap.Logger
}

// NewDashboardExporter authenticates with the service-account credentials
// file and targets the configured spreadsheet.
func NewDashboardExporter(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*DashboardExporter, error) {
	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}
	return newDashboardExporter(sheetsValues{service: service}, cfg.SpreadsheetID, logger), nil
}

func newDashboardExporter(values valuesAppender, spreadsheetID string, logger *zap.Logger) *DashboardExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardExporter{values: values, spreadsheetID: spreadsheetID, logger: logger}
}

// WriteRow appends the provided values to the supplied sheet range.
func (e *DashboardExporter) WriteRow(ctx context.Context, sheetRange string, values []interface{}) error {
	if sheetRange == "" {
		return ErrEmptyRange
	}
	if err := e.values.Append(ctx, e.spreadsheetID, sheetRange, [][]interface{}{values}); err != nil {
		return fmt.Errorf("append row into range %s: %w", sheetRange, err)
	}

	e.logger.Debug("dashboard row appended", zap.String("range", sheetRange), zap.Int("columns", len(values)))
	return nil
}
