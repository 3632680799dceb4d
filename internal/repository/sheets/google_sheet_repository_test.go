package sheets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingValues struct {
	spreadsheetID string
	sheetRange    string
	rows          [][]interface{}
	err           error
}

func (r *recordingValues) Append(_ context.Context, spreadsheetID, sheetRange string, rows [][]interface{}) error {
	r.spreadsheetID = spreadsheetID
	r.sheetRange = sheetRange
	r.rows = rows
	return r.err
}

func TestWriteRowAppendsSingleRow(t *testing.T) {
	values := &recordingValues{}
	exporter := newDashboardExporter(values, "sheet-1", nil)

	require.NoError(t, exporter.WriteRow(context.Background(), "Dashboard!A:J", []interface{}{"2026-01-02", "MAIN", 3}))
	require.Equal(t, "sheet-1", values.spreadsheetID)
	require.Equal(t, "Dashboard!A:J", values.sheetRange)
	require.Equal(t, [][]interface{}{{"2026-01-02", "MAIN", 3}}, values.rows)
}

func TestWriteRowErrors(t *testing.T) {
	values := &recordingValues{err: errors.New("quota exceeded")}
	exporter := newDashboardExporter(values, "sheet-1", nil)

	require.ErrorIs(t, exporter.WriteRow(context.Background(), "", nil), ErrEmptyRange)

	err := exporter.WriteRow(context.Background(), "Dashboard!A:J", []interface{}{1})
	require.ErrorContains(t, err, "quota exceeded")
}
