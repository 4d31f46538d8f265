package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"sheetsync/domain/snapshot"
	apperrors "sheetsync/internal/errors"
	"sheetsync/ports"
)

// FailuresSheet lists the datasets that could not be loaded
const FailuresSheet = "failures"

// Format is an export file format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// FormatFromPath picks the export format from a file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", apperrors.InvalidInput(fmt.Sprintf("unsupported export file %q: use .xlsx or .csv", path))
	}
}

// NewExporter returns the exporter for format
func NewExporter(format Format) (ports.SnapshotExporter, error) {
	switch format {
	case FormatXLSX:
		return WorkbookExporter{}, nil
	case FormatCSV:
		return CSVExporter{}, nil
	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("unsupported export format %q", format))
	}
}

// WorkbookExporter writes one sheet per loaded dataset with a bold header
// row, plus a failures sheet when any dataset failed.
type WorkbookExporter struct{}

// Export writes snap as an xlsx workbook
func (WorkbookExporter) Export(snap *snapshot.Snapshot, w io.Writer) error {
	if snap == nil {
		return apperrors.InvalidInput("nothing to export: no snapshot loaded")
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return apperrors.Wrap(err, "failed to create header style")
	}

	first := true
	for _, e := range snap.Entries() {
		if !e.OK() {
			continue
		}
		sheet := e.Name.String()
		if err := addSheet(f, sheet, first); err != nil {
			return err
		}
		first = false

		if err := writeRow(f, sheet, 1, e.Dataset.Headers); err != nil {
			return err
		}
		if err := f.SetRowStyle(sheet, 1, 1, header); err != nil {
			return apperrors.Wrap(err, "failed to style header row")
		}
		for i, row := range e.Dataset.Rows {
			if err := writeRow(f, sheet, i+2, row); err != nil {
				return err
			}
		}
	}

	if failures := snap.Failures(); len(failures) > 0 {
		if err := addSheet(f, FailuresSheet, first); err != nil {
			return err
		}
		first = false
		if err := writeRow(f, FailuresSheet, 1, []string{"dataset", "kind", "retryable", "message"}); err != nil {
			return err
		}
		for i, e := range failures {
			kind, retryable, msg := "", false, ""
			if e.Failure != nil {
				kind, retryable, msg = string(e.Failure.Kind), e.Failure.Retryable, e.Failure.Message
			}
			if err := writeRow(f, FailuresSheet, i+2, []string{e.Name.String(), kind, strconv.FormatBool(retryable), msg}); err != nil {
				return err
			}
		}
	}

	if err := f.Write(w); err != nil {
		return apperrors.Wrap(err, "failed to write workbook")
	}
	return nil
}

// addSheet renames the default sheet for the first dataset and appends the rest
func addSheet(f *excelize.File, sheet string, first bool) error {
	if first {
		if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
			return apperrors.Wrapf(err, "failed to name sheet %s", sheet)
		}
		return nil
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return apperrors.Wrapf(err, "failed to add sheet %s", sheet)
	}
	return nil
}

func writeRow[S ~[]string](f *excelize.File, sheet string, row int, values S) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return apperrors.Wrap(err, "invalid cell")
	}
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &out); err != nil {
		return apperrors.Wrapf(err, "failed to write %s row %d", sheet, row)
	}
	return nil
}

// CSVExporter writes the snapshot in long form: one line per cell with
// dataset, row number, field and value. Failures are written with row 0,
// field "error" and the failure message as value.
type CSVExporter struct{}

// Export writes snap as CSV
func (CSVExporter) Export(snap *snapshot.Snapshot, w io.Writer) error {
	if snap == nil {
		return apperrors.InvalidInput("nothing to export: no snapshot loaded")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"dataset", "row", "field", "value"}); err != nil {
		return apperrors.Wrap(err, "failed to write CSV header")
	}
	for _, e := range snap.Entries() {
		if !e.OK() {
			if err := cw.Write([]string{e.Name.String(), "0", "error", e.Err().Error()}); err != nil {
				return apperrors.Wrap(err, "failed to write CSV")
			}
			continue
		}
		for i, row := range e.Dataset.Rows {
			for j, h := range e.Dataset.Headers {
				if err := cw.Write([]string{e.Name.String(), strconv.Itoa(i + 1), h, row[j]}); err != nil {
					return apperrors.Wrap(err, "failed to write CSV")
				}
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return apperrors.Wrap(err, "failed to flush CSV")
	}
	return nil
}
