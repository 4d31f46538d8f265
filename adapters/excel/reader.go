package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"sheetsync/domain/dataset"
	"sheetsync/internal"
	apperrors "sheetsync/internal/errors"
)

// WorkbookSource serves datasets from local files instead of the remote
// endpoint. A .xlsx path holds one sheet per dataset name; a directory holds
// one <name>.csv file per dataset. Files are reopened on every fetch.
type WorkbookSource struct {
	path     string
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewWorkbookSource creates a source reading from path
func NewWorkbookSource(path string, logger *internal.Logger) *WorkbookSource {
	fileType := "xlsx"
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		fileType = "csv"
	}
	return &WorkbookSource{path: path, fileType: fileType, logger: logger.Named("workbook")}
}

// FetchDataset reads the sheet or CSV file named after the dataset. The first
// row is the header row.
func (s *WorkbookSource) FetchDataset(ctx context.Context, name dataset.Name) (dataset.Payload, error) {
	if err := ctx.Err(); err != nil {
		return dataset.Payload{}, apperrors.NetworkError(name.String(), err)
	}

	start := time.Now()
	var (
		rows [][]string
		err  error
	)
	switch s.fileType {
	case "csv":
		rows, err = s.readCSV(name)
	default:
		rows, err = s.readSheet(name)
	}
	if err != nil {
		return dataset.Payload{}, err
	}
	s.logger.Debug("%s read from %s in %s (%d rows)", name, s.fileType, time.Since(start), len(rows))

	return processRows(name, rows)
}

func (s *WorkbookSource) readSheet(name dataset.Name) ([][]string, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, apperrors.NetworkError(name.String(), fmt.Errorf("failed to open workbook: %w", err))
	}
	defer f.Close()

	sheet := ""
	for _, candidate := range f.GetSheetList() {
		if strings.EqualFold(candidate, name.String()) {
			sheet = candidate
			break
		}
	}
	if sheet == "" {
		return nil, apperrors.MalformedResponse(name.String(), fmt.Errorf("workbook has no sheet %q", name))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.MalformedResponse(name.String(), fmt.Errorf("failed to read sheet %s: %w", sheet, err))
	}
	return rows, nil
}

func (s *WorkbookSource) readCSV(name dataset.Name) ([][]string, error) {
	file, err := os.Open(filepath.Join(s.path, name.String()+".csv"))
	if err != nil {
		return nil, apperrors.NetworkError(name.String(), fmt.Errorf("failed to open CSV file: %w", err))
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.MalformedResponse(name.String(), fmt.Errorf("failed to read CSV file: %w", err))
	}
	return rows, nil
}

// processRows splits off the header row. Spreadsheet readers drop trailing
// empty cells, so short rows are padded back to the header width; blank rows
// are skipped. Rows wider than the header are kept and rejected downstream.
func processRows(name dataset.Name, rows [][]string) (dataset.Payload, error) {
	if len(rows) == 0 {
		return dataset.Payload{}, apperrors.MalformedResponse(name.String(), fmt.Errorf("sheet has no header row"))
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		if len(row) < len(headers) {
			padded := make([]string, len(headers))
			copy(padded, row)
			row = padded
		}
		data = append(data, row)
	}
	return dataset.Payload{Headers: headers, Rows: data}, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
