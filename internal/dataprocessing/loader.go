package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "fitcli/internal/errors"
	"fitcli/internal/files"
)

// Loader reads allow-listed source files into raw in-memory tables.
// A malformed file is fatal: a silently partial load would corrupt the
// (user, date) key space of everything downstream.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load reads every discovered source file into a TableSet keyed by
// {kind}_{window}. When the same (kind, window) pair appears twice, for
// example as both .csv and .xlsx, the first file in path order wins.
func (l *Loader) Load(sources []files.SourceFile) (TableSet, error) {
	set := make(TableSet, len(sources))

	for _, src := range sources {
		tag := TableTag(src.Kind, src.Window.Label)
		if existing, ok := set[tag]; ok {
			l.logger.Warn("duplicate source for table, keeping first",
				slog.String("table", tag),
				slog.Int("kept_rows", len(existing.Rows)),
				slog.String("skipped", src.Path))
			continue
		}

		table, err := l.loadFile(src)
		if err != nil {
			return nil, apperrors.NewIngestError(
				fmt.Sprintf("malformed source file %s", src.Name), err).
				WithContext("path", src.Path).
				WithContext("window", src.Window.Label)
		}

		set[tag] = table
		l.logger.Info("loaded source table",
			slog.String("table", tag),
			slog.Int("columns", len(table.Columns)),
			slog.Int("rows", len(table.Rows)))
	}

	return set, nil
}

// loadFile dispatches on extension. Only .csv and .xlsx pass the
// classifier, so anything else here is a programming error.
func (l *Loader) loadFile(src files.SourceFile) (*RawTable, error) {
	var (
		records [][]string
		err     error
	)

	switch strings.ToLower(filepath.Ext(src.Path)) {
	case ".csv":
		records, err = readCSV(src.Path)
	case ".xlsx":
		records, err = readXLSX(src.Path)
	default:
		return nil, fmt.Errorf("unsupported table format %q", filepath.Ext(src.Path))
	}
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("file has no header row")
	}

	header := trimCells(records[0])
	rows := make([][]string, 0, len(records)-1)
	for _, record := range records[1:] {
		rows = append(rows, padRow(trimCells(record), len(header)))
	}

	return &RawTable{
		Kind:    src.Kind,
		Window:  src.Window,
		Columns: header,
		Rows:    rows,
	}, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Fitabase exports occasionally carry ragged rows; width is fixed up
	// against the header after reading.
	reader.FieldsPerRecord = -1

	return reader.ReadAll()
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	return f.GetRows(sheets[0])
}

// trimCells strips surrounding whitespace and a possible UTF-8 BOM.
func trimCells(record []string) []string {
	out := make([]string, len(record))
	for i, cell := range record {
		out[i] = strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff"))
	}
	return out
}

// padRow widens or truncates a row to the header width.
func padRow(row []string, width int) []string {
	if len(row) == width {
		return row
	}
	if len(row) > width {
		return row[:width]
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}
