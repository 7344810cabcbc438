package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"

	apperrors "fitcli/internal/errors"
	"fitcli/pkg/contracts/domain"
)

// utf8BOM helps Excel recognize the file as UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// exportColumns is the fixed output header. SedentaryActiveDistance and
// AvgWeightLb are pruned during cleaning and stay out of the file.
var exportColumns = []string{
	"Id",
	"Date",
	"TotalSteps",
	"TotalDistance",
	"TrackerDistance",
	"LoggedActivitiesDistance",
	"VeryActiveDistance",
	"ModeratelyActiveDistance",
	"LightActiveDistance",
	"VeryActiveMinutes",
	"FairlyActiveMinutes",
	"LightlyActiveMinutes",
	"SedentaryMinutes",
	"Calories",
	"TotalMinutesAsleep",
	"TotalTimeInBed",
	"AvgHeartRate",
	"AvgWeightKg",
	"AvgBMI",
	"HasSleepData",
	"HasWeightData",
	"HasBMIData",
	"HasHeartRateData",
	"SleepEfficiency",
	"VeryActiveRatio",
}

// CSVWriter renders the cleaned daily table into a single CSV file.
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a CSV writer.
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger}
}

// Write renders rows to path. Continuous columns print with two
// decimals, count columns as integers, and null cells as empty strings.
func (w *CSVWriter) Write(path string, rows []domain.UnifiedRow) error {
	w.logger.Info("writing merged CSV",
		slog.String("path", path),
		slog.Int("rows", len(rows)))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.NewStorageError("failed to create output directory", err).
			WithContext("path", path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return apperrors.NewStorageError("failed to create temp output file", err).
			WithContext("path", path)
	}
	defer os.Remove(tmp.Name())

	if err := writeRecords(tmp, rows); err != nil {
		tmp.Close()
		return apperrors.NewStorageError("failed to write CSV records", err).
			WithContext("path", path)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewStorageError("failed to close temp output file", err).
			WithContext("path", path)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return apperrors.NewStorageError("failed to move output into place", err).
			WithContext("path", path)
	}
	return nil
}

func writeRecords(f *os.File, rows []domain.UnifiedRow) error {
	if _, err := f.Write(utf8BOM); err != nil {
		return err
	}

	cw := csv.NewWriter(f)
	if err := cw.Write(exportColumns); err != nil {
		return err
	}
	for i := range rows {
		if err := cw.Write(renderRow(&rows[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// renderRow formats one row in exportColumns order.
func renderRow(r *domain.UnifiedRow) []string {
	cells := make(map[string]string, len(exportColumns))
	cells["Id"] = strconv.FormatInt(r.UserID, 10)
	cells["Date"] = r.Date
	cells["HasSleepData"] = strconv.FormatBool(r.HasSleepData)
	cells["HasWeightData"] = strconv.FormatBool(r.HasWeightData)
	cells["HasBMIData"] = strconv.FormatBool(r.HasBMIData)
	cells["HasHeartRateData"] = strconv.FormatBool(r.HasHeartRateData)

	r.EachMetric(func(name string, v **float64) {
		cells[name] = renderMetric(name, *v)
	})

	out := make([]string, len(exportColumns))
	for i, col := range exportColumns {
		out[i] = cells[col]
	}
	return out
}

func renderMetric(name string, v *float64) string {
	if v == nil {
		return ""
	}
	if domain.ContinuousColumns[name] {
		return fmt.Sprintf("%.2f", *v)
	}
	return strconv.FormatInt(int64(math.Round(*v)), 10)
}
