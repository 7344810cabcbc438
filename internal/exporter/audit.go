package exporter

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fitcli/internal/dataprocessing"
	apperrors "fitcli/internal/errors"
	"fitcli/pkg/contracts/domain"
)

// RunReport is the JSON audit trail written next to the CSV. It records
// enough to explain any row count difference between raw input and the
// final file.
type RunReport struct {
	RunID       string                       `json:"run_id"`
	GeneratedAt time.Time                    `json:"generated_at"`
	Windows     []domain.Window              `json:"windows"`
	SourceFiles int                          `json:"source_files"`
	RowsMerged  int                          `json:"rows_merged"`
	RowsCleaned int                          `json:"rows_cleaned"`
	Stages      []dataprocessing.StageResult `json:"stages"`
	OutputPath  string                       `json:"output_path"`
}

// AuditWriter persists the run report.
type AuditWriter struct {
	logger *slog.Logger
}

// NewAuditWriter creates an audit writer.
func NewAuditWriter(logger *slog.Logger) *AuditWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditWriter{logger: logger}
}

// Write marshals the report to indented JSON at path.
func (w *AuditWriter) Write(path string, report *RunReport) error {
	w.logger.Info("writing run audit",
		slog.String("path", path),
		slog.String("run_id", report.RunID),
		slog.Int("stages", len(report.Stages)))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apperrors.NewStorageError("failed to create audit directory", err).
			WithContext("path", path)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return apperrors.NewStorageError("failed to marshal run audit", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return apperrors.NewStorageError("failed to create temp audit file", err).
			WithContext("path", path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperrors.NewStorageError("failed to write run audit", err).
			WithContext("path", path)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewStorageError("failed to close temp audit file", err).
			WithContext("path", path)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return apperrors.NewStorageError("failed to move audit into place", err).
			WithContext("path", path)
	}
	return nil
}
