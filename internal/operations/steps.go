package operations

import (
	"context"
	"log/slog"
	"time"

	"fitcli/internal/dataprocessing"
	"fitcli/internal/exporter"
	"fitcli/internal/files"
)

// Step IDs, in execution order.
const (
	StepIDLoad      = "load"
	StepIDNormalize = "normalize"
	StepIDReduce    = "reduce"
	StepIDMerge     = "merge"
	StepIDClean     = "clean"
	StepIDExport    = "export"
)

// DefaultSteps returns the full pipeline in its fixed order.
func DefaultSteps() []Step {
	return []Step{
		&LoadStep{},
		&NormalizeStep{},
		&ReduceStep{},
		&MergeStep{},
		&CleanStep{},
		&ExportStep{},
	}
}

// LoadStep discovers the window folders under the raw root, classifies
// their files, and loads every allowed table into memory.
type LoadStep struct{}

func (s *LoadStep) ID() string   { return StepIDLoad }
func (s *LoadStep) Name() string { return "Discover and load raw exports" }

func (s *LoadStep) Execute(ctx context.Context, state *State) error {
	discovery := files.NewDiscovery(state.Config.Data.RawDir, state.Logger)

	windows, err := discovery.DiscoverWindows()
	if err != nil {
		return err
	}
	state.Windows = windows

	var sources []files.SourceFile
	for _, window := range windows {
		found, err := discovery.ListSources(window)
		if err != nil {
			return err
		}
		sources = append(sources, found...)
	}
	state.Sources = sources

	tables, err := dataprocessing.NewLoader(state.Logger).Load(sources)
	if err != nil {
		return err
	}
	state.Tables = tables

	state.Logger.InfoContext(ctx, "raw exports loaded",
		slog.Int("windows", len(windows)),
		slog.Int("source_files", len(sources)),
		slog.Int("tables", len(tables)))
	return nil
}

// NormalizeStep rewrites every table's date column to canonical
// YYYY-MM-DD under the shared "Date" name.
type NormalizeStep struct{}

func (s *NormalizeStep) ID() string   { return StepIDNormalize }
func (s *NormalizeStep) Name() string { return "Normalize date columns" }

func (s *NormalizeStep) Execute(ctx context.Context, state *State) error {
	return dataprocessing.NewNormalizer(state.Logger).NormalizeDates(state.Tables)
}

// ReduceStep collapses the sub-daily tables to per-(user, day) records.
type ReduceStep struct{}

func (s *ReduceStep) ID() string   { return StepIDReduce }
func (s *ReduceStep) Name() string { return "Reduce to daily grain" }

func (s *ReduceStep) Execute(ctx context.Context, state *State) error {
	reduced, err := dataprocessing.NewReducer(state.Logger).ReduceAll(state.Windows, state.Tables)
	if err != nil {
		return err
	}
	state.Reduced = reduced
	return nil
}

// MergeStep left-joins the reduced tables onto the activity base.
type MergeStep struct{}

func (s *MergeStep) ID() string   { return StepIDMerge }
func (s *MergeStep) Name() string { return "Merge onto activity base" }

func (s *MergeStep) Execute(ctx context.Context, state *State) error {
	unified, err := dataprocessing.NewMerger(state.Logger).Merge(state.Windows, state.Tables, state.Reduced)
	if err != nil {
		return err
	}
	state.Unified = unified

	state.Logger.InfoContext(ctx, "tables merged",
		slog.Int("rows", len(unified)))
	return nil
}

// CleanStep runs the fixed-order remediation pipeline.
type CleanStep struct{}

func (s *CleanStep) ID() string   { return StepIDClean }
func (s *CleanStep) Name() string { return "Clean unified table" }

func (s *CleanStep) Execute(ctx context.Context, state *State) error {
	cleaned, stages, err := dataprocessing.NewCleaner(state.Logger).Clean(ctx, state.Unified)
	if err != nil {
		return err
	}
	state.Cleaned = cleaned
	state.Stages = stages
	return nil
}

// ExportStep writes the merged CSV and its JSON audit report.
type ExportStep struct{}

func (s *ExportStep) ID() string   { return StepIDExport }
func (s *ExportStep) Name() string { return "Export CSV and audit" }

func (s *ExportStep) Execute(ctx context.Context, state *State) error {
	outputPath := state.Config.Data.OutputPath()
	if err := exporter.NewCSVWriter(state.Logger).Write(outputPath, state.Cleaned); err != nil {
		return err
	}

	state.Report = &exporter.RunReport{
		RunID:       state.RunID,
		GeneratedAt: time.Now().UTC(),
		Windows:     state.Windows,
		SourceFiles: len(state.Sources),
		RowsMerged:  len(state.Unified),
		RowsCleaned: len(state.Cleaned),
		Stages:      state.Stages,
		OutputPath:  outputPath,
	}
	return exporter.NewAuditWriter(state.Logger).Write(state.Config.Data.AuditPath(), state.Report)
}
