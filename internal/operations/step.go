package operations

import (
	"context"
	"log/slog"
	"time"

	"fitcli/internal/config"
	"fitcli/internal/dataprocessing"
	"fitcli/internal/exporter"
	"fitcli/internal/files"
	"fitcli/pkg/contracts/domain"
)

// Step is a single stage of the pipeline. Steps communicate through the
// shared State; each reads what earlier steps produced and writes its
// own output.
type Step interface {
	// ID returns the unique identifier for this step.
	ID() string

	// Name returns the human-readable name for this step.
	Name() string

	// Execute runs the step against the shared run state.
	Execute(ctx context.Context, state *State) error
}

// State carries everything a run accumulates while moving through the
// steps. The zero value plus Config and Logger is a valid starting
// point.
type State struct {
	Config *config.Config
	Logger *slog.Logger
	RunID  string

	Windows []domain.Window
	Sources []files.SourceFile
	Tables  dataprocessing.TableSet

	Reduced *dataprocessing.Reduced
	Unified []domain.UnifiedRow
	Cleaned []domain.UnifiedRow
	Stages  []dataprocessing.StageResult

	StartedAt time.Time
	Report    *exporter.RunReport
}

// StepTiming records how long one step took, for the run summary log.
type StepTiming struct {
	ID       string
	Duration time.Duration
}
