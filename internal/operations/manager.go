package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"fitcli/internal/config"
	"fitcli/internal/infrastructure"
)

// Manager runs the pipeline steps sequentially. A step error aborts the
// run; steps after the failed one never execute.
type Manager struct {
	cfg    *config.Config
	logger *slog.Logger
	tracer trace.Tracer
	steps  []Step
}

// NewManager creates a manager over the given steps. Pass
// DefaultSteps() for the full pipeline.
func NewManager(cfg *config.Config, logger *slog.Logger, tracer trace.Tracer, steps []Step) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{cfg: cfg, logger: logger, tracer: tracer, steps: steps}
}

// Run executes the steps in order and returns the final state. The run
// is tagged with a fresh uuid that flows through the context into every
// log record and span.
func (m *Manager) Run(ctx context.Context) (*State, error) {
	runID := uuid.New().String()
	ctx = infrastructure.WithRunID(ctx, runID)

	state := &State{
		Config:    m.cfg,
		Logger:    m.logger,
		RunID:     runID,
		StartedAt: time.Now(),
	}

	ctx, runSpan := m.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("run.id", runID)))
	defer runSpan.End()

	m.logger.InfoContext(ctx, "pipeline run started",
		slog.Int("steps", len(m.steps)),
		slog.String("raw_dir", m.cfg.Data.RawDir))

	var timings []StepTiming
	for _, step := range m.steps {
		if err := ctx.Err(); err != nil {
			runSpan.SetStatus(codes.Error, "run canceled")
			return state, err
		}

		duration, err := m.executeStep(ctx, step, state)
		timings = append(timings, StepTiming{ID: step.ID(), Duration: duration})
		if err != nil {
			runSpan.SetStatus(codes.Error, err.Error())
			m.logger.ErrorContext(ctx, "pipeline run failed",
				slog.String("step", step.ID()),
				slog.String("error", err.Error()))
			return state, fmt.Errorf("step %s failed: %w", step.ID(), err)
		}
	}

	total := time.Since(state.StartedAt)
	for _, t := range timings {
		m.logger.InfoContext(ctx, "step timing",
			slog.String("step", t.ID),
			slog.Duration("duration", t.Duration))
	}
	m.logger.InfoContext(ctx, "pipeline run complete",
		slog.Duration("duration", total),
		slog.Int("rows_cleaned", len(state.Cleaned)))

	return state, nil
}

func (m *Manager) executeStep(ctx context.Context, step Step, state *State) (time.Duration, error) {
	ctx, span := m.tracer.Start(ctx, "pipeline.step."+step.ID(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("step.id", step.ID()),
			attribute.String("step.name", step.Name())))
	defer span.End()

	m.logger.InfoContext(ctx, "step started",
		slog.String("step", step.ID()),
		slog.String("name", step.Name()))

	start := time.Now()
	err := step.Execute(ctx, state)
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return duration, err
	}

	span.SetStatus(codes.Ok, "")
	m.logger.InfoContext(ctx, "step complete",
		slog.String("step", step.ID()),
		slog.Duration("duration", duration))
	return duration, nil
}
