package operations

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"fitcli/internal/config"
)

type recordingStep struct {
	id  string
	err error
	log *[]string
}

func (s *recordingStep) ID() string   { return s.id }
func (s *recordingStep) Name() string { return s.id }

func (s *recordingStep) Execute(_ context.Context, state *State) error {
	*s.log = append(*s.log, s.id)
	return s.err
}

func testManager(steps []Step) *Manager {
	return NewManager(config.Default(), slog.Default(), noop.NewTracerProvider().Tracer("test"), steps)
}

func TestManager_RunsStepsInOrder(t *testing.T) {
	var log []string
	m := testManager([]Step{
		&recordingStep{id: "first", log: &log},
		&recordingStep{id: "second", log: &log},
		&recordingStep{id: "third", log: &log},
	})

	state, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, log)
	assert.NotEmpty(t, state.RunID, "every run is tagged with a run ID")
}

func TestManager_StepErrorAbortsRun(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	m := testManager([]Step{
		&recordingStep{id: "first", log: &log},
		&recordingStep{id: "second", log: &log, err: boom},
		&recordingStep{id: "third", log: &log},
	})

	_, err := m.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "second"}, log, "steps after the failure never run")
}

func TestManager_CanceledContextStopsRun(t *testing.T) {
	var log []string
	m := testManager([]Step{&recordingStep{id: "first", log: &log}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, log)
}

func TestManager_FreshRunIDPerRun(t *testing.T) {
	var log []string
	m := testManager([]Step{&recordingStep{id: "only", log: &log}})

	first, err := m.Run(context.Background())
	require.NoError(t, err)
	second, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
}
