package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-grader/internal/configuration"
	"github.com/ahrav/go-grader/internal/domain"
	"github.com/ahrav/go-grader/internal/grading"
	"github.com/ahrav/go-grader/internal/reportstore"
)

type recordingRegistrar struct {
	workflows  int
	activities int
}

func (r *recordingRegistrar) RegisterWorkflow(any) { r.workflows++ }
func (r *recordingRegistrar) RegisterActivity(any) { r.activities++ }

func testRegistry(t *testing.T) *grading.Registry {
	t.Helper()
	r := grading.NewRegistry()
	require.NoError(t, r.Register("titanic:grade", func(context.Context, domain.GradingInput) (domain.Score, error) {
		return domain.FloatScore(0.5), nil
	}))
	return r
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRegisterAll(t *testing.T) {
	reg := &recordingRegistrar{}
	a := RegisterAll(reg, Dependencies{Catalog: grading.NewCatalog()})

	require.NotNil(t, a)
	assert.Equal(t, 1, reg.workflows)
	assert.Equal(t, 2, reg.activities)
}

func TestSetup_RedisDisabled(t *testing.T) {
	cfg := configuration.DefaultConfig()
	cfg.Grading.Graders = []grading.GraderConfig{{Name: "accuracy", GradeFn: "titanic:grade"}}

	deps, cleanup, err := Setup(context.Background(), cfg, testRegistry(t), discardLogger())
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, 1, deps.Catalog.Len())
	assert.Nil(t, deps.Store)
	assert.NotNil(t, deps.Sink)
}

func TestSetup_RedisEnabled(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	cfg := configuration.DefaultConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = server.Addr()

	deps, cleanup, err := Setup(context.Background(), cfg, testRegistry(t), discardLogger())
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &reportstore.Breaker{}, deps.Store)
	assert.IsType(t, &reportstore.StreamSink{}, deps.Sink)
}

func TestSetup_UnknownGradeFunc(t *testing.T) {
	cfg := configuration.DefaultConfig()
	cfg.Grading.Graders = []grading.GraderConfig{{Name: "accuracy", GradeFn: "missing:grade"}}

	_, _, err := Setup(context.Background(), cfg, testRegistry(t), discardLogger())
	assert.ErrorIs(t, err, grading.ErrUnknownGradeFunc)
}
