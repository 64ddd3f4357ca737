package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Djamsy/veille-uptade-sub000/pkg/models"
	"github.com/Djamsy/veille-uptade-sub000/pkg/registry"
)

func newCoordinatorHarness(t *testing.T, ids ...string) (*harness, *Coordinator) {
	t.Helper()
	h := newHarness(t, ids...)

	streams := make([]models.StreamConfig, len(ids))
	for i, id := range ids {
		streams[i] = stream(id, 120)
		streams[i].URL = "https://rci.example/" + id + ".mp3"
	}
	reg, err := registry.New(streams)
	require.NoError(t, err)

	return h, NewCoordinator(h.orch, reg, h.tracker)
}

func TestTriggerOneUnknownStream(t *testing.T) {
	_, coord := newCoordinatorHarness(t, "rci")

	_, err := coord.TriggerOne(context.Background(), "nope")
	require.Error(t, err)
}

func TestTriggerOneRunsPipeline(t *testing.T) {
	h, coord := newCoordinatorHarness(t, "rci")

	res, err := coord.TriggerOne(context.Background(), "rci")
	require.NoError(t, err)
	require.True(t, res.OK(), res.Err)
	assert.NotNil(t, h.store.last())
}

// Scenario D: stream A's capture fails while stream B is still capturing.
// B's status and result are unaffected and the aggregate carries both
// outcomes independently.
func TestTriggerAllIsolatesFailures(t *testing.T) {
	h, coord := newCoordinatorHarness(t, "a", "b")
	h.capturer.singleErr["https://rci.example/a.mp3"] = fmt.Errorf("ffmpeg: exit status 1")
	h.capturer.delay["https://rci.example/b.mp3"] = 50 * time.Millisecond

	agg := coord.TriggerAll(context.Background())

	require.Len(t, agg.Results, 2)
	assert.Equal(t, 1, agg.Succeeded)
	assert.Equal(t, 1, agg.Failed)

	require.False(t, agg.Results["a"].OK())
	require.True(t, agg.Results["b"].OK(), agg.Results["b"].Err)

	stA, _ := h.tracker.Get("a")
	stB, _ := h.tracker.Get("b")
	assert.Equal(t, models.StageError, stA.Stage)
	assert.Equal(t, models.StageCompleted, stB.Stage)

	rec := h.store.last()
	require.NotNil(t, rec)
	assert.Equal(t, "b", rec.StreamID)
	h.assertNoLeftoverArtifacts(t)
}

func TestTriggerAllHasOneEntryPerStream(t *testing.T) {
	_, coord := newCoordinatorHarness(t, "a", "b", "c")

	agg := coord.TriggerAll(context.Background())
	assert.Len(t, agg.Results, 3)
	for _, id := range []string{"a", "b", "c"} {
		assert.Contains(t, agg.Results, id)
	}
}

func TestRunIsolatedRecoversPanic(t *testing.T) {
	h, coord := newCoordinatorHarness(t, "rci")
	// A nil store method would panic; simulate by running against a
	// stream whose capture panics.
	h.capturer.singleErr["https://rci.example/rci.mp3"] = nil
	coord.orch.capturer = panickingCapturer{}

	res := coord.runIsolated(context.Background(), stream("rci", 120))
	require.False(t, res.OK())
	assert.Contains(t, res.Err, "run panicked")

	st, _ := h.tracker.Get("rci")
	assert.Equal(t, models.StageError, st.Stage)
}

type panickingCapturer struct{}

func (panickingCapturer) Single(ctx context.Context, streamURL string, durationSec int, dir string) (models.Artifact, error) {
	panic("boom")
}

func (panickingCapturer) Segmented(ctx context.Context, streamURL string, durationSec int, dir string) ([]models.Artifact, error) {
	panic("boom")
}

func TestCoordinatorStatusAndReset(t *testing.T) {
	h, coord := newCoordinatorHarness(t, "rci")

	_, err := coord.TriggerOne(context.Background(), "rci")
	require.NoError(t, err)

	snap := coord.Status()
	assert.Equal(t, models.StageCompleted, snap["rci"].Stage)

	require.NoError(t, coord.Reset("rci"))
	st, _ := h.tracker.Get("rci")
	assert.Equal(t, models.StageIdle, st.Stage)

	coord.ResetAll()
	assert.Equal(t, models.StageIdle, coord.Status()["rci"].Stage)
}
