package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Djamsy/veille-uptade-sub000/pkg/config"
)

func testConfig() config.CaptureConfig {
	return config.CaptureConfig{
		SegmentThreshold:    600,
		WindowSeconds:       300,
		ConcatMaxSegments:   3,
		SizeFloorBytes:      10,
		TimeoutGraceSeconds: 30,
		HeaderHosts: map[string]string{
			"ice.infomaniak.ch": "Referer: https://www.rci.fm/\r\n",
		},
	}
}

// fakeRun writes payload to the final argument (the output path), or
// fails for invocations listed in failOn (1-based).
func fakeRun(t *testing.T, payload []byte, failOn map[int]bool) (func(ctx context.Context, name string, args ...string) error, *int) {
	t.Helper()
	calls := 0
	return func(ctx context.Context, name string, args ...string) error {
		calls++
		if failOn[calls] {
			return fmt.Errorf("ffmpeg: exit status 1")
		}
		out := args[len(args)-1]
		return os.WriteFile(out, payload, 0o644)
	}, &calls
}

func TestModeSelection(t *testing.T) {
	c := New(testConfig())

	assert.Equal(t, ModeSingle, c.Mode(120))
	assert.Equal(t, ModeSingle, c.Mode(599))
	assert.Equal(t, ModeSegmented, c.Mode(600))
	assert.Equal(t, ModeSegmented, c.Mode(1200))
}

func TestWindows(t *testing.T) {
	tests := []struct {
		name   string
		total  int
		window int
		want   []Window
	}{
		{"even split", 600, 300, []Window{{0, 300}, {300, 300}}},
		{"truncated tail", 700, 300, []Window{{0, 300}, {300, 300}, {600, 100}}},
		{"single short window", 200, 300, []Window{{0, 200}}},
		{"zero total", 0, 300, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Windows(tt.total, tt.window))
		})
	}
}

func TestSingleCaptureSuccess(t *testing.T) {
	c := New(testConfig())
	run, _ := fakeRun(t, make([]byte, 64), nil)
	c.run = run

	dir := t.TempDir()
	art, err := c.Single(context.Background(), "https://radio.example/live.mp3", 120, dir)
	require.NoError(t, err)
	assert.Equal(t, int64(64), art.Size)
	assert.Equal(t, float64(120), art.End)
	assert.FileExists(t, art.Path)
}

func TestSingleCaptureRemovesUndersizedArtifact(t *testing.T) {
	c := New(testConfig())
	run, _ := fakeRun(t, []byte("tiny"), nil)
	c.run = run

	dir := t.TempDir()
	_, err := c.Single(context.Background(), "https://radio.example/live.mp3", 120, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too small")
	assert.NoFileExists(t, filepath.Join(dir, "capture.wav"))
}

func TestSingleCaptureRemovesPartialOnProcessFailure(t *testing.T) {
	c := New(testConfig())
	c.run = func(ctx context.Context, name string, args ...string) error {
		out := args[len(args)-1]
		os.WriteFile(out, make([]byte, 64), 0o644)
		return fmt.Errorf("ffmpeg: exit status 1")
	}

	dir := t.TempDir()
	_, err := c.Single(context.Background(), "https://radio.example/live.mp3", 120, dir)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "capture.wav"))
}

func TestSegmentedDropsFailedWindowAfterRetry(t *testing.T) {
	c := New(testConfig())
	// 1200s at 300s/window = 4 windows. Window 3 is calls 3 and 4
	// (first attempt plus retry); both fail.
	run, calls := fakeRun(t, make([]byte, 64), map[int]bool{3: true, 4: true})
	c.run = run

	dir := t.TempDir()
	arts, err := c.Segmented(context.Background(), "https://radio.example/live.mp3", 1200, dir)
	require.NoError(t, err)
	require.Len(t, arts, 3)
	assert.Equal(t, 5, *calls, "4 windows plus one retry")

	// Order and offsets of the survivors are preserved.
	assert.Equal(t, []int{0, 1, 3}, []int{arts[0].Index, arts[1].Index, arts[2].Index})
	assert.Equal(t, float64(900), arts[2].Start)
}

func TestSegmentedRetrySucceeds(t *testing.T) {
	c := New(testConfig())
	run, calls := fakeRun(t, make([]byte, 64), map[int]bool{2: true})
	c.run = run

	dir := t.TempDir()
	arts, err := c.Segmented(context.Background(), "https://radio.example/live.mp3", 600, dir)
	require.NoError(t, err)
	assert.Len(t, arts, 2)
	assert.Equal(t, 3, *calls)
}

func TestSegmentedFailsOnlyWhenAllWindowsFail(t *testing.T) {
	c := New(testConfig())
	c.run = func(ctx context.Context, name string, args ...string) error {
		return fmt.Errorf("ffmpeg: exit status 1")
	}

	_, err := c.Segmented(context.Background(), "https://radio.example/live.mp3", 600, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 capture windows failed")
}

func TestHeadersForMatchingHost(t *testing.T) {
	c := New(testConfig())

	assert.NotEmpty(t, c.headersFor("https://rci.ice.infomaniak.ch/rci.mp3"))
	assert.Empty(t, c.headersFor("https://radio.example/live.mp3"))
	assert.Empty(t, c.headersFor("://bad"))
}

func TestCaptureArgs(t *testing.T) {
	args := captureArgs("https://radio.example/live.mp3", 120, "", "/tmp/out.wav")
	assert.NotContains(t, args, "-headers")
	assert.Contains(t, args, "-t")
	assert.Equal(t, "/tmp/out.wav", args[len(args)-1])

	withHeaders := captureArgs("https://radio.example/live.mp3", 120, "Referer: x\r\n", "/tmp/out.wav")
	assert.Contains(t, withHeaders, "-headers")

	// Mono 16kHz normalization for speech-to-text.
	joined := fmt.Sprint(args)
	assert.Contains(t, joined, "-ac 1")
	assert.Contains(t, joined, "-ar 16000")
}
