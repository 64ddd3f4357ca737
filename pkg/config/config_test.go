package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
openai:
  api_key: "sk-test"
storage:
  postgres_dsn: "postgres://localhost/veille"
streams:
  - id: rci
    name: "RCI Guadeloupe"
    url: "https://rci.example/live.mp3"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 600, cfg.Capture.SegmentThreshold)
	assert.Equal(t, 300, cfg.Capture.WindowSeconds)
	assert.Equal(t, 3, cfg.Capture.ConcatMaxSegments)
	assert.Equal(t, int64(10*1024), cfg.Capture.SizeFloorBytes)
	assert.Equal(t, 30, cfg.Capture.TimeoutGraceSeconds)
	assert.Equal(t, 10, cfg.Status.JanitorIntervalMinutes)
	assert.Equal(t, 2, cfg.Status.StaleCeilingHours)
	assert.Equal(t, "postgres", cfg.Storage.Type)
	assert.Equal(t, "memory", cfg.Events.Type)
	assert.Equal(t, "gpt-4o-mini", cfg.Analysis.Model)
	assert.Equal(t, 500, cfg.Analysis.FallbackChars)
	assert.Equal(t, 8080, cfg.Server.Port)

	require.Len(t, cfg.Streams, 1)
	assert.Equal(t, 300, cfg.Streams[0].Duration)
	assert.Equal(t, "fr", cfg.Streams[0].Language)
}

func TestLoadRejectsMissingAPIKey(t *testing.T) {
	_, err := Load(writeConfig(t, `
storage:
  postgres_dsn: "postgres://localhost/veille"
streams:
  - id: rci
    url: "https://rci.example/live.mp3"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestLoadRejectsDuplicateStreamIDs(t *testing.T) {
	_, err := Load(writeConfig(t, `
openai:
  api_key: "sk-test"
storage:
  postgres_dsn: "postgres://localhost/veille"
streams:
  - id: rci
    url: "https://a.example/live.mp3"
  - id: rci
    url: "https://b.example/live.mp3"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate stream id")
}

func TestLoadRejectsHybridWithoutRedis(t *testing.T) {
	_, err := Load(writeConfig(t, `
openai:
  api_key: "sk-test"
storage:
  type: hybrid
  postgres_dsn: "postgres://localhost/veille"
streams:
  - id: rci
    url: "https://rci.example/live.mp3"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.addr")
}

func TestLoadRejectsUnknownEventsType(t *testing.T) {
	_, err := Load(writeConfig(t, minimalYAML+`
events:
  type: kafka
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported events type")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
