package models

import "time"

// Stage is the lifecycle stage of a stream's current run.
type Stage string

const (
	StageIdle         Stage = "idle"
	StageCapturing    Stage = "capturing"
	StageTranscribing Stage = "transcribing"
	StageAnalyzing    Stage = "analyzing"
	StageCompleted    Stage = "completed"
	StageError        Stage = "error"
)

// Terminal reports whether the stage ends a run.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageError
}

// StreamConfig describes one known broadcast source. Loaded once at
// startup and never mutated.
type StreamConfig struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	URL      string `yaml:"url" json:"url"`
	Duration int    `yaml:"duration_seconds" json:"duration_seconds"`
	Section  string `yaml:"section" json:"section"`
	Priority int    `yaml:"priority" json:"priority"`
	Language string `yaml:"language" json:"language"`
	Schedule string `yaml:"schedule" json:"schedule,omitempty"`
}

// Artifact is one captured audio file. Single-shot captures produce one,
// segmented captures an ordered list. Artifacts never outlive the run that
// created them.
type Artifact struct {
	Index int     `json:"index"`
	Path  string  `json:"path"`
	Size  int64   `json:"size"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TranscriptMethod tells how a transcript was produced.
type TranscriptMethod string

const (
	MethodSingle       TranscriptMethod = "single"
	MethodConcatenated TranscriptMethod = "concatenated"
	MethodSegmented    TranscriptMethod = "segmented"
)

// Transcript is the text result of one run.
type Transcript struct {
	Text         string           `json:"text"`
	Language     string           `json:"language"`
	Method       TranscriptMethod `json:"method"`
	SegmentCount int              `json:"segment_count"`
	SegmentChars []int            `json:"segment_chars,omitempty"`
}

// Analysis is the enrichment attached to a transcript. Degraded marks the
// local fallback produced when the analysis service is unavailable.
type Analysis struct {
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords,omitempty"`
	Degraded bool     `json:"degraded"`
}

// StreamStatus is the per-stream run state. One instance exists per stream
// id; only the run owning the stream (and the janitor) mutate it.
type StreamStatus struct {
	StreamID   string     `json:"stream_id"`
	Stage      Stage      `json:"stage"`
	Detail     string     `json:"detail,omitempty"`
	Progress   int        `json:"progress"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	LastUpdate time.Time  `json:"last_update"`
}

// TranscriptionRecord is the durable archive of one completed run.
// Append-only: written once, never updated.
type TranscriptionRecord struct {
	ID         string     `json:"id"`
	StreamID   string     `json:"stream_id"`
	StreamName string     `json:"stream_name"`
	Section    string     `json:"section"`
	Date       string     `json:"date"` // YYYY-MM-DD, capture day
	Transcript Transcript `json:"transcript"`
	Analysis   Analysis   `json:"analysis"`
	Duration   int        `json:"duration_seconds"`
	AudioBytes int64      `json:"audio_bytes"`
	CapturedAt time.Time  `json:"captured_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// PipelineResult is the outcome of one run, success or failure. Err is
// populated on fatal failures; Degraded marks a completed run whose
// analysis fell back locally.
type PipelineResult struct {
	StreamID string               `json:"stream_id"`
	Record   *TranscriptionRecord `json:"record,omitempty"`
	Err      string               `json:"error,omitempty"`
	Degraded bool                 `json:"degraded,omitempty"`
	Elapsed  float64              `json:"elapsed_seconds"`
}

// OK reports whether the run completed.
func (r *PipelineResult) OK() bool {
	return r.Err == ""
}

// AggregateResult collects the outcomes of one multi-stream trigger.
type AggregateResult struct {
	Results   map[string]*PipelineResult `json:"results"`
	Succeeded int                        `json:"succeeded"`
	Failed    int                        `json:"failed"`
	Elapsed   float64                    `json:"elapsed_seconds"`
}

// RecordEvent is published when a run persists a new record.
type RecordEvent struct {
	RecordID   string    `json:"record_id"`
	StreamID   string    `json:"stream_id"`
	Section    string    `json:"section"`
	Date       string    `json:"date"`
	Summary    string    `json:"summary"`
	Degraded   bool      `json:"degraded"`
	OccurredAt time.Time `json:"occurred_at"`
}
