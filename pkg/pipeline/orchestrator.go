// Package pipeline runs the capture→transcribe→analyze→persist cycle for
// one stream and coordinates concurrent runs across all streams.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Djamsy/veille-uptade-sub000/pkg/analysis"
	"github.com/Djamsy/veille-uptade-sub000/pkg/events"
	"github.com/Djamsy/veille-uptade-sub000/pkg/models"
	"github.com/Djamsy/veille-uptade-sub000/pkg/notify"
	"github.com/Djamsy/veille-uptade-sub000/pkg/status"
	"github.com/Djamsy/veille-uptade-sub000/pkg/storage"
	"github.com/Djamsy/veille-uptade-sub000/pkg/transcriber"
)

// URLResolver resolves a configured URL to a playable one, best-effort.
type URLResolver interface {
	Resolve(ctx context.Context, rawURL string) string
}

// AudioCapturer produces audio artifacts under dir.
type AudioCapturer interface {
	Single(ctx context.Context, streamURL string, durationSec int, dir string) (models.Artifact, error)
	Segmented(ctx context.Context, streamURL string, durationSec int, dir string) ([]models.Artifact, error)
}

// SegmentAssembler concatenates ordered segments into one artifact.
type SegmentAssembler interface {
	Concat(ctx context.Context, segments []models.Artifact, dir string) (models.Artifact, error)
}

// Analyzer enriches a transcript; failures degrade, never gate.
type Analyzer interface {
	Analyze(ctx context.Context, text, section string) (*models.Analysis, error)
}

// Options are the orchestrator's policy knobs.
type Options struct {
	// SegmentThreshold: durations of at least this many seconds capture
	// segmented.
	SegmentThreshold int
	// ConcatMaxSegments: segment sets of at most this size concatenate
	// before transcription; larger sets transcribe per segment and merge.
	ConcatMaxSegments int
	// SegmentConcurrency bounds parallel per-segment transcription.
	SegmentConcurrency int
	// FallbackChars sizes the degraded local summary.
	FallbackChars int
	// TempDir hosts run-scoped artifact directories; "" means the
	// system default.
	TempDir string
}

// Orchestrator sequences one full run for one stream. Fatal failures are
// returned as structured results; nothing propagates past Run.
type Orchestrator struct {
	resolver  URLResolver
	capturer  AudioCapturer
	assembler SegmentAssembler
	stt       transcriber.Service
	analyzer  Analyzer
	store     storage.RecordStore
	notifier  notify.Notifier
	publisher events.Publisher
	tracker   *status.Tracker
	opts      Options

	now func() time.Time
}

// NewOrchestrator wires the pipeline's collaborators.
func NewOrchestrator(
	resolver URLResolver,
	capturer AudioCapturer,
	assembler SegmentAssembler,
	stt transcriber.Service,
	analyzer Analyzer,
	store storage.RecordStore,
	notifier notify.Notifier,
	publisher events.Publisher,
	tracker *status.Tracker,
	opts Options,
) *Orchestrator {
	if opts.SegmentThreshold <= 0 {
		opts.SegmentThreshold = 600
	}
	if opts.ConcatMaxSegments <= 0 {
		opts.ConcatMaxSegments = 3
	}
	if opts.SegmentConcurrency <= 0 {
		opts.SegmentConcurrency = 3
	}
	if opts.FallbackChars <= 0 {
		opts.FallbackChars = 500
	}
	return &Orchestrator{
		resolver:  resolver,
		capturer:  capturer,
		assembler: assembler,
		stt:       stt,
		analyzer:  analyzer,
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		tracker:   tracker,
		opts:      opts,
		now:       time.Now,
	}
}

// Run executes one full cycle for one stream. Every artifact created
// during the run is removed before Run returns, on every exit path.
func (o *Orchestrator) Run(ctx context.Context, stream models.StreamConfig) *models.PipelineResult {
	started := o.now()
	result := &models.PipelineResult{StreamID: stream.ID}
	defer func() {
		result.Elapsed = o.now().Sub(started).Seconds()
	}()

	if err := o.tracker.Begin(stream.ID); err != nil {
		result.Err = err.Error()
		return result
	}

	runDir, err := os.MkdirTemp(o.opts.TempDir, "veille_"+stream.ID+"_")
	if err != nil {
		return o.fail(result, stream.ID, fmt.Errorf("create run dir: %w", err))
	}
	defer os.RemoveAll(runDir)

	// Capture. Resolution failures fall back to the configured URL;
	// only the capture itself is fatal.
	streamURL := o.resolver.Resolve(ctx, stream.URL)
	capturedAt := o.now()

	segmented := stream.Duration >= o.opts.SegmentThreshold
	var artifacts []models.Artifact
	if segmented {
		log.Printf("pipeline: %s capturing %ds segmented", stream.ID, stream.Duration)
		artifacts, err = o.capturer.Segmented(ctx, streamURL, stream.Duration, runDir)
	} else {
		log.Printf("pipeline: %s capturing %ds single-shot", stream.ID, stream.Duration)
		var a models.Artifact
		a, err = o.capturer.Single(ctx, streamURL, stream.Duration, runDir)
		artifacts = []models.Artifact{a}
	}
	if err != nil {
		return o.fail(result, stream.ID, fmt.Errorf("capture failed: %w", err))
	}

	var audioBytes int64
	for _, a := range artifacts {
		audioBytes += a.Size
	}
	o.tracker.Advance(stream.ID, models.StageTranscribing,
		fmt.Sprintf("captured %d artifact(s), %d bytes", len(artifacts), audioBytes), 40)

	// Transcribe.
	transcript, err := o.transcribe(ctx, segmented, artifacts, stream.Language, runDir)
	if err != nil {
		return o.fail(result, stream.ID, fmt.Errorf("transcription failed: %w", err))
	}
	if strings.TrimSpace(transcript.Text) == "" {
		return o.fail(result, stream.ID, fmt.Errorf("transcription produced an empty transcript"))
	}
	o.tracker.Advance(stream.ID, models.StageAnalyzing,
		fmt.Sprintf("transcript of %d chars", len(transcript.Text)), 70)

	// Analyze, degrading locally on any failure.
	enrichment, err := o.analyzer.Analyze(ctx, transcript.Text, stream.Section)
	if err != nil {
		log.Printf("pipeline: %s analysis degraded to local fallback: %v", stream.ID, err)
		enrichment = analysis.Fallback(transcript.Text, o.opts.FallbackChars)
		result.Degraded = true
	}
	o.tracker.Advance(stream.ID, models.StageAnalyzing, "persisting record", 95)

	// Persist. A failure here is fatal; no partial record remains
	// because Append is a single insert.
	record := &models.TranscriptionRecord{
		ID:         uuid.NewString(),
		StreamID:   stream.ID,
		StreamName: stream.Name,
		Section:    stream.Section,
		Date:       capturedAt.Format("2006-01-02"),
		Transcript: *transcript,
		Analysis:   *enrichment,
		Duration:   stream.Duration,
		AudioBytes: audioBytes,
		CapturedAt: capturedAt,
		CreatedAt:  o.now(),
	}
	if err := o.store.Append(ctx, record); err != nil {
		return o.fail(result, stream.ID, fmt.Errorf("persist failed: %w", err))
	}

	o.tracker.Complete(stream.ID, "run completed")
	result.Record = record

	// Best-effort tail: notification and event publishing never fail
	// the run.
	msg := fmt.Sprintf("📻 %s (%s) archivé: %d caractères, %s",
		stream.Name, stream.Section, len(transcript.Text), record.Date)
	if err := o.notifier.Notify(ctx, msg); err != nil {
		log.Printf("pipeline: %s notification failed: %v", stream.ID, err)
	}
	if err := o.publisher.Publish(ctx, models.RecordEvent{
		RecordID:   record.ID,
		StreamID:   record.StreamID,
		Section:    record.Section,
		Date:       record.Date,
		Summary:    record.Analysis.Summary,
		Degraded:   record.Analysis.Degraded,
		OccurredAt: record.CreatedAt,
	}); err != nil {
		log.Printf("pipeline: %s event publish failed: %v", stream.ID, err)
	}

	return result
}

// transcribe picks the assembly strategy by segment count: small sets are
// concatenated and transcribed whole, large sets transcribe per segment
// and merge in order.
func (o *Orchestrator) transcribe(ctx context.Context, segmented bool, artifacts []models.Artifact, language, runDir string) (*models.Transcript, error) {
	if !segmented {
		res, err := o.stt.Transcribe(ctx, artifacts[0].Path, language)
		if err != nil {
			return nil, err
		}
		return &models.Transcript{
			Text:         res.Text,
			Language:     pickLanguage(res.Language, language),
			Method:       models.MethodSingle,
			SegmentCount: 1,
		}, nil
	}

	if len(artifacts) <= o.opts.ConcatMaxSegments {
		whole, err := o.assembler.Concat(ctx, artifacts, runDir)
		if err != nil {
			return nil, err
		}
		defer os.Remove(whole.Path)

		res, err := o.stt.Transcribe(ctx, whole.Path, language)
		if err != nil {
			return nil, err
		}
		return &models.Transcript{
			Text:         res.Text,
			Language:     pickLanguage(res.Language, language),
			Method:       models.MethodConcatenated,
			SegmentCount: len(artifacts),
		}, nil
	}

	transcript, err := transcriber.TranscribeSegments(ctx, o.stt, artifacts, language, o.opts.SegmentConcurrency)
	if err != nil {
		return nil, err
	}
	for _, a := range artifacts {
		os.Remove(a.Path)
	}
	return transcript, nil
}

func (o *Orchestrator) fail(result *models.PipelineResult, streamID string, err error) *models.PipelineResult {
	log.Printf("pipeline: %s failed: %v", streamID, err)
	o.tracker.Fail(streamID, err.Error())
	result.Err = err.Error()
	return result
}

func pickLanguage(detected, configured string) string {
	if detected != "" {
		return detected
	}
	return configured
}
