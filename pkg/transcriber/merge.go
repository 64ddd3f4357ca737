package transcriber

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/Djamsy/veille-uptade-sub000/pkg/models"
)

// Service is the speech-to-text capability the merge layer fans out over.
type Service interface {
	Transcribe(ctx context.Context, audioPath, language string) (*Result, error)
}

type segmentOutcome struct {
	index  int
	result *Result
	err    error
}

// TranscribeSegments transcribes each artifact independently through a
// bounded worker pool and merges the texts in original temporal order,
// keeping per-segment character counts. Any segment failure fails the
// whole transcription.
func TranscribeSegments(ctx context.Context, svc Service, segments []models.Artifact, language string, concurrency int) (*models.Transcript, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	if concurrency > len(segments) {
		concurrency = len(segments)
	}

	tasks := make(chan models.Artifact, len(segments))
	outcomes := make(chan segmentOutcome, len(segments))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seg := range tasks {
				res, err := svc.Transcribe(ctx, seg.Path, language)
				outcomes <- segmentOutcome{index: seg.Index, result: res, err: err}
			}
		}()
	}

	for _, seg := range segments {
		tasks <- seg
	}
	close(tasks)

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	results := make(map[int]*Result, len(segments))
	done := 0
	for out := range outcomes {
		done++
		if out.err != nil {
			return nil, fmt.Errorf("segment %d: %w", out.index, out.err)
		}
		results[out.index] = out.result
		log.Printf("transcriber: segment %d done (%d/%d)", out.index, done, len(segments))
	}

	return mergeOrdered(results, language), nil
}

// mergeOrdered joins per-segment texts by ascending index.
func mergeOrdered(results map[int]*Result, language string) *models.Transcript {
	indices := make([]int, 0, len(results))
	for idx := range results {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var builder strings.Builder
	chars := make([]int, 0, len(indices))
	lang := language
	for i, idx := range indices {
		res := results[idx]
		if i > 0 {
			builder.WriteString(" ")
		}
		builder.WriteString(strings.TrimSpace(res.Text))
		chars = append(chars, utf8.RuneCountInString(res.Text))
		if lang == "" && res.Language != "" {
			lang = res.Language
		}
	}

	return &models.Transcript{
		Text:         builder.String(),
		Language:     lang,
		Method:       models.MethodSegmented,
		SegmentCount: len(indices),
		SegmentChars: chars,
	}
}
