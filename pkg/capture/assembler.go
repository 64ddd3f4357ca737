package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Djamsy/veille-uptade-sub000/pkg/models"
)

const concatTimeout = 2 * time.Minute

// Assembler concatenates ordered segment artifacts into one file using
// ffmpeg's concat demuxer with stream copy (no re-encode).
type Assembler struct {
	run func(ctx context.Context, name string, args ...string) error
}

// NewAssembler creates an assembler using ffmpeg on PATH.
func NewAssembler() *Assembler {
	return &Assembler{run: runCommand}
}

// Concat joins segments in order into a single artifact under dir. The
// per-segment files and the list file are removed once the concatenated
// artifact exists; on failure the caller's run-dir cleanup collects them.
func (a *Assembler) Concat(ctx context.Context, segments []models.Artifact, dir string) (models.Artifact, error) {
	if len(segments) == 0 {
		return models.Artifact{}, fmt.Errorf("nothing to concatenate")
	}

	listPath := filepath.Join(dir, "concat_list.txt")
	var list strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&list, "file '%s'\n", seg.Path)
	}
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return models.Artifact{}, fmt.Errorf("write concat list: %w", err)
	}
	defer os.Remove(listPath)

	outPath := filepath.Join(dir, "assembled.wav")

	ctx, cancel := context.WithTimeout(ctx, concatTimeout)
	defer cancel()

	args := []string{
		"-y", "-nostdin", "-loglevel", "error",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outPath,
	}
	if err := a.run(ctx, "ffmpeg", args...); err != nil {
		os.Remove(outPath)
		return models.Artifact{}, fmt.Errorf("concatenate %d segments: %w", len(segments), err)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return models.Artifact{}, fmt.Errorf("concatenated artifact missing: %w", err)
	}

	for _, seg := range segments {
		os.Remove(seg.Path)
	}

	return models.Artifact{
		Index: 0,
		Path:  outPath,
		Size:  info.Size(),
		Start: segments[0].Start,
		End:   segments[len(segments)-1].End,
	}, nil
}
