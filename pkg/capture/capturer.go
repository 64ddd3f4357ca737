// Package capture records bounded slices of live audio streams through
// ffmpeg. Long requests are split into fixed windows captured back to back;
// short ones are captured in a single shot.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Djamsy/veille-uptade-sub000/pkg/config"
	"github.com/Djamsy/veille-uptade-sub000/pkg/models"
)

// Mode selects the capture strategy for a requested duration.
type Mode string

const (
	ModeSingle    Mode = "single"
	ModeSegmented Mode = "segmented"
)

// Capturer invokes ffmpeg to produce mono/16kHz WAV artifacts.
type Capturer struct {
	cfg config.CaptureConfig

	// run invokes the external tool; replaced in tests.
	run func(ctx context.Context, name string, args ...string) error
}

// New creates a capturer using the ffmpeg binary on PATH.
func New(cfg config.CaptureConfig) *Capturer {
	return &Capturer{cfg: cfg, run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%s timed out: %w", name, ctx.Err())
		}
		return fmt.Errorf("%s: %w (stderr: %s)", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Mode returns the capture strategy for a requested duration in seconds.
// Durations at or above the threshold capture segmented.
func (c *Capturer) Mode(durationSec int) Mode {
	if durationSec >= c.cfg.SegmentThreshold {
		return ModeSegmented
	}
	return ModeSingle
}

// Single captures durationSec seconds from url into dir as one artifact.
// The subprocess is bounded by duration plus a grace period; a timeout,
// nonzero exit or undersized output is a failure and the partial file is
// removed.
func (c *Capturer) Single(ctx context.Context, streamURL string, durationSec int, dir string) (models.Artifact, error) {
	outPath := filepath.Join(dir, "capture.wav")
	if err := c.captureOne(ctx, streamURL, durationSec, outPath); err != nil {
		return models.Artifact{}, err
	}

	size, err := c.checkArtifact(outPath)
	if err != nil {
		return models.Artifact{}, err
	}

	return models.Artifact{
		Index: 0,
		Path:  outPath,
		Size:  size,
		Start: 0,
		End:   float64(durationSec),
	}, nil
}

// Segmented captures durationSec seconds as consecutive windows. Each
// window gets one retry; a window that fails twice is dropped. The capture
// fails only when no window at all succeeds. Returned artifacts keep their
// original temporal order.
func (c *Capturer) Segmented(ctx context.Context, streamURL string, durationSec int, dir string) ([]models.Artifact, error) {
	windows := Windows(durationSec, c.cfg.WindowSeconds)
	log.Printf("capture: splitting %ds into %d windows of up to %ds", durationSec, len(windows), c.cfg.WindowSeconds)

	artifacts := make([]models.Artifact, 0, len(windows))
	for i, w := range windows {
		outPath := filepath.Join(dir, fmt.Sprintf("segment_%03d.wav", i))

		size, err := c.captureWindow(ctx, streamURL, w, outPath)
		if err != nil {
			// One bounded retry before abandoning the window.
			log.Printf("capture: window %d/%d failed, retrying once: %v", i+1, len(windows), err)
			size, err = c.captureWindow(ctx, streamURL, w, outPath)
		}
		if err != nil {
			log.Printf("capture: window %d/%d dropped: %v", i+1, len(windows), err)
			continue
		}

		artifacts = append(artifacts, models.Artifact{
			Index: i,
			Path:  outPath,
			Size:  size,
			Start: float64(w.Offset),
			End:   float64(w.Offset + w.Length),
		})
	}

	if len(artifacts) == 0 {
		return nil, fmt.Errorf("all %d capture windows failed", len(windows))
	}
	return artifacts, nil
}

func (c *Capturer) captureWindow(ctx context.Context, streamURL string, w Window, outPath string) (int64, error) {
	if err := c.captureOne(ctx, streamURL, w.Length, outPath); err != nil {
		return 0, err
	}
	return c.checkArtifact(outPath)
}

func (c *Capturer) captureOne(ctx context.Context, streamURL string, durationSec int, outPath string) error {
	timeout := time.Duration(durationSec+c.cfg.TimeoutGraceSeconds) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := captureArgs(streamURL, durationSec, c.headersFor(streamURL), outPath)
	if err := c.run(ctx, "ffmpeg", args...); err != nil {
		os.Remove(outPath)
		return fmt.Errorf("capture %ds from %s: %w", durationSec, streamURL, err)
	}
	return nil
}

// checkArtifact enforces the minimum-size floor; undersized files are
// removed and reported as failures.
func (c *Capturer) checkArtifact(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("capture produced no artifact: %w", err)
	}
	if info.Size() < c.cfg.SizeFloorBytes {
		os.Remove(path)
		return 0, fmt.Errorf("capture artifact too small: %d bytes (floor %d)", info.Size(), c.cfg.SizeFloorBytes)
	}
	return info.Size(), nil
}

// headersFor returns the extra header block required by some hosts, or ""
// when the URL's host matches no configured pattern.
func (c *Capturer) headersFor(streamURL string) string {
	u, err := url.Parse(streamURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	for pattern, headers := range c.cfg.HeaderHosts {
		if strings.Contains(host, strings.ToLower(pattern)) {
			return headers
		}
	}
	return ""
}

// captureArgs builds the ffmpeg invocation: bounded read of the stream,
// normalized to mono 16kHz PCM for speech-to-text.
func captureArgs(streamURL string, durationSec int, headers string, outPath string) []string {
	args := []string{"-y", "-nostdin", "-loglevel", "error"}
	if headers != "" {
		args = append(args, "-headers", headers)
	}
	args = append(args,
		"-i", streamURL,
		"-t", strconv.Itoa(durationSec),
		"-ac", "1",
		"-ar", "16000",
		"-acodec", "pcm_s16le",
		outPath,
	)
	return args
}

// Window is one bounded slice of a segmented capture.
type Window struct {
	Offset int // seconds from the start of the run
	Length int // seconds
}

// Windows splits a total duration into fixed windows, the final one
// truncated to the remainder.
func Windows(totalSec, windowSec int) []Window {
	if windowSec <= 0 || totalSec <= 0 {
		return nil
	}
	var out []Window
	for offset := 0; offset < totalSec; offset += windowSec {
		length := windowSec
		if offset+length > totalSec {
			length = totalSec - offset
		}
		out = append(out, Window{Offset: offset, Length: length})
	}
	return out
}
