// Package resolver turns configured page URLs into directly playable
// media URLs. Resolution is best-effort: every failure falls back to the
// original URL, and only a later capture failure is fatal.
package resolver

import (
	"bytes"
	"context"
	"log"
	"net/url"
	"os/exec"
	"strings"
	"time"
)

const resolveTimeout = 30 * time.Second

// directExtensions are URL path suffixes already playable by the capture
// tool without resolution.
var directExtensions = []string{".mp3", ".aac", ".ogg", ".m3u8", ".pls"}

// streamlink prefixes a scheme marker on some variants; the capture tool
// wants the bare URL.
var schemeMarkers = []string{"hlsvariant://", "hls://", "httpstream://", "dash://"}

// Resolver resolves stream page URLs via the streamlink CLI.
type Resolver struct {
	// run invokes the external tool; replaced in tests.
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// New creates a resolver using the streamlink binary on PATH.
func New() *Resolver {
	return &Resolver{run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}

// Resolve returns a playable URL for rawURL. Direct stream forms are
// returned unchanged; anything else goes through streamlink's best
// variant. On any failure the original URL is returned.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) string {
	if IsDirect(rawURL) {
		return rawURL
	}

	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	out, err := r.run(ctx, "streamlink", "--stream-url", rawURL, "best")
	if err != nil {
		log.Printf("resolver: streamlink failed for %s, falling back to configured URL: %v", rawURL, err)
		return rawURL
	}

	resolved := firstLine(string(out))
	if resolved == "" {
		log.Printf("resolver: streamlink returned no URL for %s, falling back", rawURL)
		return rawURL
	}

	return StripSchemeMarker(resolved)
}

// IsDirect reports whether a URL already has a known direct-stream form.
func IsDirect(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	path := strings.ToLower(u.Path)
	for _, ext := range directExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// StripSchemeMarker removes the variant prefix streamlink adds to some
// resolved URLs.
func StripSchemeMarker(resolved string) string {
	for _, marker := range schemeMarkers {
		if strings.HasPrefix(resolved, marker) {
			return strings.TrimPrefix(resolved, marker)
		}
	}
	return resolved
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
