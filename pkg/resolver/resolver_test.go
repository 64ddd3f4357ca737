package resolver

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDirect(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://rci.ice.infomaniak.ch/rci-guadeloupe.mp3", true},
		{"http://stream.example/live.aac", true},
		{"https://cdn.example/playlist.m3u8", true},
		{"https://radio.example/listen.pls", true},
		{"https://www.francetvinfo.fr/en-direct/radio-guadeloupe.html", false},
		{"rtmp://stream.example/live", false},
		{"not a url", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsDirect(tt.url), tt.url)
	}
}

func TestStripSchemeMarker(t *testing.T) {
	assert.Equal(t, "https://cdn.example/x.m3u8", StripSchemeMarker("hlsvariant://https://cdn.example/x.m3u8"))
	assert.Equal(t, "https://cdn.example/x.m3u8", StripSchemeMarker("hls://https://cdn.example/x.m3u8"))
	assert.Equal(t, "https://cdn.example/x.mp3", StripSchemeMarker("https://cdn.example/x.mp3"))
}

func TestResolveReturnsDirectURLUnchanged(t *testing.T) {
	r := New()
	r.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		t.Fatal("direct URLs must not invoke the resolution tool")
		return nil, nil
	}

	url := "https://rci.ice.infomaniak.ch/rci-guadeloupe.mp3"
	assert.Equal(t, url, r.Resolve(context.Background(), url))
}

func TestResolveUsesBestVariantAndStripsMarker(t *testing.T) {
	r := New()
	r.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		assert.Equal(t, "streamlink", name)
		assert.Equal(t, []string{"--stream-url", "https://page.example/live", "best"}, args)
		return []byte("hlsvariant://https://cdn.example/best.m3u8\n"), nil
	}

	got := r.Resolve(context.Background(), "https://page.example/live")
	assert.Equal(t, "https://cdn.example/best.m3u8", got)
}

func TestResolveFallsBackOnToolFailure(t *testing.T) {
	r := New()
	r.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, fmt.Errorf("exec: streamlink: not found")
	}

	url := "https://page.example/live"
	assert.Equal(t, url, r.Resolve(context.Background(), url))
}

func TestResolveFallsBackOnEmptyOutput(t *testing.T) {
	r := New()
	r.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte("  \n"), nil
	}

	url := "https://page.example/live"
	assert.Equal(t, url, r.Resolve(context.Background(), url))
}
