package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallbackTruncatesOnRuneBoundary(t *testing.T) {
	// Accented text must not be cut mid-rune.
	text := strings.Repeat("é", 600)
	a := Fallback(text, 500)

	assert.True(t, a.Degraded)
	assert.Equal(t, strings.Repeat("é", 500)+"...", a.Summary)
	assert.Empty(t, a.Keywords)
}

func TestFallbackShortTextKeptWhole(t *testing.T) {
	a := Fallback("  bulletin du matin  ", 500)
	assert.True(t, a.Degraded)
	assert.Equal(t, "bulletin du matin", a.Summary)
}

func TestBuildPromptTruncatesLongInput(t *testing.T) {
	text := strings.Repeat("a", 20000)
	prompt := buildPrompt(text, "journal", 12000)

	assert.Contains(t, prompt, "journal")
	assert.Less(t, len(prompt), 13000)
	assert.Contains(t, prompt, "...")
}
