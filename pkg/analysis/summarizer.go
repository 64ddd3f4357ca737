// Package analysis enriches transcripts with a GPT-generated summary and
// keywords. Analysis is best-effort: callers degrade to a local fallback
// when it fails.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/Djamsy/veille-uptade-sub000/pkg/config"
	"github.com/Djamsy/veille-uptade-sub000/pkg/models"
)

const systemPrompt = "Tu es un assistant de veille médiatique pour la Guadeloupe. " +
	"On te donne la transcription d'une émission de radio locale. " +
	"Réponds uniquement en JSON avec un résumé factuel et les mots-clés principaux."

// Summarizer calls the chat-completion API for transcript enrichment.
type Summarizer struct {
	client *openai.Client
	cfg    config.AnalysisConfig
}

// NewSummarizer creates a summarizer.
func NewSummarizer(apiKey string, cfg config.AnalysisConfig) *Summarizer {
	return &Summarizer{
		client: openai.NewClient(apiKey),
		cfg:    cfg,
	}
}

// Analyze summarizes a transcript for one stream section. Any failure is
// returned as an error; the caller decides how to degrade.
func (s *Summarizer) Analyze(ctx context.Context, text, section string) (*models.Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSeconds)*time.Second)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(text, section, s.cfg.MaxInputChars),
			},
		},
		Temperature: 0.3,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("analysis request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("analysis returned no choices")
	}

	var parsed struct {
		Summary  string   `json:"summary"`
		Keywords []string `json:"keywords"`
	}
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("malformed analysis response: %w (raw: %.200s)", err, content)
	}
	if strings.TrimSpace(parsed.Summary) == "" {
		return nil, fmt.Errorf("analysis returned an empty summary")
	}

	return &models.Analysis{
		Summary:  parsed.Summary,
		Keywords: parsed.Keywords,
	}, nil
}

func buildPrompt(text, section string, maxChars int) string {
	if len(text) > maxChars {
		text = text[:maxChars] + "..."
	}
	return fmt.Sprintf(`Rubrique: %s

Transcription:
%s

Réponds en JSON strict:
{
  "summary": "résumé factuel en 3 à 5 phrases",
  "keywords": ["mot-clé 1", "mot-clé 2"]
}`, section, text)
}

// Fallback synthesizes a degraded local summary from the transcript's
// first maxChars characters, cut on a rune boundary.
func Fallback(text string, maxChars int) *models.Analysis {
	runes := []rune(strings.TrimSpace(text))
	summary := string(runes)
	if len(runes) > maxChars {
		summary = string(runes[:maxChars]) + "..."
	}
	return &models.Analysis{
		Summary:  summary,
		Degraded: true,
	}
}
