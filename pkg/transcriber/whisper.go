// Package transcriber wraps the Whisper speech-to-text API and merges
// per-segment results back into one ordered transcript.
package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const whisperAPIURL = "https://api.openai.com/v1/audio/transcriptions"

// Result is one transcription call's outcome.
type Result struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Client calls the Whisper API with bounded retries.
type Client struct {
	apiKey     string
	maxRetries int
	httpClient *http.Client
}

// NewClient creates a Whisper client. maxRetries <= 0 means a single attempt.
func NewClient(apiKey string, maxRetries int) *Client {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &Client{
		apiKey:     apiKey,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Transcribe sends one audio artifact to Whisper, retrying transient
// failures with exponential backoff.
func (c *Client) Transcribe(ctx context.Context, audioPath, language string) (*Result, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		res, err := c.transcribeOnce(ctx, audioPath, language)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("transcription canceled: %w", ctx.Err())
		}
		if attempt < c.maxRetries-1 {
			wait := time.Duration(1<<uint(attempt)) * time.Second
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, fmt.Errorf("transcription canceled: %w", ctx.Err())
			}
		}
	}
	return nil, fmt.Errorf("transcription failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) transcribeOnce(ctx context.Context, audioPath, language string) (*Result, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, fmt.Errorf("build form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy artifact into form: %w", err)
	}

	writer.WriteField("model", "whisper-1")
	if language != "" {
		writer.WriteField("language", language)
	}
	writer.WriteField("response_format", "verbose_json")

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, whisperAPIURL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("whisper returned %d: %s", resp.StatusCode, string(errBody))
	}

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode whisper response: %w", err)
	}
	return &res, nil
}
