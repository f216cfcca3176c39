package stt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.aimuz.me/rimay/internal/types"
)

// DefaultBaseURL is Groq's OpenAI-compatible API root.
const DefaultBaseURL = "https://api.groq.com/openai/v1/"

const (
	clipFileName    = "audio.wav"
	clipContentType = "audio/wav"
)

// ErrNoAPIKey is returned by NewClient without an API key.
var ErrNoAPIKey = errors.New("stt: API key required")

// Config holds configuration for Client.
type Config struct {
	APIKey     string
	BaseURL    string        // Optional, defaults to DefaultBaseURL
	Timeout    time.Duration // Optional per-request timeout
	HTTPClient *http.Client  // Optional
}

// Client transcribes clips with an OpenAI-compatible transcription
// endpoint. Failed requests are not retried.
type Client struct {
	api openai.Client
}

// NewClient creates a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{api: openai.NewClient(opts...)}, nil
}

// Transcribe implements Transcriber.
func (c *Client) Transcribe(ctx context.Context, clip []byte, opts types.TranscribeOptions) (string, error) {
	if opts.Model == "" {
		return "", errors.New("stt: model required")
	}

	params := openai.AudioTranscriptionNewParams{
		File:           openai.File(bytes.NewReader(clip), clipFileName, clipContentType),
		Model:          openai.AudioModel(opts.Model),
		ResponseFormat: openai.AudioResponseFormatJSON,
		Temperature:    openai.Float(0),
	}
	if opts.Language != "" {
		params.Language = openai.String(opts.Language)
	}
	if opts.Prompt != "" {
		params.Prompt = openai.String(opts.Prompt)
	}

	start := time.Now()
	resp, err := c.api.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("transcription API error %d: %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("send transcription request: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	slog.Debug("transcribed clip",
		"opts", opts,
		"bytes", len(clip),
		"chars", len(text),
		"elapsed", time.Since(start),
	)
	return text, nil
}
