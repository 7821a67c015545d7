// Package ollama provides a tagging adapter that asks a local Ollama
// model for topic keywords.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/kb-engine/internal/core/ports/driven"
)

// Ensure Tagger implements the interface.
var _ driven.Tagger = (*Tagger)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 60 * time.Second

	// MaxTags bounds how many tags one chunk gets.
	MaxTags = 8
)

const tagPrompt = `Extract up to %d short topic tags for the following text.
Respond with ONLY a comma-separated list of lowercase tags, nothing else.

Text:
%s`

// Config holds configuration for the Ollama tagger.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the generation model to use (default: llama3.2).
	Model string

	// Timeout is the request timeout (default: 60s).
	Timeout time.Duration
}

// Tagger extracts topic tags using an Ollama generation model.
type Tagger struct {
	client  *http.Client
	baseURL string
	model   string
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// NewTagger creates a new Ollama tagger.
func NewTagger(cfg Config) *Tagger {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Tagger{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// Tag asks the model for topic tags and parses the comma-separated
// reply.
func (t *Tagger) Tag(ctx context.Context, text string) ([]string, error) {
	jsonBody, err := json.Marshal(generateRequest{
		Model:  t.model,
		Prompt: fmt.Sprintf(tagPrompt, MaxTags, text),
		Stream: false,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		t.baseURL+"/api/generate",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("ollama error (status %d): failed to read response", resp.StatusCode)
		}
		return nil, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return parseTags(genResp.Response), nil
}

// parseTags splits a comma-separated model reply into clean tags.
// Models occasionally decorate output; anything empty or over-long is
// dropped.
func parseTags(reply string) []string {
	var tags []string
	for _, part := range strings.Split(reply, ",") {
		tag := strings.ToLower(strings.TrimSpace(part))
		tag = strings.Trim(tag, ".\"'`")
		if tag == "" || len(tag) > 50 {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == MaxTags {
			break
		}
	}
	return tags
}
