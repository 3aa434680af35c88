package textmodel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Model is the narrow capability contract the analyzer consumes: a text-in,
// text-out generation call plus an availability probe. Absence of a model
// is represented by Disabled, never by a nil check in the analyzer.
type Model interface {
	Available() bool
	Generate(ctx context.Context, prompt string) (string, error)
}

// Disabled is the null model. Analysis built on it always takes the
// rule-based path.
type Disabled struct{}

func (Disabled) Available() bool { return false }

func (Disabled) Generate(ctx context.Context, prompt string) (string, error) {
	return "", fmt.Errorf("text model disabled")
}

// Config configures the HTTP-backed model client.
type Config struct {
	BaseURL        string
	Model          string
	RequestTimeout time.Duration
}

// HTTPModel talks to a local generation server (ollama-style API). The
// engine treats the model as opaque: prompt in, free text out.
type HTTPModel struct {
	baseURL string
	model   string
	http    *http.Client
	logger  *zap.Logger
}

func NewHTTPModel(cfg Config, logger *zap.Logger) *HTTPModel {
	return &HTTPModel{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		logger:  logger,
	}
}

func (m *HTTPModel) Available() bool { return true }

// Generate submits the prompt and returns the model's raw completion.
func (m *HTTPModel) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model":  m.model,
		"prompt": prompt,
		"stream": false,
	})
	if err != nil {
		return "", fmt.Errorf("encoding generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		m.logger.Warn("text model request failed", zap.Error(err))
		return "", fmt.Errorf("text model request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("text model returned status %d", resp.StatusCode)
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding generate response: %w", err)
	}
	if out.Response == "" {
		return "", fmt.Errorf("text model returned empty response")
	}
	return out.Response, nil
}
