// Package embeddings turns raw document text into fixed-length vectors.
//
// The provider is an external dependency boundary: one synchronous call per
// document, swappable between a remote HTTP endpoint and a local subprocess.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"docmatch/internal/apperrors"
	"docmatch/internal/config"
)

// Provider computes an embedding vector for a piece of text. Every call
// within a deployment returns vectors of the same dimensionality.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// New builds the provider described by the configuration, wrapped in the
// bounded retry decorator.
func New(cfg config.EmbedderConfig) (Provider, error) {
	var p Provider
	switch cfg.Kind {
	case "http":
		p = NewHTTPProvider(cfg.BaseURL, cfg.Model, time.Duration(cfg.Timeout)*time.Second)
	case "subprocess":
		p = NewSubprocessProvider(cfg.Command, cfg.Args, time.Duration(cfg.Timeout)*time.Second)
	default:
		return nil, fmt.Errorf("unknown embedder kind: %s", cfg.Kind)
	}
	return NewRetrying(p, cfg.Retries), nil
}

// HTTPProvider calls an Ollama-compatible embeddings endpoint.
type HTTPProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewHTTPProvider(baseURL, model string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := map[string]interface{}{
		"model":  p.model,
		"prompt": text,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &apperrors.ProviderError{Op: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, &apperrors.ProviderError{Op: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &apperrors.ProviderError{Op: "call", Err: transientError{err}}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperrors.ProviderError{Op: "read response", Err: transientError{err}}
	}

	if resp.StatusCode >= 500 {
		return nil, &apperrors.ProviderError{
			Op:  "call",
			Err: transientError{fmt.Errorf("status %d: %s", resp.StatusCode, body)},
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &apperrors.ProviderError{Op: "call", Err: fmt.Errorf("status %d: %s", resp.StatusCode, body)}
	}

	var result struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &apperrors.ProviderError{Op: "decode response", Err: err}
	}

	if len(result.Embedding) == 0 {
		return nil, &apperrors.ProviderError{Op: "decode response", Err: errors.New("no embedding returned")}
	}

	return result.Embedding, nil
}

// transientError marks failures worth retrying (network errors, 5xx).
// Malformed output is permanent and surfaces immediately.
type transientError struct {
	err error
}

func (e transientError) Error() string { return e.err.Error() }
func (e transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var t transientError
	return errors.As(err, &t)
}
