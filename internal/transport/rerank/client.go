// Package rerank is an HTTP client for a cross-encoder rerank API
// (Voyage-style /v1/rerank contract).
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sidepot-cloud/handex/internal/domain"
	"github.com/sidepot-cloud/handex/internal/metrics"
)

const defaultTimeout = 30 * time.Second

// Client implements domain.Reranker over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	logger  *zap.Logger
}

var _ domain.Reranker = (*Client)(nil)

// Config holds rerank client settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewClient creates a rerank API client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		http:    &http.Client{Timeout: timeout},
		logger:  cfg.Logger,
	}
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
	TopK      int      `json:"top_k,omitempty"`
}

type rerankResponse struct {
	Data []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"data"`
}

// Rerank scores documents against the query and returns up to topK results
// in descending relevance order. Indexes refer to the documents slice.
func (c *Client) Rerank(
	ctx context.Context, query string, documents []string, topK int,
) ([]domain.RankedDocument, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{
		Query:     query,
		Documents: documents,
		Model:     c.model,
		TopK:      topK,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)

	if err != nil {
		metrics.RerankRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return nil, fmt.Errorf("rerank request: %v: %w", err, domain.ErrRerankerUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RerankRequestsTotal.WithLabelValues(c.model, "error").Inc()
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("rerank API status %d: %s: %w",
			resp.StatusCode, string(detail), domain.ErrRerankerUnavailable)
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.RerankRequestsTotal.WithLabelValues(c.model, "error").Inc()
		return nil, fmt.Errorf("decode rerank response: %v: %w", err, domain.ErrRerankerUnavailable)
	}

	metrics.RerankRequestsTotal.WithLabelValues(c.model, "success").Inc()
	metrics.RerankRequestDuration.WithLabelValues(c.model).Observe(duration.Seconds())

	ranked := make([]domain.RankedDocument, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(documents) {
			c.logger.Warn("Rerank returned out-of-range index",
				zap.Int("index", d.Index),
				zap.Int("documents", len(documents)),
			)
			continue
		}
		ranked = append(ranked, domain.RankedDocument{
			Index: d.Index,
			Score: d.RelevanceScore,
		})
	}

	return ranked, nil
}
