// Package openai provides the embedding gateway: batching chunk texts,
// invoking an OpenAI-compatible embeddings endpoint, and mapping results
// back to their positions.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"codevectorizer/internal/application/common/metrics"
	"codevectorizer/internal/application/common/slogger"

	pgvector "github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultModel is the default embedding model.
	DefaultModel = "text-embedding-ada-002"

	// DefaultBaseURL is the default OpenAI API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultBatchSize is how many texts are sent per provider request.
	DefaultBatchSize = 100

	// DefaultMaxConcurrentBatches bounds parallel provider requests.
	DefaultMaxConcurrentBatches = 4

	// maxInputChars truncates over-long inputs before embedding
	// (roughly the 8191-token provider limit at four characters per
	// token).
	maxInputChars = 8191 * 4
)

// ClientConfig holds the configuration for the embeddings client.
type ClientConfig struct {
	APIKey               string        `json:"api_key"`
	BaseURL              string        `json:"base_url"`
	Model                string        `json:"model"`
	BatchSize            int           `json:"batch_size"`
	MaxConcurrentBatches int           `json:"max_concurrent_batches"`
	Timeout              time.Duration `json:"timeout"`
}

// Validate validates the client configuration.
func (c *ClientConfig) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("API key cannot be empty")
	}
	if c.BaseURL != "" && !strings.HasPrefix(c.BaseURL, "http") {
		return errors.New("invalid base URL")
	}
	if c.BatchSize < 0 {
		return errors.New("batch size cannot be negative")
	}
	if c.MaxConcurrentBatches < 0 {
		return errors.New("max concurrent batches cannot be negative")
	}
	return nil
}

// Client calls an OpenAI-compatible embeddings endpoint.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	metrics    *metrics.PipelineMetrics
}

// WithMetrics attaches pipeline metrics so batch failures are counted.
func (c *Client) WithMetrics(m *metrics.PipelineMetrics) *Client {
	c.metrics = m
	return c
}

// NewClient creates an embeddings client, applying defaults for unset
// fields.
func NewClient(config ClientConfig) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid embeddings client config: %w", err)
	}

	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.BatchSize == 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.MaxConcurrentBatches == 0 {
		config.MaxConcurrentBatches = DefaultMaxConcurrentBatches
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}, nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// GenerateEmbeddings returns one vector per input text, position aligned.
// Blank texts resolve to nil without consulting the provider. A provider
// failure for one batch resolves every member of that batch to nil while
// other batches proceed independently; batches are dispatched concurrently
// and merged back in input order.
func (c *Client) GenerateEmbeddings(ctx context.Context, texts []string) ([]*pgvector.Vector, error) {
	results := make([]*pgvector.Vector, len(texts))
	if len(texts) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.MaxConcurrentBatches)

	for start := 0; start < len(texts); start += c.config.BatchSize {
		end := min(start+c.config.BatchSize, len(texts))
		batchStart, batch := start, texts[start:end]

		g.Go(func() error {
			vectors := c.embedBatch(gctx, batch)
			// Each goroutine writes a disjoint slice of results.
			copy(results[batchStart:], vectors)
			return nil
		})
	}

	// Batch failures are downgraded to nil positions, never errors.
	_ = g.Wait()

	return results, nil
}

// GenerateEmbedding embeds a single text.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) (*pgvector.Vector, error) {
	vectors, err := c.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// embedBatch resolves one batch. The returned slice is position aligned
// with the batch; failures yield nil entries.
func (c *Client) embedBatch(ctx context.Context, batch []string) []*pgvector.Vector {
	vectors := make([]*pgvector.Vector, len(batch))

	// Blank inputs never reach the provider.
	inputs := make([]string, 0, len(batch))
	positions := make([]int, 0, len(batch))
	for i, text := range batch {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			continue
		}
		if len(trimmed) > maxInputChars {
			// Back up to a rune boundary so the cut never splits a
			// multi-byte character.
			cut := maxInputChars
			for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
				cut--
			}
			trimmed = trimmed[:cut]
		}
		inputs = append(inputs, trimmed)
		positions = append(positions, i)
	}
	if len(inputs) == 0 {
		return vectors
	}

	response, err := c.createEmbeddings(ctx, inputs)
	if err != nil {
		slogger.ErrorWithError(ctx, err, "Embedding batch failed", slogger.Fields{
			"batch_size": len(inputs),
		})
		c.recordBatchFailure(ctx)
		return vectors
	}
	if len(response.Data) != len(inputs) {
		slogger.Error(ctx, "Embedding batch returned misaligned results", slogger.Fields{
			"expected": len(inputs),
			"received": len(response.Data),
		})
		c.recordBatchFailure(ctx)
		return vectors
	}

	// The provider is not required to echo inputs in request order, so
	// the response index maps each vector back to its input.
	for _, data := range response.Data {
		if data.Index < 0 || data.Index >= len(positions) {
			slogger.Error(ctx, "Embedding batch returned out-of-range index", slogger.Fields{
				"index":      data.Index,
				"batch_size": len(inputs),
			})
			continue
		}
		vector := pgvector.NewVector(data.Embedding)
		vectors[positions[data.Index]] = &vector
	}
	return vectors
}

func (c *Client) recordBatchFailure(ctx context.Context) {
	if c.metrics != nil {
		c.metrics.RecordEmbeddingBatchFailure(ctx)
	}
}

func (c *Client) createEmbeddings(ctx context.Context, inputs []string) (*embeddingResponse, error) {
	payload, err := json.Marshal(embeddingRequest{
		Model: c.config.Model,
		Input: inputs,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.config.BaseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call embeddings endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	return &parsed, nil
}
