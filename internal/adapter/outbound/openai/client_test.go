package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"codevectorizer/internal/application/common/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newEmbeddingsServer returns a test server that embeds each input as a
// three-element vector keyed by its length, and fails the whole request
// with 500 when any input contains "boom".
func newEmbeddingsServer(t *testing.T, requestCount *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestCount != nil {
			requestCount.Add(1)
		}
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		for _, input := range req.Input {
			if strings.Contains(input, "boom") {
				http.Error(w, "provider exploded", http.StatusInternalServerError)
				return
			}
		}

		var resp embeddingResponse
		for i, input := range req.Input {
			resp.Data = append(resp.Data, struct {
				Index     int       `json:"index"`
				Embedding []float32 `json:"embedding"`
			}{Index: i, Embedding: []float32{float32(len(input)), 0, 1}})
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func newTestClient(t *testing.T, baseURL string, batchSize int) *Client {
	t.Helper()
	client, err := NewClient(ClientConfig{
		APIKey:    "test-key",
		BaseURL:   baseURL,
		BatchSize: batchSize,
	})
	require.NoError(t, err)
	return client
}

func TestClientConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ClientConfig
		wantErr bool
	}{
		{name: "valid", config: ClientConfig{APIKey: "k"}},
		{name: "missing api key", config: ClientConfig{}, wantErr: true},
		{name: "whitespace api key", config: ClientConfig{APIKey: "   "}, wantErr: true},
		{name: "bad base url", config: ClientConfig{APIKey: "k", BaseURL: "ftp://x"}, wantErr: true},
		{name: "negative batch size", config: ClientConfig{APIKey: "k", BatchSize: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGenerateEmbeddings_PositionAligned(t *testing.T) {
	server := newEmbeddingsServer(t, nil)
	defer server.Close()
	client := newTestClient(t, server.URL, 10)

	texts := []string{"alpha", "longer input", "xy"}
	vectors, err := client.GenerateEmbeddings(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	for i, text := range texts {
		require.NotNil(t, vectors[i], "position %d", i)
		assert.Equal(t, float32(len(text)), vectors[i].Slice()[0])
	}
}

func TestGenerateEmbeddings_BlankInputsSkipProvider(t *testing.T) {
	var requests atomic.Int32
	server := newEmbeddingsServer(t, &requests)
	defer server.Close()
	client := newTestClient(t, server.URL, 10)

	vectors, err := client.GenerateEmbeddings(context.Background(), []string{"", "   ", "\n\t"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for i, v := range vectors {
		assert.Nil(t, v, "position %d", i)
	}
	assert.Equal(t, int32(0), requests.Load(), "provider must not be called for blank-only input")
}

func TestGenerateEmbeddings_BlankAmongRealInputs(t *testing.T) {
	server := newEmbeddingsServer(t, nil)
	defer server.Close()
	client := newTestClient(t, server.URL, 10)

	vectors, err := client.GenerateEmbeddings(context.Background(), []string{"real", "", "also real"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	require.NotNil(t, vectors[0])
	assert.Equal(t, float32(4), vectors[0].Slice()[0])
	assert.Nil(t, vectors[1])
	require.NotNil(t, vectors[2])
	assert.Equal(t, float32(9), vectors[2].Slice()[0])
}

func TestGenerateEmbeddings_BatchFailureIsIsolated(t *testing.T) {
	server := newEmbeddingsServer(t, nil)
	defer server.Close()
	// Batch size 2: [ok-1 ok-2] [boom ok-3] [ok-4]
	client := newTestClient(t, server.URL, 2)

	texts := []string{"ok-1", "ok-2", "boom", "ok-3", "ok-4"}
	vectors, err := client.GenerateEmbeddings(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 5)

	assert.NotNil(t, vectors[0])
	assert.NotNil(t, vectors[1])
	assert.Nil(t, vectors[2], "failed batch member")
	assert.Nil(t, vectors[3], "failed batch member")
	assert.NotNil(t, vectors[4], "later batch unaffected")
}

func TestGenerateEmbeddings_TruncationKeepsRuneBoundary(t *testing.T) {
	var captured []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		captured = req.Input

		var resp embeddingResponse
		for i := range req.Input {
			resp.Data = append(resp.Data, struct {
				Index     int       `json:"index"`
				Embedding []float32 `json:"embedding"`
			}{Index: i, Embedding: []float32{1, 0, 0}})
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()
	client := newTestClient(t, server.URL, 10)

	// Two-byte runes after a single-byte prefix put every rune boundary
	// on an odd offset, so a byte-count cut would split a rune.
	oversized := "a" + strings.Repeat("é", maxInputChars)
	vectors, err := client.GenerateEmbeddings(context.Background(), []string{oversized})
	require.NoError(t, err)
	require.NotNil(t, vectors[0])

	require.Len(t, captured, 1)
	assert.LessOrEqual(t, len(captured[0]), maxInputChars)
	assert.True(t, utf8.ValidString(captured[0]), "truncation must not split a rune")
}

func TestGenerateEmbeddings_OutOfOrderResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// Echo the inputs back in reverse order, relying on the index
		// field to identify each vector.
		var resp embeddingResponse
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, struct {
				Index     int       `json:"index"`
				Embedding []float32 `json:"embedding"`
			}{Index: i, Embedding: []float32{float32(len(req.Input[i])), 0, 0}})
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()
	client := newTestClient(t, server.URL, 10)

	texts := []string{"a", "bbb", "cc"}
	vectors, err := client.GenerateEmbeddings(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for i, text := range texts {
		require.NotNil(t, vectors[i], "position %d", i)
		assert.Equal(t, float32(len(text)), vectors[i].Slice()[0])
	}
}

func TestGenerateEmbeddings_BatchFailureIsCounted(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	previous := otel.GetMeterProvider()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	t.Cleanup(func() { otel.SetMeterProvider(previous) })

	pipelineMetrics, err := metrics.NewPipelineMetrics()
	require.NoError(t, err)

	server := newEmbeddingsServer(t, nil)
	defer server.Close()
	client := newTestClient(t, server.URL, 10).WithMetrics(pipelineMetrics)

	vectors, err := client.GenerateEmbeddings(context.Background(), []string{"boom"})
	require.NoError(t, err)
	assert.Nil(t, vectors[0])

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var failed int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "vectorize.embedding_batches.failed" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, point := range sum.DataPoints {
				failed += point.Value
			}
		}
	}
	assert.Equal(t, int64(1), failed)
}

func TestGenerateEmbeddings_EmptyInput(t *testing.T) {
	server := newEmbeddingsServer(t, nil)
	defer server.Close()
	client := newTestClient(t, server.URL, 10)

	vectors, err := client.GenerateEmbeddings(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestGenerateEmbedding_Single(t *testing.T) {
	server := newEmbeddingsServer(t, nil)
	defer server.Close()
	client := newTestClient(t, server.URL, 10)

	vector, err := client.GenerateEmbedding(context.Background(), "hello")
	require.NoError(t, err)
	require.NotNil(t, vector)
	assert.Equal(t, float32(5), vector.Slice()[0])

	blank, err := client.GenerateEmbedding(context.Background(), "  ")
	require.NoError(t, err)
	assert.Nil(t, blank)
}
