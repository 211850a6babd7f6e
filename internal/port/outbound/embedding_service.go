package outbound

import (
	"context"

	pgvector "github.com/pgvector/pgvector-go"
)

// EmbeddingService converts text into fixed-length vector representations.
type EmbeddingService interface {
	// GenerateEmbeddings returns one vector per input text, position
	// aligned: result[i] belongs to texts[i]. A text that could not be
	// resolved (blank input, provider failure for its batch) yields nil
	// at its position; the result length always equals the input length.
	GenerateEmbeddings(ctx context.Context, texts []string) ([]*pgvector.Vector, error)

	// GenerateEmbedding embeds a single text, returning nil when the
	// text is blank or the provider fails.
	GenerateEmbedding(ctx context.Context, text string) (*pgvector.Vector, error)
}

// TokenCounter counts tokens of a piece of text under the embedding
// provider's tokenization.
type TokenCounter interface {
	CountTokens(text string) int
}
