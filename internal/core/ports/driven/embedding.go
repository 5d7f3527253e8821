package driven

import "context"

// EmbeddingService computes text embeddings for semantic retrieval.
// The computation itself is an external collaborator; the query engine
// only shapes requests around it.
type EmbeddingService interface {
	// EmbedQuery embeds a search query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// HealthCheck verifies the service is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases resources.
	Close() error
}
