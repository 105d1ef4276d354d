// Package retrieval implements the knowledge-retrieval collaborator:
// semantic search over SOP (standard operating procedure) passages.
// Failures surface as *apperror.RetrievalError and consumers degrade
// gracefully; retrieval is never fatal to session progress.
package retrieval

import (
	"context"
)

// Reference is one ranked policy passage returned for a query.
type Reference struct {
	Source   string            `json:"source"`
	Content  string            `json:"content"`
	Score    float32           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Filter narrows a query to a scenario category. Empty means no filter.
type Filter struct {
	Category string
}

// Retriever is the query/response contract of the knowledge-retrieval service.
type Retriever interface {
	Retrieve(ctx context.Context, query string, filter Filter) ([]Reference, error)
}
