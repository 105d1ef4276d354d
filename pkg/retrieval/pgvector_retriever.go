package retrieval

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"vas-training-be/internal/apperror"
	"vas-training-be/internal/entity"
	"vas-training-be/pkg/embedding"
)

const defaultLimit = 5

// PgvectorRetriever answers queries against the sop_documents table using
// cosine distance over normalized embeddings.
type PgvectorRetriever struct {
	db       *gorm.DB
	embedder embedding.Provider
	limit    int
}

var _ Retriever = &PgvectorRetriever{}

func NewPgvectorRetriever(db *gorm.DB, embedder embedding.Provider) *PgvectorRetriever {
	return &PgvectorRetriever{
		db:       db,
		embedder: embedder,
		limit:    defaultLimit,
	}
}

// WithLimit overrides the number of references returned per query.
func (r *PgvectorRetriever) WithLimit(limit int) *PgvectorRetriever {
	if limit > 0 {
		r.limit = limit
	}
	return r
}

func (r *PgvectorRetriever) Retrieve(ctx context.Context, query string, filter Filter) ([]Reference, error) {
	vector, err := r.embedder.Generate(query, "retrieval_query")
	if err != nil {
		return nil, apperror.NewRetrieval(query, err)
	}

	queryVector := pgvector.NewVector(vector)

	type row struct {
		Source     string
		Category   string
		Content    string
		Similarity float32
	}

	// Cosine distance in pgvector is 1 - cosine_similarity, so
	// 1 - (embedding <=> query) recovers similarity for ranking.
	tx := r.db.WithContext(ctx).
		Model(&entity.SOPDocument{}).
		Select("source, category, content, 1 - (embedding <=> ?) as similarity", queryVector)
	if filter.Category != "" {
		tx = tx.Where("category = ?", filter.Category)
	}

	var rows []row
	if err := tx.Order(gorm.Expr("embedding <=> ?", queryVector)).
		Limit(r.limit).
		Scan(&rows).Error; err != nil {
		return nil, apperror.NewRetrieval(query, err)
	}

	refs := make([]Reference, 0, len(rows))
	for _, rw := range rows {
		refs = append(refs, Reference{
			Source:  rw.Source,
			Content: rw.Content,
			Score:   rw.Similarity,
			Metadata: map[string]string{
				"category": rw.Category,
			},
		})
	}
	return refs, nil
}
