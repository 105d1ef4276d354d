package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"vas-training-be/internal/apperror"
	"vas-training-be/internal/dto"
	"vas-training-be/internal/entity"
	"vas-training-be/internal/pkg/logger"
	"vas-training-be/internal/repository/persistence"
	"vas-training-be/pkg/embedding"
	"vas-training-be/pkg/events"
	"vas-training-be/pkg/utils"
)

type ISOPService interface {
	Ingest(ctx context.Context, req *dto.IngestSOPRequest) (*dto.IngestSOPResponse, error)
}

// sopService chunks a policy document, embeds each chunk, and stores the
// vectors so the retrieval stage has content to cite.
type sopService struct {
	sopRepo   persistence.SOPRepository
	embedder  embedding.Provider
	eventBus  EventPublisher
	sysLogger logger.ILogger
}

func NewSOPService(
	sopRepo persistence.SOPRepository,
	embedder embedding.Provider,
	eventBus EventPublisher,
	sysLogger logger.ILogger,
) ISOPService {
	return &sopService{
		sopRepo:   sopRepo,
		embedder:  embedder,
		eventBus:  eventBus,
		sysLogger: sysLogger,
	}
}

func (s *sopService) Ingest(ctx context.Context, req *dto.IngestSOPRequest) (*dto.IngestSOPResponse, error) {
	category := req.Category
	if category == "" {
		category = "general"
	}

	// ChunkSize 1500 chars with 200 overlap keeps each chunk inside the
	// embedding model's comfortable context.
	chunks := utils.SplitText(req.Content, 1500, 200)

	docs := make([]*entity.SOPDocument, 0, len(chunks))
	for _, chunk := range chunks {
		vec, err := s.embedder.Generate(chunk, "RETRIEVAL_DOCUMENT")
		if err != nil {
			s.sysLogger.Error("SOP", "Embedding failed", map[string]interface{}{
				"source": req.Source,
				"error":  err.Error(),
			})
			return nil, apperror.NewInternal("sop ingest", err)
		}
		docs = append(docs, &entity.SOPDocument{
			Id:        uuid.New(),
			Source:    req.Source,
			Category:  category,
			Content:   chunk,
			Embedding: pgvector.NewVector(vec),
			CreatedAt: time.Now(),
		})
	}

	// Re-ingesting a source replaces its previous chunks.
	if err := s.sopRepo.DeleteBySource(ctx, req.Source); err != nil {
		return nil, apperror.NewInternal("sop ingest", err)
	}
	if err := s.sopRepo.CreateBatch(ctx, docs); err != nil {
		return nil, apperror.NewInternal("sop ingest", err)
	}

	s.sysLogger.Info("SOP", "Document ingested", map[string]interface{}{
		"source":   req.Source,
		"category": category,
		"chunks":   len(docs),
	})

	if s.eventBus != nil {
		if err := s.eventBus.Publish(ctx, events.NewSOPIngested(req.Source, category, len(docs))); err != nil {
			s.sysLogger.Warn("SOP", "Failed to publish ingest event", map[string]interface{}{
				"source": req.Source,
				"error":  err.Error(),
			})
		}
	}

	return &dto.IngestSOPResponse{
		Source: req.Source,
		Chunks: len(docs),
	}, nil
}
