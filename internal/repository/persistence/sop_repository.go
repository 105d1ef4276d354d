package persistence

import (
	"context"

	"gorm.io/gorm"

	"vas-training-be/internal/entity"
)

type SOPRepository interface {
	Create(ctx context.Context, doc *entity.SOPDocument) error
	CreateBatch(ctx context.Context, docs []*entity.SOPDocument) error
	CountByCategory(ctx context.Context, category string) (int64, error)
	DeleteBySource(ctx context.Context, source string) error
}

type sopRepository struct {
	db *gorm.DB
}

func NewSOPRepository(db *gorm.DB) SOPRepository {
	return &sopRepository{db: db}
}

func (r *sopRepository) Create(ctx context.Context, doc *entity.SOPDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *sopRepository) CreateBatch(ctx context.Context, docs []*entity.SOPDocument) error {
	if len(docs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(docs, 100).Error
}

func (r *sopRepository) CountByCategory(ctx context.Context, category string) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&entity.SOPDocument{})
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *sopRepository) DeleteBySource(ctx context.Context, source string) error {
	return r.db.WithContext(ctx).Where("source = ?", source).Delete(&entity.SOPDocument{}).Error
}
