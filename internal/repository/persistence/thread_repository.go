// Package persistence holds the gorm-backed repositories. Completed sessions
// arrive here through the consumer service; the live session path never
// touches the database.
package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"vas-training-be/internal/entity"
	"vas-training-be/pkg/store"
)

type ThreadRepository interface {
	PersistCompleted(ctx context.Context, completed *store.CompletedSession) error
	FindByOwner(ctx context.Context, ownerID string, limit int) ([]*entity.SessionThread, error)
	FindById(ctx context.Context, id uuid.UUID) (*entity.SessionThread, error)
	FindMessages(ctx context.Context, threadID uuid.UUID) ([]*entity.SessionMessage, error)
}

type threadRepository struct {
	db *gorm.DB
}

func NewThreadRepository(db *gorm.DB) ThreadRepository {
	return &threadRepository{db: db}
}

// PersistCompleted writes the thread row and its transcript in one
// transaction so a replayed event either fully lands or not at all.
func (r *threadRepository) PersistCompleted(ctx context.Context, completed *store.CompletedSession) error {
	threadID, err := uuid.Parse(completed.ID)
	if err != nil {
		return fmt.Errorf("parse session id %q: %w", completed.ID, err)
	}

	thread, err := toThread(threadID, completed)
	if err != nil {
		return err
	}

	messages := make([]*entity.SessionMessage, len(completed.Transcript))
	for i, msg := range completed.Transcript {
		messages[i] = &entity.SessionMessage{
			Id:        uuid.New(),
			ThreadId:  threadID,
			Role:      msg.Role,
			Content:   msg.Content,
			TurnIndex: msg.TurnIndex,
			Timestamp: msg.Timestamp,
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(thread).Error; err != nil {
			return err
		}
		if len(messages) == 0 {
			return nil
		}
		return tx.Create(messages).Error
	})
}

func toThread(threadID uuid.UUID, completed *store.CompletedSession) (*entity.SessionThread, error) {
	scenario, err := json.Marshal(completed.Scenario)
	if err != nil {
		return nil, err
	}
	persona, err := json.Marshal(completed.Persona)
	if err != nil {
		return nil, err
	}
	scores, err := json.Marshal(completed.FinalScores)
	if err != nil {
		return nil, err
	}
	feedback, err := json.Marshal(completed.Feedback)
	if err != nil {
		return nil, err
	}

	thread := &entity.SessionThread{
		Id:          threadID,
		OwnerId:     completed.OwnerID,
		Scenario:    datatypes.JSON(scenario),
		Persona:     datatypes.JSON(persona),
		FinalScores: datatypes.JSON(scores),
		Feedback:    datatypes.JSON(feedback),
		DurationMs:  completed.DurationMs,
		CompletedAt: completed.CompletedAt,
	}
	if completed.Scenario != nil {
		thread.ScenarioTitle = completed.Scenario.Title
	}
	overall := completed.FinalScores.Overall()
	thread.OverallScore = overall
	thread.Grade = store.GradeFor(overall)
	if completed.Feedback != nil {
		thread.OverallScore = completed.Feedback.OverallScore
		thread.Grade = completed.Feedback.Grade
	}
	return thread, nil
}

func (r *threadRepository) FindByOwner(ctx context.Context, ownerID string, limit int) ([]*entity.SessionThread, error) {
	var threads []*entity.SessionThread
	query := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("completed_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&threads).Error; err != nil {
		return nil, err
	}
	return threads, nil
}

func (r *threadRepository) FindById(ctx context.Context, id uuid.UUID) (*entity.SessionThread, error) {
	var thread entity.SessionThread
	if err := r.db.WithContext(ctx).First(&thread, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &thread, nil
}

func (r *threadRepository) FindMessages(ctx context.Context, threadID uuid.UUID) ([]*entity.SessionMessage, error) {
	var messages []*entity.SessionMessage
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("turn_index ASC, timestamp ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}
