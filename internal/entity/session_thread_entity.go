package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SessionThread is the relational record of a completed training session,
// written by the consumer service after the orchestrator archives it.
type SessionThread struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerId       string    `gorm:"index"`
	ScenarioTitle string
	Scenario      datatypes.JSON `gorm:"type:jsonb"`
	Persona       datatypes.JSON `gorm:"type:jsonb"`
	FinalScores   datatypes.JSON `gorm:"type:jsonb"`
	Feedback      datatypes.JSON `gorm:"type:jsonb"`
	OverallScore  int
	Grade         string
	DurationMs    int64
	CompletedAt   time.Time
	CreatedAt     time.Time
}

func (SessionThread) TableName() string {
	return "session_threads"
}

// SessionMessage is one transcript entry of a persisted thread.
type SessionMessage struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ThreadId  uuid.UUID `gorm:"type:uuid;not null;index"`
	Role      string
	Content   string `gorm:"type:text"`
	TurnIndex int
	Timestamp time.Time
	CreatedAt time.Time
}

func (SessionMessage) TableName() string {
	return "session_messages"
}
