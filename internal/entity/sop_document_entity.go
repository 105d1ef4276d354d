package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// SOPDocument is a policy passage searchable by the knowledge retriever.
type SOPDocument struct {
	Id        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Source    string          `gorm:"index"` // document name, e.g. "Overbooking Recovery SOP"
	Category  string          `gorm:"index"` // booking | complaint | overbooking | general
	Content   string          `gorm:"type:text"`
	Embedding pgvector.Vector `gorm:"type:vector(768)"` // nomic-embed-text dimensions
	CreatedAt time.Time       `gorm:"autoCreateTime"`
}

func (SOPDocument) TableName() string {
	return "sop_documents"
}
