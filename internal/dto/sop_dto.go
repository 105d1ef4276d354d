package dto

type IngestSOPRequest struct {
	Source   string `json:"source" validate:"required,max=200"`
	Category string `json:"category" validate:"omitempty,oneof=booking complaint overbooking general"`
	Content  string `json:"content" validate:"required"`
}

type IngestSOPResponse struct {
	Source string `json:"source"`
	Chunks int    `json:"chunks"`
}

// IngestSOPMessage is the watermill payload carried between the HTTP layer
// and the embedding consumer.
type IngestSOPMessage struct {
	Source   string `json:"source"`
	Category string `json:"category"`
	Content  string `json:"content"`
}
