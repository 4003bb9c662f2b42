package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AmcuLog keeps the raw device traffic for operator debugging. Packet
// holds the decoded key/value map when one was assembled.
type AmcuLog struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RawText      string         `json:"raw_text"`
	Packet       datatypes.JSON `json:"packet"`
	ParsedOK     bool           `gorm:"index" json:"parsed_ok"`
	ErrorMessage string         `json:"error_message"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
}
