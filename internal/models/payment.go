package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Payment struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID uuid.UUID       `gorm:"index" json:"customer_id"`
	Date       time.Time       `gorm:"type:date;index" json:"date"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	Mode       string          `gorm:"index" json:"mode"`
	Reference  string          `json:"reference"`
	Notes      string          `json:"notes"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
