package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SourceAMCU   = "AMCU"
	SourceManual = "MANUAL"

	ShiftMorning = "M"
	ShiftEvening = "E"
)

// MilkEntry is immutable once created; corrections go through the
// explicit admin update path and re-derive rate/amount.
type MilkEntry struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID    uuid.UUID       `gorm:"index" json:"customer_id"`
	Date          time.Time       `gorm:"type:date;index" json:"date"`
	Time          string          `gorm:"column:entry_time" json:"time"`
	Shift         string          `gorm:"index" json:"shift"`
	MilkType      string          `gorm:"index" json:"milk_type"`
	QuantityLitre float64         `json:"quantity_litre"`
	Fat           *float64        `json:"fat"`
	Snf           *float64        `json:"snf"`
	Clr           *float64        `json:"clr"`
	RatePerLitre  decimal.Decimal `gorm:"type:decimal(10,2)" json:"rate_per_litre"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);index" json:"amount"`
	Source        string          `gorm:"index" json:"source"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
