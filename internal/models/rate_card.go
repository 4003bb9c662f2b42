package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateCard prices one litre of milk for a (milkType, fat, snf) band.
// Fat/SNF bounds are half-open [min, max); a nil bound is unbounded on
// that side. Resolution order is milk_type, then min_fat ascending.
type RateCard struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	MilkType     string          `gorm:"index" json:"milk_type"`
	MinFat       *float64        `json:"min_fat"`
	MaxFat       *float64        `json:"max_fat"`
	MinSnf       *float64        `json:"min_snf"`
	MaxSnf       *float64        `json:"max_snf"`
	RatePerLitre decimal.Decimal `gorm:"type:decimal(10,2)" json:"rate_per_litre"`
	IsActive     bool            `gorm:"index" json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
