package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	AdvanceActive   = "active"
	AdvanceUtilized = "utilized"
)

// Advance is cash handed to a farmer ahead of collections. Invariant:
// 0 <= utilized_amount <= amount, status flips to utilized exactly when
// the two are equal.
type Advance struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID     uuid.UUID       `gorm:"index" json:"customer_id"`
	Date           time.Time       `gorm:"type:date" json:"date"`
	Amount         decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	UtilizedAmount decimal.Decimal `gorm:"type:decimal(12,2)" json:"utilized_amount"`
	Status         string          `gorm:"index" json:"status"`
	Note           string          `json:"note"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Outstanding is the undrawn portion still owed back by the customer.
func (a *Advance) Outstanding() decimal.Decimal {
	return a.Amount.Sub(a.UtilizedAmount)
}
