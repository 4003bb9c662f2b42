package models

import (
	"time"

	"github.com/google/uuid"
)

type Customer struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AmcuCustomerID  string    `gorm:"uniqueIndex" json:"amcu_customer_id"`
	Name            string    `gorm:"index" json:"name"`
	Phone           string    `json:"phone"`
	Address         string    `json:"address"`
	MilkTypeDefault string    `json:"milk_type_default"`
	IsActive        bool      `gorm:"index" json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
