package repository

import (
	"context"

	"dairy-collection-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AdvanceRepository struct {
	db *gorm.DB
}

func NewAdvanceRepository(db *gorm.DB) *AdvanceRepository {
	return &AdvanceRepository{db: db}
}

func (r *AdvanceRepository) Create(ctx context.Context, advance *models.Advance) error {
	return r.db.WithContext(ctx).Create(advance).Error
}

func (r *AdvanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Advance, error) {
	var advance models.Advance
	err := r.db.WithContext(ctx).First(&advance, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &advance, nil
}

func (r *AdvanceRepository) List(ctx context.Context, customerID *uuid.UUID, status string) ([]models.Advance, error) {
	var advances []models.Advance
	query := r.db.WithContext(ctx).Order("created_at DESC")

	if customerID != nil {
		query = query.Where("customer_id = ?", *customerID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	err := query.Find(&advances).Error
	return advances, err
}

// ActiveByCustomer returns active advances in FIFO allocation order
// (oldest created first). Locked reads during allocation bypass this
// and query inside the transaction.
func (r *AdvanceRepository) ActiveByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Advance, error) {
	var advances []models.Advance
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND status = ?", customerID, models.AdvanceActive).
		Order("created_at ASC").
		Find(&advances).Error
	return advances, err
}

func (r *AdvanceRepository) Save(ctx context.Context, advance *models.Advance) error {
	return r.db.WithContext(ctx).Save(advance).Error
}

func (r *AdvanceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Advance{}, "id = ?", id).Error
}
