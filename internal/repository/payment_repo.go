package repository

import (
	"context"
	"time"

	"dairy-collection-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

type PaymentFilter struct {
	From       *time.Time
	To         *time.Time
	CustomerID *uuid.UUID
	Mode       string
	Page       int
	Limit      int
}

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) List(ctx context.Context, f PaymentFilter) ([]models.Payment, int64, error) {
	var payments []models.Payment
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Payment{})
	if f.From != nil {
		query = query.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("date <= ?", *f.To)
	}
	if f.CustomerID != nil {
		query = query.Where("customer_id = ?", *f.CustomerID)
	}
	if f.Mode != "" {
		query = query.Where("mode = ?", f.Mode)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}

	err := query.
		Order("date DESC").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&payments).Error
	return payments, total, err
}

func (r *PaymentRepository) ByCustomerBetween(ctx context.Context, customerID uuid.UUID, from, to *time.Time) ([]models.Payment, error) {
	var payments []models.Payment
	query := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("date ASC").
		Order("created_at ASC")

	if from != nil {
		query = query.Where("date >= ?", *from)
	}
	if to != nil {
		query = query.Where("date <= ?", *to)
	}

	err := query.Find(&payments).Error
	return payments, err
}

func (r *PaymentRepository) Save(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

func (r *PaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Payment{}, "id = ?", id).Error
}
