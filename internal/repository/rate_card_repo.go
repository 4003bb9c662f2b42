package repository

import (
	"context"

	"dairy-collection-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RateCardRepository struct {
	db *gorm.DB
}

func NewRateCardRepository(db *gorm.DB) *RateCardRepository {
	return &RateCardRepository{db: db}
}

// ActiveCards returns active cards in resolution order: milk_type, then
// min_fat ascending with NULL (unbounded) first. First match wins.
// Postgres sorts NULLs last by default, sqlite first; NULLS FIRST pins
// the same order on both.
func (r *RateCardRepository) ActiveCards(ctx context.Context) ([]models.RateCard, error) {
	var cards []models.RateCard
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("milk_type ASC").
		Order("min_fat ASC NULLS FIRST").
		Find(&cards).Error
	return cards, err
}

func (r *RateCardRepository) List(ctx context.Context) ([]models.RateCard, error) {
	var cards []models.RateCard
	err := r.db.WithContext(ctx).
		Order("milk_type ASC").
		Order("min_fat ASC").
		Find(&cards).Error
	return cards, err
}

func (r *RateCardRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RateCard, error) {
	var card models.RateCard
	err := r.db.WithContext(ctx).First(&card, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *RateCardRepository) Create(ctx context.Context, card *models.RateCard) error {
	return r.db.WithContext(ctx).Create(card).Error
}

func (r *RateCardRepository) Save(ctx context.Context, card *models.RateCard) error {
	return r.db.WithContext(ctx).Save(card).Error
}

func (r *RateCardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.RateCard{}, "id = ?", id).Error
}
