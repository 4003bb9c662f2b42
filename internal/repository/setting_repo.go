package repository

import (
	"context"

	"dairy-collection-backend/internal/models"

	"gorm.io/gorm"
)

type SettingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

func (r *SettingRepository) All(ctx context.Context) (map[string]string, error) {
	var rows []models.Setting
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}

	settings := make(map[string]string, len(rows))
	for _, s := range rows {
		settings[s.Key] = s.Value
	}
	return settings, nil
}

func (r *SettingRepository) Set(ctx context.Context, key, value string) error {
	return r.db.WithContext(ctx).Save(&models.Setting{Key: key, Value: value}).Error
}
