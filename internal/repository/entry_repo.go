package repository

import (
	"context"
	"time"

	"dairy-collection-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type EntryRepository struct {
	db *gorm.DB
}

func NewEntryRepository(db *gorm.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// EntryFilter narrows List. Zero values mean "no filter".
type EntryFilter struct {
	From       *time.Time
	To         *time.Time
	CustomerID *uuid.UUID
	Shift      string
	MilkType   string
	Source     string
	Page       int
	Limit      int
}

func (r *EntryRepository) Create(ctx context.Context, entry *models.MilkEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *EntryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MilkEntry, error) {
	var entry models.MilkEntry
	err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *EntryRepository) List(ctx context.Context, f EntryFilter) ([]models.MilkEntry, int64, error) {
	var entries []models.MilkEntry
	var total int64

	query := r.db.WithContext(ctx).Model(&models.MilkEntry{})
	query = applyEntryFilter(query, f)

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
		Order("entry_time DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&entries).Error
	return entries, total, err
}

// ByCustomerBetween returns a customer's entries date-ascending with
// insertion order preserved for same-day rows, as the ledger needs.
func (r *EntryRepository) ByCustomerBetween(ctx context.Context, customerID uuid.UUID, from, to *time.Time) ([]models.MilkEntry, error) {
	var entries []models.MilkEntry
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

	err := query.Find(&entries).Error
	return entries, err
}

// EntryTotals are SUM aggregates over every row a filter matches,
// independent of paging.
type EntryTotals struct {
	Count       int64           `json:"count"`
	TotalQty    float64         `json:"total_qty"`
	MorningQty  float64         `json:"morning_qty"`
	EveningQty  float64         `json:"evening_qty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func (r *EntryRepository) Totals(ctx context.Context, f EntryFilter) (*EntryTotals, error) {
	var totals EntryTotals
	query := applyEntryFilter(r.db.WithContext(ctx).Model(&models.MilkEntry{}), f)
	err := query.
		Select(`COUNT(*) AS count,
			COALESCE(SUM(quantity_litre), 0) AS total_qty,
			COALESCE(SUM(CASE WHEN shift = ? THEN quantity_litre ELSE 0 END), 0) AS morning_qty,
			COALESCE(SUM(CASE WHEN shift = ? THEN quantity_litre ELSE 0 END), 0) AS evening_qty,
			COALESCE(SUM(amount), 0) AS total_amount`,
			models.ShiftMorning, models.ShiftEvening).
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

func (r *EntryRepository) Save(ctx context.Context, entry *models.MilkEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

func (r *EntryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.MilkEntry{}, "id = ?", id).Error
}

func applyEntryFilter(query *gorm.DB, f EntryFilter) *gorm.DB {
	if f.From != nil {
		query = query.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("date <= ?", *f.To)
	}
	if f.CustomerID != nil {
		query = query.Where("customer_id = ?", *f.CustomerID)
	}
	if f.Shift != "" {
		query = query.Where("shift = ?", f.Shift)
	}
	if f.MilkType != "" {
		query = query.Where("milk_type = ?", f.MilkType)
	}
	if f.Source != "" {
		query = query.Where("source = ?", f.Source)
	}
	return query
}
