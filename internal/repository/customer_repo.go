package repository

import (
	"context"

	"dairy-collection-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// Expose DB if needed
func (r *CustomerRepository) DB() *gorm.DB {
	return r.db
}

// FindByAmcuID resolves an active customer by the id the collection
// unit knows them by.
func (r *CustomerRepository) FindByAmcuID(ctx context.Context, amcuID string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Where("amcu_customer_id = ? AND is_active = ?", amcuID, true).
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *CustomerRepository) List(ctx context.Context, search string, activeOnly bool) ([]models.Customer, error) {
	var customers []models.Customer
	query := r.db.WithContext(ctx).Model(&models.Customer{}).Order("name ASC")

	if search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR amcu_customer_id LIKE ?", like, like)
	}
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	err := query.Find(&customers).Error
	return customers, err
}

func (r *CustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *CustomerRepository) Save(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Save(customer).Error
}

// Deactivate soft-deletes: entries and payments keep referencing the row.
func (r *CustomerRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}
