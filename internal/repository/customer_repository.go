package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"dairydesk/internal/model"
)

type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) Create(customer *model.Customer) error {
	if err := r.db.Create(customer).Error; err != nil {
		return fmt.Errorf("create customer failed: %w", err)
	}
	return nil
}

func (r *CustomerRepository) ListByUserID(userID uint) ([]model.Customer, error) {
	var customers []model.Customer
	if err := r.db.Where("user_id = ?", userID).Order("id ASC").Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("list customers failed: %w", err)
	}
	return customers, nil
}

func (r *CustomerRepository) GetByIDAndUserID(id, userID uint) (*model.Customer, error) {
	var customer model.Customer
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer failed: %w", err)
	}
	return &customer, nil
}

func (r *CustomerRepository) Update(customer *model.Customer) error {
	if err := r.db.Save(customer).Error; err != nil {
		return fmt.Errorf("update customer failed: %w", err)
	}
	return nil
}

func (r *CustomerRepository) Delete(customer *model.Customer) error {
	if err := r.db.Delete(customer).Error; err != nil {
		return fmt.Errorf("delete customer failed: %w", err)
	}
	return nil
}
