package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"dairydesk/internal/model"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(payment *model.Payment) error {
	if err := r.db.Create(payment).Error; err != nil {
		return fmt.Errorf("create payment failed: %w", err)
	}
	return nil
}

func (r *PaymentRepository) ListByUserID(userID uint) ([]model.Payment, error) {
	var payments []model.Payment
	err := r.db.
		Joins("JOIN customers ON customers.id = payments.customer_id").
		Where("customers.user_id = ?", userID).
		Order("payments.id ASC").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("list payments failed: %w", err)
	}
	return payments, nil
}

func (r *PaymentRepository) GetByIDAndUserID(id, userID uint) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.
		Joins("JOIN customers ON customers.id = payments.customer_id").
		Where("payments.id = ? AND customers.user_id = ?", id, userID).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment failed: %w", err)
	}
	return &payment, nil
}

func (r *PaymentRepository) Update(payment *model.Payment) error {
	if err := r.db.Save(payment).Error; err != nil {
		return fmt.Errorf("update payment failed: %w", err)
	}
	return nil
}

func (r *PaymentRepository) Delete(payment *model.Payment) error {
	if err := r.db.Delete(payment).Error; err != nil {
		return fmt.Errorf("delete payment failed: %w", err)
	}
	return nil
}
