package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"dairydesk/internal/model"
)

type MilkRepository struct {
	db *gorm.DB
}

func NewMilkRepository(db *gorm.DB) *MilkRepository {
	return &MilkRepository{db: db}
}

func (r *MilkRepository) Create(record *model.MilkRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("create milk record failed: %w", err)
	}
	return nil
}

// ListByUserID returns milk records for every customer owned by the user.
func (r *MilkRepository) ListByUserID(userID uint) ([]model.MilkRecord, error) {
	var records []model.MilkRecord
	err := r.db.
		Joins("JOIN customers ON customers.id = milk_collection.customer_id").
		Where("customers.user_id = ?", userID).
		Order("milk_collection.id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list milk records failed: %w", err)
	}
	return records, nil
}

func (r *MilkRepository) GetByIDAndUserID(id, userID uint) (*model.MilkRecord, error) {
	var record model.MilkRecord
	err := r.db.
		Joins("JOIN customers ON customers.id = milk_collection.customer_id").
		Where("milk_collection.id = ? AND customers.user_id = ?", id, userID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get milk record failed: %w", err)
	}
	return &record, nil
}

func (r *MilkRepository) Update(record *model.MilkRecord) error {
	if err := r.db.Save(record).Error; err != nil {
		return fmt.Errorf("update milk record failed: %w", err)
	}
	return nil
}

func (r *MilkRepository) Delete(record *model.MilkRecord) error {
	if err := r.db.Delete(record).Error; err != nil {
		return fmt.Errorf("delete milk record failed: %w", err)
	}
	return nil
}
