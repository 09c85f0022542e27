package repository

import (
	"fmt"

	"gorm.io/gorm"

	"dairydesk/internal/model"
)

type ChatLogRepository struct {
	db *gorm.DB
}

func NewChatLogRepository(db *gorm.DB) *ChatLogRepository {
	return &ChatLogRepository{db: db}
}

func (r *ChatLogRepository) Create(entry *model.ChatLog) error {
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("create chat log failed: %w", err)
	}
	return nil
}

func (r *ChatLogRepository) ListBySessionID(sessionID string, limit int) ([]model.ChatLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	var entries []model.ChatLog
	if err := r.db.Where("session_id = ?", sessionID).Order("created_at ASC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list chat logs failed: %w", err)
	}
	return entries, nil
}
