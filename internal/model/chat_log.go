package model

import "time"

// ChatLog is an audit copy of one chat turn. Rows are written
// asynchronously by the transcript worker; the chat pipeline never
// reads them back; conversational context lives in memory.
type ChatLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:128;not null;index" json:"session_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Language  string    `gorm:"size:8" json:"language"`
	CreatedAt time.Time `json:"created_at"`
}
