package model

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:100" json:"name"`
	Email        string    `gorm:"size:100;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:16;default:user" json:"role"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	Phone        string    `gorm:"size:15;uniqueIndex" json:"phone"`
	CreatedAt    time.Time `json:"created_at"`
}
