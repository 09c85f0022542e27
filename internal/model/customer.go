package model

type Customer struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Name    string `gorm:"size:100" json:"name"`
	Phone   string `gorm:"size:15" json:"phone"`
	Address string `gorm:"type:text" json:"address"`
	UserID  uint   `gorm:"not null;index" json:"user_id"`
}
