package model

import "time"

const (
	PaymentModeCash = "cash"
	PaymentModeUPI  = "upi"
	PaymentModeBank = "bank"
)

type Payment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CustomerID  uint      `gorm:"not null;index" json:"customer_id"`
	AmountPaid  float64   `json:"amount_paid"`
	Date        time.Time `gorm:"type:date" json:"date"`
	PaymentMode string    `gorm:"size:8;default:cash" json:"payment_mode"`
}
