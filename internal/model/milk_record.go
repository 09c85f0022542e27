package model

import "time"

// MilkRecord is one collection entry for a customer.
type MilkRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CustomerID    uint      `gorm:"not null;index" json:"customer_id"`
	Date          time.Time `gorm:"type:date" json:"date"`
	Quantity      float64   `json:"quantity"`
	Fat           float64   `json:"fat"`
	PricePerLitre float64   `json:"price_per_litre"`
	TotalPrice    float64   `json:"total_price"`
}

func (MilkRecord) TableName() string { return "milk_collection" }
