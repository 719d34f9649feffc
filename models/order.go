package models

import "time"

// Order is a customer order with its live line items.
type Order struct {
	ID           uint        `json:"id" gorm:"primaryKey"`
	CustomerName string      `json:"customer_name" gorm:"size:128;not null"`
	Items        []OrderItem `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Total        float64     `json:"total" gorm:"type:numeric(12,2)"`
	CreatedAt    time.Time   `json:"created_at"`
}

type OrderItem struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	OrderID   uint    `json:"-" gorm:"index"`
	SKU       string  `json:"sku" gorm:"size:64;not null"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price" gorm:"type:numeric(12,2)"`
	LineTotal float64 `json:"line_total" gorm:"type:numeric(12,2)"`
}
