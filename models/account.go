package models

import "time"

// Account is the funding source debited by payments.
type Account struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Owner     string    `json:"owner" gorm:"size:128;not null"`
	Currency  string    `json:"currency" gorm:"size:3;not null"`
	Balance   float64   `json:"balance" gorm:"type:numeric(12,2)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
