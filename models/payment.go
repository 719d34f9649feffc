package models

import "time"

// Payment records one executed debit against an account.
type Payment struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	AccountID uint    `json:"account_id" gorm:"index:idx_payments_account_created,priority:1;not null"`
	Account   Account `json:"-" gorm:"foreignKey:AccountID;references:ID"`

	Amount    float64 `json:"amount" gorm:"type:numeric(12,2)"`
	Currency  string  `json:"currency" gorm:"size:3;not null"`
	Reference string  `json:"reference" gorm:"size:255"`

	CreatedAt time.Time `json:"created_at" gorm:"index:idx_payments_account_created,priority:2"`
}
