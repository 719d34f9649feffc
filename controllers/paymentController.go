package controllers

import (
	"errors"

	"zahlung-backend/database"
	"zahlung-backend/middlewares"
	"zahlung-backend/models"
	"zahlung-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type debitRequest struct {
	AccountID uint    `json:"account_id" validate:"required"`
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Currency  string  `json:"currency" validate:"required,len=3"`
	Reference string  `json:"reference" validate:"max=255"`
}

// DebitPayment withdraws from an account and records the payment in one
// transaction. The handler is responsible for its own rollback on failure;
// the idempotency gate in front of it only guards against re-execution.
func DebitPayment(c *fiber.Ctx) error {
	var req debitRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}
	req.Amount = utils.Round2(req.Amount)

	var payment models.Payment
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var account models.Account
		if err := tx.First(&account, req.AccountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "account not found")
			}
			return err
		}
		if account.Currency != req.Currency {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "currency mismatch")
		}

		// Check and decrement in one guarded UPDATE so two concurrent debits
		// can never both spend the same funds; a balance computed from the
		// read above could be overwritten by a racing transaction.
		res := tx.Model(&models.Account{}).
			Where("id = ? AND balance >= ?", account.ID, req.Amount).
			Update("balance", gorm.Expr("balance - ?", req.Amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "insufficient funds")
		}

		payment = models.Payment{
			AccountID: account.ID,
			Amount:    req.Amount,
			Currency:  req.Currency,
			Reference: req.Reference,
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(payment)
}

func ListPayments(c *fiber.Ctx) error {
	q := database.DB.Order("created_at DESC")
	if accountID := c.QueryInt("account_id"); accountID > 0 {
		q = q.Where("account_id = ?", accountID)
	}

	var payments []models.Payment
	if err := q.Find(&payments).Error; err != nil {
		return err
	}
	return c.JSON(payments)
}
