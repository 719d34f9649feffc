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

type createAccountRequest struct {
	Owner    string  `json:"owner" validate:"required,max=128"`
	Currency string  `json:"currency" validate:"required,len=3"`
	Balance  float64 `json:"balance" validate:"gte=0"`
}

func CreateAccount(c *fiber.Ctx) error {
	var req createAccountRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	account := models.Account{
		Owner:    req.Owner,
		Currency: req.Currency,
		Balance:  utils.Round2(req.Balance),
	}
	if err := database.DB.Create(&account).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not create account")
	}

	return c.Status(fiber.StatusCreated).JSON(account)
}

func GetAccount(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid account id")
	}

	var account models.Account
	if err := database.DB.First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "account not found")
		}
		return err
	}

	return c.JSON(account)
}
