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

type orderItemRequest struct {
	SKU       string  `json:"sku" validate:"required,max=64"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"required,gt=0"`
}

type createOrderRequest struct {
	CustomerName string             `json:"customer_name" validate:"required,max=128"`
	Items        []orderItemRequest `json:"items" validate:"required,min=1,dive"`
}

func CreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := middlewares.BindAndValidate(c, &req); err != nil {
		return err
	}

	var total float64
	items := make([]models.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		lineTotal := utils.Round2(float64(it.Quantity) * it.UnitPrice)
		total += lineTotal
		items = append(items, models.OrderItem{
			SKU:       it.SKU,
			Quantity:  it.Quantity,
			UnitPrice: utils.Round2(it.UnitPrice),
			LineTotal: lineTotal,
		})
	}

	order := models.Order{
		CustomerName: req.CustomerName,
		Items:        items,
		Total:        utils.Round2(total),
	}
	if err := database.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&order).Error
	}); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "could not create order")
	}

	return c.Status(fiber.StatusCreated).JSON(order)
}

func GetOrders(c *fiber.Ctx) error {
	var orders []models.Order
	if err := database.DB.Preload("Items").Order("created_at DESC").Find(&orders).Error; err != nil {
		return err
	}
	return c.JSON(orders)
}

func GetOrder(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	var order models.Order
	if err := database.DB.Preload("Items").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}
	return c.JSON(order)
}
