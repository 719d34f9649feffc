package controllers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"zahlung-backend/database"
	"zahlung-backend/middlewares"
	"zahlung-backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestDebitPaymentHappyPath(t *testing.T) {
	app := newControllerApp(t)
	account := createTestAccount(t, 100.00)

	status, body := postJSON(t, app, "/payment/debit", fmt.Sprintf(`{"account_id":%d,"amount":25.50,"currency":"EUR","reference":"order 7"}`, account.ID))
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", status, body)
	}

	var payment models.Payment
	if err := json.Unmarshal([]byte(body), &payment); err != nil {
		t.Fatalf("decode payment: %v", err)
	}
	if payment.Amount != 25.50 || payment.AccountID != account.ID {
		t.Fatalf("unexpected payment: %+v", payment)
	}

	var reloaded models.Account
	if err := database.DB.First(&reloaded, account.ID).Error; err != nil {
		t.Fatalf("reload account: %v", err)
	}
	if reloaded.Balance != 74.50 {
		t.Fatalf("expected balance 74.50, got %.2f", reloaded.Balance)
	}
}

func TestDebitPaymentInsufficientFunds(t *testing.T) {
	app := newControllerApp(t)
	account := createTestAccount(t, 10.00)

	status, body := postJSON(t, app, "/payment/debit", fmt.Sprintf(`{"account_id":%d,"amount":25.00,"currency":"EUR"}`, account.ID))
	if status != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (%s)", status, body)
	}

	// The rejected debit must leave no trace.
	var count int64
	if err := database.DB.Model(&models.Payment{}).Count(&count).Error; err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no payment rows, got %d", count)
	}
	var reloaded models.Account
	if err := database.DB.First(&reloaded, account.ID).Error; err != nil {
		t.Fatalf("reload account: %v", err)
	}
	if reloaded.Balance != 10.00 {
		t.Fatalf("balance must be untouched, got %.2f", reloaded.Balance)
	}
}

func TestDebitPaymentNeverOverdraws(t *testing.T) {
	app := newControllerApp(t)
	account := createTestAccount(t, 100.00)

	// Each debit decrements relative to the stored balance under a
	// balance >= amount guard, so repeated spends can only succeed while
	// funds remain, never on a stale read.
	payload := fmt.Sprintf(`{"account_id":%d,"amount":40.00,"currency":"EUR"}`, account.ID)
	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		status, _ := postJSON(t, app, "/payment/debit", payload)
		statuses = append(statuses, status)
	}
	if statuses[0] != fiber.StatusCreated || statuses[1] != fiber.StatusCreated {
		t.Fatalf("first two debits must succeed, got %v", statuses)
	}
	if statuses[2] != fiber.StatusUnprocessableEntity {
		t.Fatalf("third debit must be rejected, got %v", statuses)
	}

	var reloaded models.Account
	if err := database.DB.First(&reloaded, account.ID).Error; err != nil {
		t.Fatalf("reload account: %v", err)
	}
	if reloaded.Balance != 20.00 {
		t.Fatalf("expected balance 20.00 after two debits, got %.2f", reloaded.Balance)
	}
	var count int64
	if err := database.DB.Model(&models.Payment{}).Count(&count).Error; err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 payment rows, got %d", count)
	}
}

func TestDebitPaymentUnknownAccount(t *testing.T) {
	app := newControllerApp(t)

	status, _ := postJSON(t, app, "/payment/debit", `{"account_id":9999,"amount":5.00,"currency":"EUR"}`)
	if status != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestDebitPaymentValidation(t *testing.T) {
	app := newControllerApp(t)

	status, body := postJSON(t, app, "/payment/debit", `{"account_id":1,"amount":-5,"currency":"EURO"}`)
	if status != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422 validation failure, got %d (%s)", status, body)
	}
	if !strings.Contains(body, "validation failed") {
		t.Fatalf("expected validation error body, got %s", body)
	}
}

func newControllerApp(t *testing.T) *fiber.App {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Account{}, &models.Payment{},
		&models.Order{}, &models.OrderItem{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	database.DB = db

	app := fiber.New(fiber.Config{ErrorHandler: middlewares.ErrorHandler})
	app.Post("/registration", Register)
	app.Post("/payment/debit", DebitPayment)
	app.Get("/payments", ListPayments)
	app.Post("/order", CreateOrder)
	app.Get("/order/:id", GetOrder)
	return app
}

func createTestAccount(t *testing.T, balance float64) models.Account {
	t.Helper()
	account := models.Account{Owner: "Test", Currency: "EUR", Balance: balance}
	if err := database.DB.Create(&account).Error; err != nil {
		t.Fatalf("create account: %v", err)
	}
	return account
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res.StatusCode, string(raw)
}
