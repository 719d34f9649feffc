// Command demo drives the idempotency guard end to end against a running
// server: it registers a user, opens an account, then fires the same debit
// twice under one Idempotency-Key (second response is the cached replay) and
// once more under a fresh key (a real second debit).
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"
)

var (
	baseURL  = flag.String("addr", "http://localhost:8080", "server base URL")
	email    = flag.String("email", "demo@example.com", "demo user email")
	password = flag.String("password", "demo-password", "demo user password")
)

func main() {
	flag.Parse()

	// Registration may 400 if the user already exists; that's fine.
	_, _, _ = post("/api/registration", "", "", map[string]any{
		"first_name":       "Demo",
		"last_name":        "User",
		"email":            *email,
		"password":         *password,
		"password_confirm": *password,
	})

	status, body, err := post("/api/login", "", "", map[string]any{
		"email":    *email,
		"password": *password,
	})
	if err != nil || status != http.StatusOK {
		log.Fatalf("login failed: status=%d err=%v body=%s", status, err, body)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &login); err != nil {
		log.Fatalf("decode login: %v", err)
	}

	status, body, err = post("/api/account", login.Token, "", map[string]any{
		"owner":    "Demo User",
		"currency": "EUR",
		"balance":  100.00,
	})
	if err != nil || status != http.StatusCreated {
		log.Fatalf("create account failed: status=%d err=%v body=%s", status, err, body)
	}
	var account struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(body, &account); err != nil {
		log.Fatalf("decode account: %v", err)
	}

	debit := map[string]any{
		"account_id": account.ID,
		"amount":     25.00,
		"currency":   "EUR",
		"reference":  "demo debit",
	}

	key := uuid.NewString()
	fmt.Printf("debit #1 (key %s):\n", key)
	status, body, err = post("/api/payment/debit", login.Token, key, debit)
	fmt.Printf("  status=%d err=%v body=%s\n", status, err, body)

	fmt.Printf("debit #2 (same key, replayed, no second execution):\n")
	status, body, err = post("/api/payment/debit", login.Token, key, debit)
	fmt.Printf("  status=%d err=%v body=%s\n", status, err, body)

	fresh := uuid.NewString()
	fmt.Printf("debit #3 (fresh key %s, executes again):\n", fresh)
	status, body, err = post("/api/payment/debit", login.Token, fresh, debit)
	fmt.Printf("  status=%d err=%v body=%s\n", status, err, body)
}

func post(path, token, idempotencyKey string, payload any) (int, []byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequest(http.MethodPost, *baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	return res.StatusCode, body, err
}
