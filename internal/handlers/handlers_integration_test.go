package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"gamestore/internal/app"
	"gamestore/internal/database"
	"gamestore/internal/handlers"
	"gamestore/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testJWTSecret = "test_jwt_secret"
	ownerEmail    = "owner@gamestore.local"
	ownerPassword = "ownerpass"
)

type capturingSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *capturingSender) Send(_ context.Context, to, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, to)
	return nil
}

type testEnv struct {
	t      *testing.T
	app    *app.App
	sender *capturingSender
}

// setupApp builds the full application over a private in-memory SQLite database
// with a seeded owner account.
func setupApp(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(database.Config{Driver: database.DriverSQLite, DSN: database.MemoryDSN(uuid.NewString()), Quiet: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	sender := &capturingSender{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	application := app.New(log, db, app.Options{
		JWTSecret: testJWTSecret,
		JWTTTL:    time.Hour,
		Sender:    sender,
		AccessLog: io.Discard,
	})
	require.NoError(t, application.Auth.SeedOwner(context.Background(), ownerEmail, ownerPassword))
	return &testEnv{t: t, app: application, sender: sender}
}

func (e *testEnv) do(method, target, token string, body io.Reader, contentType string) *http.Response {
	e.t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Fiber.Test(req, -1)
	require.NoError(e.t, err)
	e.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) json(method, target, token string, payload interface{}) *http.Response {
	e.t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(e.t, err)
		body = bytes.NewReader(raw)
	}
	return e.do(method, target, token, body, "application/json")
}

func (e *testEnv) form(target, token string, values url.Values) *http.Response {
	e.t.Helper()
	return e.do(http.MethodPost, target, token, strings.NewReader(values.Encode()), "application/x-www-form-urlencoded")
}

func (e *testEnv) login(email, password string) string {
	e.t.Helper()
	resp := e.json(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(e.t, http.StatusOK, resp.StatusCode)
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(e.t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Token
}

func (e *testEnv) registerAndLogin(email string) string {
	e.t.Helper()
	resp := e.json(http.MethodPost, "/auth/register", "", map[string]string{"email": email, "password": "password123"})
	require.Equal(e.t, http.StatusCreated, resp.StatusCode)
	return e.login(email, "password123")
}

func (e *testEnv) seedProduct(name, price, buyPrice string, stock int) *models.Product {
	e.t.Helper()
	p := &models.Product{
		Name:      name,
		Category:  models.CategoryGame,
		Price:     decimal.RequireFromString(price),
		BuyPrice:  decimal.RequireFromString(buyPrice),
		StockQty:  stock,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(e.t, e.app.Store.Products.Create(context.Background(), p))
	return p
}

func decodeResult(t *testing.T, resp *http.Response) handlers.Result {
	t.Helper()
	var res handlers.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return res
}

func TestHealth(t *testing.T) {
	env := setupApp(t)
	resp := env.json(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthRegisterAndLogin(t *testing.T) {
	env := setupApp(t)

	creds := map[string]string{"email": "test@example.com", "password": "password123"}
	resp := env.json(http.MethodPost, "/auth/register", "", creds)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Test Duplicate Registration
	resp = env.json(http.MethodPost, "/auth/register", "", creds)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Test Invalid Email
	resp = env.json(http.MethodPost, "/auth/register", "", map[string]string{"email": "nope", "password": "password123"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Test unreadable body
	resp = env.do(http.MethodPost, "/auth/login", "", strings.NewReader("{not json"), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.NotEmpty(t, env.login("test@example.com", "password123"))

	resp = env.json(http.MethodPost, "/auth/login", "", map[string]string{"email": "test@example.com", "password": "wrongpass"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCatalog(t *testing.T) {
	env := setupApp(t)
	p := env.seedProduct("Terraforming Mars", "70", "35", 4)
	env.seedProduct("Azul", "40", "20", 4)

	resp := env.json(http.MethodGet, "/products?search=Mars", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var products []models.Product
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
	require.Len(t, products, 1)
	assert.Equal(t, p.ID, products[0].ID)

	resp = env.json(http.MethodGet, fmt.Sprintf("/products/%d", p.ID), "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.json(http.MethodGet, "/products/9999", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.json(http.MethodGet, "/products?category=Vinyl", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCartRequiresAuthentication(t *testing.T) {
	env := setupApp(t)
	resp := env.json(http.MethodGet, "/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCartAndCheckoutFlow(t *testing.T) {
	env := setupApp(t)
	token := env.registerAndLogin("buyer@example.com")
	p := env.seedProduct("Hades", "50", "20", 3)

	resp := env.json(http.MethodPost, fmt.Sprintf("/cart/add/%d?qty=2", p.ID), token, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/cart", resp.Header.Get("Location"))
	res := decodeResult(t, resp)
	require.NotNil(t, res.Flash)
	assert.Equal(t, handlers.FlashOK, res.Flash.Kind)

	resp = env.json(http.MethodPost, "/cart/add/9999", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.json(http.MethodPost, fmt.Sprintf("/cart/add/%d?qty=0", p.ID), token, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, handlers.FlashError, decodeResult(t, resp).Flash.Kind)

	resp = env.json(http.MethodPost, "/checkout/confirm", token, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	location := resp.Header.Get("Location")
	assert.True(t, strings.HasPrefix(location, "/checkout/success/"))

	resp = env.json(http.MethodGet, location, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var order models.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&order))
	assert.Equal(t, "100.00", order.Total.StringFixed(2))
	assert.Equal(t, models.OrderStatusPaid, order.Status)

	// Another user cannot see the receipt.
	intruder := env.registerAndLogin("intruder@example.com")
	resp = env.json(http.MethodGet, location, intruder, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = env.json(http.MethodGet, fmt.Sprintf("/orders/%d", order.ID), intruder, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Empty cart: quiet redirect back to the checkout page.
	resp = env.json(http.MethodPost, "/checkout/confirm", token, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/checkout", resp.Header.Get("Location"))
	assert.Nil(t, decodeResult(t, resp).Flash)

	resp = env.json(http.MethodGet, "/orders/my", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history struct {
		Orders []models.Order  `json:"orders"`
		Profit decimal.Decimal `json:"profit"`
		Tier   models.Tier     `json:"tier"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	assert.Len(t, history.Orders, 1)
	assert.Equal(t, "60.00", history.Profit.StringFixed(2))
	assert.Equal(t, models.TierBronze, history.Tier)
}

func TestCheckoutInsufficientStock(t *testing.T) {
	env := setupApp(t)
	token := env.registerAndLogin("buyer@example.com")
	p := env.seedProduct("Rare Print", "30", "10", 1)

	resp := env.form(fmt.Sprintf("/cart/add/%d", p.ID), token, url.Values{"qty": {"2"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp = env.json(http.MethodPost, "/checkout/confirm", token, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/checkout", resp.Header.Get("Location"))
	res := decodeResult(t, resp)
	require.NotNil(t, res.Flash)
	assert.Equal(t, handlers.FlashError, res.Flash.Kind)
	assert.Equal(t, "Not enough stock for Rare Print.", res.Flash.Message)

	resp = env.json(http.MethodGet, "/cart", token, nil)
	var cart struct {
		Items []models.CartItem `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cart))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestCartUpdateAndRemove(t *testing.T) {
	env := setupApp(t)
	token := env.registerAndLogin("buyer@example.com")
	other := env.registerAndLogin("other@example.com")
	p := env.seedProduct("Hades", "50", "20", 3)

	env.json(http.MethodPost, fmt.Sprintf("/cart/add/%d", p.ID), token, nil)
	resp := env.json(http.MethodGet, "/cart", token, nil)
	var cart struct {
		Items []models.CartItem `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cart))
	require.Len(t, cart.Items, 1)
	lineID := cart.Items[0].ID

	// Someone else's line is left alone.
	resp = env.form(fmt.Sprintf("/cart/remove/%d", lineID), other, url.Values{})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp = env.form(fmt.Sprintf("/cart/update/%d", lineID), token, url.Values{"qty": {"5"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp = env.json(http.MethodGet, "/cart", token, nil)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cart))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)

	resp = env.form(fmt.Sprintf("/cart/remove/%d", lineID), token, url.Values{})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp = env.json(http.MethodGet, "/cart", token, nil)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cart))
	assert.Empty(t, cart.Items)
}

func TestAdminRoutesRequireOwner(t *testing.T) {
	env := setupApp(t)
	token := env.registerAndLogin("user@example.com")

	for _, path := range []string{"/products-admin", "/users-admin", "/emails-admin", "/orders-admin"} {
		resp := env.json(http.MethodGet, path, token, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)
	}
}

func TestProductAdmin(t *testing.T) {
	env := setupApp(t)
	owner := env.login(ownerEmail, ownerPassword)

	resp := env.json(http.MethodPost, "/products-admin", owner, map[string]interface{}{
		"name": "Spirit Island", "category": "Game", "buy_price": "40", "price": "80", "stock_qty": 2,
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/products-admin", resp.Header.Get("Location"))

	resp = env.json(http.MethodPost, "/products-admin", owner, map[string]interface{}{
		"name": "Cheap", "category": "Toy", "buy_price": "10", "price": "5", "stock_qty": 1,
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var invalid struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&invalid))
	assert.Equal(t, "Sell price should be ≥ buy price.", invalid.Errors["price"])

	resp = env.json(http.MethodGet, "/products-admin", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rows []struct {
		ID            uint            `json:"id"`
		Slug          string          `json:"slug"`
		MarginPerUnit decimal.Decimal `json:"margin_per_unit"`
		MarginPercent decimal.Decimal `json:"margin_percent"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "spirit-island", rows[0].Slug)
	assert.Equal(t, "40.00", rows[0].MarginPerUnit.StringFixed(2))
	assert.Equal(t, "50.00", rows[0].MarginPercent.StringFixed(2))
	id := rows[0].ID

	resp = env.json(http.MethodPost, fmt.Sprintf("/products-admin/%d", id), owner, map[string]interface{}{
		"name": "Spirit Island", "category": "Game", "buy_price": "40", "price": "90", "stock_qty": 2,
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "Updated Spirit Island.", decodeResult(t, resp).Flash.Message)

	// A product with order history cannot be deleted.
	buyer := env.registerAndLogin("buyer@example.com")
	env.json(http.MethodPost, fmt.Sprintf("/cart/add/%d", id), buyer, nil)
	env.json(http.MethodPost, "/checkout/confirm", buyer, nil)
	resp = env.form(fmt.Sprintf("/products-admin/%d/delete", id), owner, url.Values{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	spare := env.seedProduct("Spare", "10", "5", 1)
	resp = env.form(fmt.Sprintf("/products-admin/%d/delete", spare.ID), owner, url.Values{})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp = env.json(http.MethodGet, fmt.Sprintf("/products-admin/%d", spare.ID), owner, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUsersAdmin(t *testing.T) {
	env := setupApp(t)
	owner := env.login(ownerEmail, ownerPassword)
	env.registerAndLogin("staff@example.com")
	staff, err := env.app.Store.Users.GetByEmail(context.Background(), "staff@example.com")
	require.NoError(t, err)

	resp := env.form(fmt.Sprintf("/users-admin/%s/role", staff.ID), owner, url.Values{"role": {"Owner"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	res := decodeResult(t, resp)
	assert.Equal(t, handlers.FlashOK, res.Flash.Kind)
	assert.Equal(t, "Role for staff@example.com set to Owner.", res.Flash.Message)

	resp = env.form(fmt.Sprintf("/users-admin/%s/role", staff.ID), owner, url.Values{"role": {"Janitor"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, handlers.FlashError, decodeResult(t, resp).Flash.Kind)

	resp = env.form("/users-admin/missing/role", owner, url.Values{"role": {"User"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "User not found.", decodeResult(t, resp).Flash.Message)

	resp = env.json(http.MethodGet, fmt.Sprintf("/users-admin/history/%s", staff.ID), owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.json(http.MethodGet, "/users-admin/history/missing", owner, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.form(fmt.Sprintf("/users-admin/%s/delete", staff.ID), owner, url.Values{})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "Deleted staff@example.com.", decodeResult(t, resp).Flash.Message)
}

func TestEmailsAdmin(t *testing.T) {
	env := setupApp(t)
	owner := env.login(ownerEmail, ownerPassword)
	env.registerAndLogin("fan@example.com")

	blast := map[string]string{"target": "Bronze", "subject": "New arrivals", "body": "Come and see."}
	resp := env.json(http.MethodPost, "/emails-admin/preview", owner, blast)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var preview struct {
		Recipients     []string `json:"recipients"`
		RecipientCount int      `json:"recipient_count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&preview))
	assert.Equal(t, []string{"fan@example.com", ownerEmail}, preview.Recipients)
	assert.Equal(t, 2, preview.RecipientCount)

	resp = env.json(http.MethodPost, "/emails-admin/send", owner, blast)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	res := decodeResult(t, resp)
	assert.Equal(t, "Sent to 2 recipient(s).", res.Flash.Message)
	assert.ElementsMatch(t, []string{"fan@example.com", ownerEmail}, env.sender.sent)

	blast["target"] = "Platinum"
	resp = env.json(http.MethodPost, "/emails-admin/send", owner, blast)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "No recipients match the selected audience.", decodeResult(t, resp).Flash.Message)

	resp = env.json(http.MethodPost, "/emails-admin/send", owner, map[string]string{"target": "Gold"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestDeletedAccountTokenIsRejected(t *testing.T) {
	env := setupApp(t)
	owner := env.login(ownerEmail, ownerPassword)
	token := env.registerAndLogin("ghost@example.com")
	p := env.seedProduct("Last Copy", "20", "10", 2)
	ghost, err := env.app.Store.Users.GetByEmail(context.Background(), "ghost@example.com")
	require.NoError(t, err)

	resp := env.json(http.MethodPost, fmt.Sprintf("/cart/add/%d", p.ID), token, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp = env.form(fmt.Sprintf("/users-admin/%s/delete", ghost.ID), owner, url.Values{})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp = env.json(http.MethodPost, fmt.Sprintf("/cart/add/%d?qty=2", p.ID), token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = env.json(http.MethodPost, "/checkout/confirm", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	stored, err := env.app.Store.Products.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.StockQty)
	orders, err := env.app.Store.Orders.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestDemotedOwnerLosesAdminAccess(t *testing.T) {
	env := setupApp(t)
	owner := env.login(ownerEmail, ownerPassword)
	env.registerAndLogin("deputy@example.com")
	deputy, err := env.app.Store.Users.GetByEmail(context.Background(), "deputy@example.com")
	require.NoError(t, err)

	resp := env.form(fmt.Sprintf("/users-admin/%s/role", deputy.ID), owner, url.Values{"role": {"Owner"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	deputyToken := env.login("deputy@example.com", "password123")

	resp = env.json(http.MethodGet, "/users-admin", deputyToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.form(fmt.Sprintf("/users-admin/%s/role", deputy.ID), owner, url.Values{"role": {"User"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp = env.json(http.MethodGet, "/users-admin", deputyToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
