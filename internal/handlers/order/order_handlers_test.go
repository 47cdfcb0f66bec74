package order

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sacredheart/pharmacy_shop/internal/models"
	"github.com/sacredheart/pharmacy_shop/internal/mykafka"
)

func InitTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
		return nil
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Medicine{},
		&models.Prescription{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

func newOrderHandler(db *gorm.DB) *OrderHandler {
	return &OrderHandler{DB: db, Producer: &mykafka.Producer{}}
}

func seedMedicine(t *testing.T, db *gorm.DB, name string, price int64, stock int, requiresRx bool) models.Medicine {
	med := models.Medicine{
		Name:                 name,
		Price:                decimal.NewFromInt(price),
		MRP:                  decimal.NewFromInt(price + 10),
		Stock:                stock,
		RequiresPrescription: requiresRx,
	}
	require.NoError(t, db.Create(&med).Error)
	return med
}

func postOrder(t *testing.T, h *OrderHandler, payload map[string]interface{}, userID *uint) (*httptest.ResponseRecorder, error) {
	bodyBytes, _ := json.Marshal(payload)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(bodyBytes))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != nil {
		c.Set("userID", *userID)
		c.Set("role", "user")
	}

	return rec, h.CreateOrder(c)
}

func orderPayload(med models.Medicine, quantity int) map[string]interface{} {
	price := med.Price
	subtotal := price.Mul(decimal.NewFromInt(int64(quantity)))
	return map[string]interface{}{
		"customer_name":  "Ravi Kumar",
		"customer_phone": "9876543210",
		"delivery_type":  "pickup",
		"items": []map[string]interface{}{
			{"medicine_id": med.ID, "quantity": quantity, "price": price},
		},
		"subtotal":     subtotal,
		"delivery_fee": decimal.Zero,
		"total":        subtotal,
	}
}

func TestCreateOrder(t *testing.T) {
	db := InitTestDB(t)
	h := newOrderHandler(db)

	med := seedMedicine(t, db, "Paracetamol 500mg", 25, 10, false)

	rec, err := postOrder(t, h, orderPayload(med, 3), nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	var created models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.OrderNumber)
	require.Equal(t, models.OrderStatusPending, created.Status)
	require.Nil(t, created.UserID)
	require.Len(t, created.Items, 1)
	require.Equal(t, "Paracetamol 500mg", created.Items[0].MedicineName)
	require.Equal(t, 3, created.Items[0].Quantity)
	require.True(t, created.Items[0].Total.Equal(decimal.NewFromInt(75)))

	var stored models.Order
	require.NoError(t, db.Where("id = ?", created.ID).First(&stored).Error)
	require.Nil(t, stored.PrescriptionID, "no prescription means NULL, not an empty id")

	var after models.Medicine
	require.NoError(t, db.Where("id = ?", med.ID).First(&after).Error)
	require.Equal(t, 7, after.Stock)
}

func TestCreateOrderLoggedInUser(t *testing.T) {
	db := InitTestDB(t)
	h := newOrderHandler(db)

	med := seedMedicine(t, db, "Dolo 650", 32, 50, false)

	userID := uint(42)
	rec, err := postOrder(t, h, orderPayload(med, 1), &userID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	var created models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotNil(t, created.UserID)
	require.Equal(t, uint(42), *created.UserID)
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	db := InitTestDB(t)
	h := newOrderHandler(db)

	med := seedMedicine(t, db, "Augmentin 625", 280, 2, false)

	_, err := postOrder(t, h, orderPayload(med, 5), nil)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)
	require.Contains(t, he.Message, "insufficient stock for Augmentin 625")

	var after models.Medicine
	require.NoError(t, db.Where("id = ?", med.ID).First(&after).Error)
	require.Equal(t, 2, after.Stock, "failed order must not touch stock")

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	require.Equal(t, int64(0), orderCount)
}

func TestCreateOrderLastUnit(t *testing.T) {
	db := InitTestDB(t)
	h := newOrderHandler(db)

	med := seedMedicine(t, db, "Refresh Tears", 195, 1, false)

	rec, err := postOrder(t, h, orderPayload(med, 1), nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	_, err = postOrder(t, h, orderPayload(med, 1), nil)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)

	var after models.Medicine
	require.NoError(t, db.Where("id = ?", med.ID).First(&after).Error)
	require.Equal(t, 0, after.Stock)

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	require.Equal(t, int64(1), orderCount)
}

func TestCreateOrderRollback(t *testing.T) {
	db := InitTestDB(t)
	h := newOrderHandler(db)

	plenty := seedMedicine(t, db, "Becosules Capsule", 32, 100, false)
	scarce := seedMedicine(t, db, "Moxifloxacin Eye Drops", 85, 1, false)

	payload := orderPayload(plenty, 2)
	payload["items"] = []map[string]interface{}{
		{"medicine_id": plenty.ID, "quantity": 2, "price": plenty.Price},
		{"medicine_id": scarce.ID, "quantity": 3, "price": scarce.Price},
	}

	_, err := postOrder(t, h, payload, nil)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)

	var after models.Medicine
	require.NoError(t, db.Where("id = ?", plenty.ID).First(&after).Error)
	require.Equal(t, 100, after.Stock, "earlier decrements must roll back")

	var itemCount int64
	require.NoError(t, db.Model(&models.OrderItem{}).Count(&itemCount).Error)
	require.Equal(t, int64(0), itemCount)
}

func TestCreateOrderPrescriptionRequired(t *testing.T) {
	db := InitTestDB(t)
	h := newOrderHandler(db)

	med := seedMedicine(t, db, "Azithromycin 500", 95, 80, true)

	_, err := postOrder(t, h, orderPayload(med, 1), nil)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)
	require.Contains(t, he.Message, "prescription required for Azithromycin 500")

	var after models.Medicine
	require.NoError(t, db.Where("id = ?", med.ID).First(&after).Error)
	require.Equal(t, 80, after.Stock)

	prescription := models.Prescription{UserID: 1, ImageURL: "data:image/png;base64,xyz", Status: "pending"}
	require.NoError(t, db.Create(&prescription).Error)

	payload := orderPayload(med, 1)
	payload["prescription_id"] = prescription.ID
	rec, err := postOrder(t, h, payload, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	var created models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	var stored models.Order
	require.NoError(t, db.Where("id = ?", created.ID).First(&stored).Error)
	require.NotNil(t, stored.PrescriptionID)
	require.Equal(t, prescription.ID, *stored.PrescriptionID)
}

func TestCreateOrderValidation(t *testing.T) {
	db := InitTestDB(t)
	h := newOrderHandler(db)

	med := seedMedicine(t, db, "Shelcal 500", 145, 90, false)

	cases := []struct {
		name    string
		mutate  func(map[string]interface{})
		message string
	}{
		{"missing name", func(p map[string]interface{}) { p["customer_name"] = "" }, "customer name is required"},
		{"missing phone", func(p map[string]interface{}) { p["customer_phone"] = "" }, "customer phone is required"},
		{"missing delivery type", func(p map[string]interface{}) { p["delivery_type"] = "" }, "delivery type is required"},
		{"bad delivery type", func(p map[string]interface{}) { p["delivery_type"] = "teleport" }, "invalid delivery type"},
		{"delivery without address", func(p map[string]interface{}) { p["delivery_type"] = "delivery" }, "delivery address is required"},
		{"empty items", func(p map[string]interface{}) { p["items"] = []map[string]interface{}{} }, "no items in order"},
		{"zero quantity", func(p map[string]interface{}) {
			p["items"] = []map[string]interface{}{{"medicine_id": med.ID, "quantity": 0, "price": med.Price}}
		}, "item quantity must be positive"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := orderPayload(med, 1)
			tc.mutate(payload)

			_, err := postOrder(t, h, payload, nil)
			he, ok := err.(*echo.HTTPError)
			require.True(t, ok, "expected HTTPError")
			require.Equal(t, http.StatusBadRequest, he.Code)
			require.Contains(t, he.Message, tc.message)
		})
	}

	payload := orderPayload(med, 1)
	payload["delivery_type"] = "delivery"
	payload["delivery_address"] = "12 MG Road, Bengaluru"
	payload["delivery_fee"] = decimal.NewFromInt(30)
	rec, err := postOrder(t, h, payload, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateOrderUnknownMedicine(t *testing.T) {
	db := InitTestDB(t)
	h := newOrderHandler(db)

	payload := map[string]interface{}{
		"customer_name":  "Ravi Kumar",
		"customer_phone": "9876543210",
		"delivery_type":  "pickup",
		"items": []map[string]interface{}{
			{"medicine_id": "00000000-0000-0000-0000-000000000000", "quantity": 1, "price": "10"},
		},
	}

	_, err := postOrder(t, h, payload, nil)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)
	require.Contains(t, he.Message, "medicine not found")
}

func TestGetMyOrders(t *testing.T) {
	db := InitTestDB(t)
	h := newOrderHandler(db)

	med := seedMedicine(t, db, "Omez 20", 85, 90, false)

	mine := uint(1)
	other := uint(2)
	_, err := postOrder(t, h, orderPayload(med, 1), &mine)
	require.NoError(t, err)
	_, err = postOrder(t, h, orderPayload(med, 1), &other)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("userID", mine)
	c.Set("role", "user")

	require.NoError(t, h.GetMyOrders(c))

	var orders []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 1)
	require.Equal(t, mine, *orders[0].UserID)
	require.Len(t, orders[0].Items, 1)
}

func TestGetAllOrders(t *testing.T) {
	db := InitTestDB(t)
	h := newOrderHandler(db)

	med := seedMedicine(t, db, "Pan 40", 95, 85, false)

	userID := uint(7)
	_, err := postOrder(t, h, orderPayload(med, 1), &userID)
	require.NoError(t, err)
	_, err = postOrder(t, h, orderPayload(med, 2), nil)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.GetAllOrders(c))

	var orders []models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
	require.Len(t, orders, 2)
}

func patchStatus(t *testing.T, h *OrderHandler, orderID, status string) (*httptest.ResponseRecorder, error) {
	body, _ := json.Marshal(map[string]string{"status": status})

	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/admin/orders/"+orderID, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(orderID)

	return rec, h.UpdateStatus(c)
}

func TestUpdateStatus(t *testing.T) {
	db := InitTestDB(t)
	h := newOrderHandler(db)

	med := seedMedicine(t, db, "Candid Cream", 65, 70, false)

	rec, err := postOrder(t, h, orderPayload(med, 1), nil)
	require.NoError(t, err)
	var created models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	for _, status := range []string{"confirmed", "processing", "ready", "out_for_delivery", "delivered"} {
		rec, err := patchStatus(t, h, created.ID, status)
		require.NoError(t, err, "transition to %s", status)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	_, err = patchStatus(t, h, created.ID, "pending")
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)
	require.Contains(t, he.Message, "cannot change status from delivered to pending")

	_, err = patchStatus(t, h, created.ID, "cancelled")
	he, ok = err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestUpdateStatusSkipAhead(t *testing.T) {
	db := InitTestDB(t)
	h := newOrderHandler(db)

	med := seedMedicine(t, db, "Evion 400", 35, 120, false)

	rec, err := postOrder(t, h, orderPayload(med, 1), nil)
	require.NoError(t, err)
	var created models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	_, err = patchStatus(t, h, created.ID, "delivered")
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)

	rec, err = patchStatus(t, h, created.ID, "cancelled")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateStatusBadInput(t *testing.T) {
	db := InitTestDB(t)
	h := newOrderHandler(db)

	_, err := patchStatus(t, h, "00000000-0000-0000-0000-000000000000", "shipped")
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusBadRequest, he.Code)
	require.Contains(t, he.Message, "invalid status")

	_, err = patchStatus(t, h, "00000000-0000-0000-0000-000000000000", "confirmed")
	he, ok = err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusNotFound, he.Code)
}
