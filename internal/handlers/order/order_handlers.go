package order

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sacredheart/pharmacy_shop/internal/logging"
	"github.com/sacredheart/pharmacy_shop/internal/models"
	"github.com/sacredheart/pharmacy_shop/internal/mykafka"
	"github.com/sacredheart/pharmacy_shop/internal/service/token"
)

const createOrderAttempts = 3

type OrderHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

type orderItemRequest struct {
	MedicineID string          `json:"medicine_id"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

type createOrderRequest struct {
	CustomerName    string             `json:"customer_name"`
	CustomerPhone   string             `json:"customer_phone"`
	CustomerEmail   string             `json:"customer_email"`
	DeliveryType    string             `json:"delivery_type"`
	DeliveryAddress string             `json:"delivery_address"`
	PrescriptionID  string             `json:"prescription_id"`
	Notes           string             `json:"notes"`
	Items           []orderItemRequest `json:"items"`
	Subtotal        decimal.Decimal    `json:"subtotal"`
	DeliveryFee     decimal.Decimal    `json:"delivery_fee"`
	Total           decimal.Decimal    `json:"total"`
}

func validateCreateOrder(req *createOrderRequest) error {
	switch {
	case req.CustomerName == "":
		return echo.NewHTTPError(http.StatusBadRequest, "customer name is required")
	case req.CustomerPhone == "":
		return echo.NewHTTPError(http.StatusBadRequest, "customer phone is required")
	case req.DeliveryType == "":
		return echo.NewHTTPError(http.StatusBadRequest, "delivery type is required")
	case len(req.Items) == 0:
		return echo.NewHTTPError(http.StatusBadRequest, "no items in order")
	}

	if req.DeliveryType != models.DeliveryTypePickup && req.DeliveryType != models.DeliveryTypeDelivery {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid delivery type")
	}
	if req.DeliveryType == models.DeliveryTypeDelivery && req.DeliveryAddress == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "delivery address is required")
	}

	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "item quantity must be positive")
		}
	}
	return nil
}

// CreateOrder turns a submitted cart snapshot into a durable order. Stock is
// taken with a conditional decrement inside one transaction, so two
// concurrent orders can never both take the last unit; any failure rolls the
// whole order back.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Error("create_order_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := validateCreateOrder(&req); err != nil {
		return err
	}

	// Re-fetch every medicine: the client's cached stock and flags may be
	// stale.
	medicines := make(map[string]*models.Medicine, len(req.Items))
	for _, item := range req.Items {
		var med models.Medicine
		if err := h.DB.Where("id = ?", item.MedicineID).First(&med).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				l.Warn("create_order_failed", "status", 400, "reason", "medicine not found", "medicineID", item.MedicineID)
				return echo.NewHTTPError(http.StatusBadRequest, "medicine not found: "+item.MedicineID)
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot fetch medicine")
		}
		medicines[item.MedicineID] = &med
	}

	// Policy check before any stock check: the client routes this error to
	// prescription upload, not checkout retry.
	if req.PrescriptionID == "" {
		for _, item := range req.Items {
			if med := medicines[item.MedicineID]; med.RequiresPrescription {
				l.Warn("create_order_failed", "status", 400, "reason", "prescription required", "medicineID", med.ID)
				return echo.NewHTTPError(http.StatusBadRequest, "prescription required for "+med.Name)
			}
		}
	}

	var userID *uint
	if id, ok := token.UserID(c); ok {
		userID = &id
	}

	// NULL, not the empty string, when no prescription accompanies the order.
	var prescriptionID *string
	if req.PrescriptionID != "" {
		prescriptionID = &req.PrescriptionID
	}

	var order models.Order
	for attempt := 0; attempt < createOrderAttempts; attempt++ {
		order = models.Order{
			OrderNumber:     generateOrderNumber(),
			UserID:          userID,
			CustomerName:    req.CustomerName,
			CustomerPhone:   req.CustomerPhone,
			CustomerEmail:   req.CustomerEmail,
			PrescriptionID:  prescriptionID,
			DeliveryType:    req.DeliveryType,
			DeliveryAddress: req.DeliveryAddress,
			Status:          models.OrderStatusPending,
			Subtotal:        req.Subtotal,
			DeliveryFee:     req.DeliveryFee,
			Total:           req.Total,
			Notes:           req.Notes,
		}

		txErr := h.DB.Transaction(func(tx *gorm.DB) error {
			for _, item := range req.Items {
				med := medicines[item.MedicineID]

				// Decrement only if enough stock remains; zero rows
				// affected means another order got there first.
				res := tx.Model(&models.Medicine{}).
					Where("id = ? AND stock >= ?", item.MedicineID, item.Quantity).
					UpdateColumn("stock", gorm.Expr("stock - ?", item.Quantity))
				if res.Error != nil {
					return res.Error
				}
				if res.RowsAffected == 0 {
					return echo.NewHTTPError(http.StatusBadRequest, "insufficient stock for "+med.Name)
				}
			}

			if err := tx.Create(&order).Error; err != nil {
				return err
			}

			for _, item := range req.Items {
				med := medicines[item.MedicineID]
				orderItem := models.OrderItem{
					OrderID:      order.ID,
					MedicineID:   med.ID,
					MedicineName: med.Name,
					Quantity:     item.Quantity,
					Price:        item.Price,
					Total:        item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
				}
				if err := tx.Create(&orderItem).Error; err != nil {
					return err
				}
				order.Items = append(order.Items, orderItem)
			}
			return nil
		})

		if txErr == nil {
			break
		}
		if errors.Is(txErr, gorm.ErrDuplicatedKey) && attempt < createOrderAttempts-1 {
			// Order number collided, roll the dice again.
			continue
		}

		var he *echo.HTTPError
		if errors.As(txErr, &he) {
			return he
		}
		l.Error("create_order_failed", "status", 500, "reason", "transaction failed", "error", txErr)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create order")
	}

	h.publish(c, map[string]any{
		"type":        "order_created",
		"orderID":     order.ID,
		"orderNumber": order.OrderNumber,
		"total":       order.Total,
	})

	l.Info("create_order_success", "orderID", order.ID, "orderNumber", order.OrderNumber)
	return c.JSON(http.StatusOK, order)
}

// GetMyOrders lists the caller's orders with nested items, newest first.
func (h *OrderHandler) GetMyOrders(c echo.Context) error {
	userID, ok := token.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}

	var orders []models.Order
	if err := h.DB.Preload("Items").Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot fetch orders")
	}
	return c.JSON(http.StatusOK, orders)
}

// GetAllOrders is the admin view over every order, newest first.
func (h *OrderHandler) GetAllOrders(c echo.Context) error {
	var orders []models.Order
	if err := h.DB.Preload("Items").Order("created_at DESC").Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot fetch orders")
	}
	return c.JSON(http.StatusOK, orders)
}

// UpdateStatus moves an order along the fulfilment pipeline. Transitions are
// forward-only, cancellation is allowed from any non-terminal status.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if !models.ValidStatus(req.Status) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid status: "+req.Status)
	}

	var order models.Order
	if err := h.DB.Where("id = ?", c.Param("id")).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot fetch order")
	}

	if !models.CanTransition(order.Status, req.Status) {
		l.Warn("update_status_failed", "status", 400, "reason", "invalid transition",
			"from", order.Status, "to", req.Status)
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("cannot change status from %s to %s", order.Status, req.Status))
	}

	order.Status = req.Status
	if err := h.DB.Save(&order).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update order")
	}

	h.publish(c, map[string]any{
		"type":    "order_status_updated",
		"orderID": order.ID,
		"status":  order.Status,
	})

	l.Info("update_status_success", "orderID", order.ID, "to", order.Status)
	return c.JSON(http.StatusOK, order)
}
