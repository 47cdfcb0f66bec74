package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sacredheart/pharmacy_shop/internal/logging"
	"github.com/sacredheart/pharmacy_shop/internal/models"
	"github.com/sacredheart/pharmacy_shop/internal/mykafka"
	"github.com/sacredheart/pharmacy_shop/internal/service/search"
	"github.com/sacredheart/pharmacy_shop/internal/util"
)

const DefaultLowStockThreshold = 10

type CatalogHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	ES       *elasticsearch.Client
	Index    string
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *CatalogHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "catalog_events", fmt.Sprint(event["medicineID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

// index mirrors the medicine into Elasticsearch. Search stays eventually
// consistent with the catalog, failures only get logged.
func (h *CatalogHandler) index(c echo.Context, med *models.Medicine) {
	if h.ES == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := search.IndexMedicine(ctx, h.ES, h.Index, med); err != nil {
		c.Logger().Errorf("ES index error: %v", err)
	}
}

func (h *CatalogHandler) GetCategories(c echo.Context) error {
	var categories []models.Category
	if err := h.DB.Order("name ASC").Find(&categories).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot fetch categories")
	}
	return c.JSON(http.StatusOK, categories)
}

func (h *CatalogHandler) CreateCategory(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
		Icon string `json:"icon"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	category := models.Category{Name: req.Name, Icon: req.Icon}
	if err := h.DB.Create(&category).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create category")
	}
	return c.JSON(http.StatusCreated, category)
}

func (h *CatalogHandler) GetMedicines(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_medicines")

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	query := h.DB.Model(&models.Medicine{})
	if q := c.QueryParam("search"); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(generic_name) LIKE ? OR LOWER(manufacturer) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if categoryID := c.QueryParam("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		l.Error("get_medicines_failed", "status", 500, "reason", "cannot count medicines", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot count medicines")
	}

	var items []models.Medicine
	if err := query.Order("name ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		l.Error("get_medicines_failed", "status", 500, "reason", "cannot fetch medicines", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot fetch medicines")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *CatalogHandler) GetMedicine(c echo.Context) error {
	var medicine models.Medicine
	if err := h.DB.Where("id = ?", c.Param("id")).First(&medicine).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "medicine not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot fetch medicine")
	}
	return c.JSON(http.StatusOK, medicine)
}

func (h *CatalogHandler) CreateMedicine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.create_medicine")

	var req struct {
		Name                 string          `json:"name"`
		GenericName          string          `json:"generic_name"`
		Manufacturer         string          `json:"manufacturer"`
		CategoryID           string          `json:"category_id"`
		Dosage               string          `json:"dosage"`
		Form                 string          `json:"form"`
		PackSize             string          `json:"pack_size"`
		Price                decimal.Decimal `json:"price"`
		MRP                  decimal.Decimal `json:"mrp"`
		Stock                int             `json:"stock"`
		RequiresPrescription bool            `json:"requires_prescription"`
		IsScheduleH          bool            `json:"is_schedule_h"`
		Description          string          `json:"description"`
		ImageURL             string          `json:"image_url"`
	}
	if err := c.Bind(&req); err != nil {
		l.Error("create_medicine_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if req.Price.IsNegative() || req.Stock < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "price and stock cannot be negative")
	}

	var categoryID *string
	if req.CategoryID != "" {
		categoryID = &req.CategoryID
	}

	med := models.Medicine{
		Name:                 req.Name,
		GenericName:          req.GenericName,
		Manufacturer:         req.Manufacturer,
		CategoryID:           categoryID,
		Dosage:               req.Dosage,
		Form:                 req.Form,
		PackSize:             req.PackSize,
		Price:                req.Price,
		MRP:                  req.MRP,
		Stock:                req.Stock,
		RequiresPrescription: req.RequiresPrescription,
		IsScheduleH:          req.IsScheduleH,
		Description:          req.Description,
		ImageURL:             req.ImageURL,
	}
	if err := h.DB.Create(&med).Error; err != nil {
		l.Error("create_medicine_failed", "status", 500, "reason", "cannot create medicine", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create medicine")
	}

	h.publish(c, map[string]any{
		"type":       "medicine_created",
		"medicineID": med.ID,
		"name":       med.Name,
	})
	h.index(c, &med)

	l.Info("create_medicine_success", "medicineID", med.ID)
	return c.JSON(http.StatusCreated, med)
}

// PatchMedicine updates only the supplied fields; the admin dashboard mostly
// touches stock and price.
func (h *CatalogHandler) PatchMedicine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.patch_medicine")

	var req struct {
		Stock       *int             `json:"stock"`
		Price       *decimal.Decimal `json:"price"`
		MRP         *decimal.Decimal `json:"mrp"`
		Description *string          `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		l.Error("patch_medicine_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var med models.Medicine
	if err := h.DB.Where("id = ?", c.Param("id")).First(&med).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("patch_medicine_failed", "status", 404, "reason", "medicine not found")
			return echo.NewHTTPError(http.StatusNotFound, "medicine not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot fetch medicine")
	}

	if req.Stock != nil {
		if *req.Stock < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "stock cannot be negative")
		}
		med.Stock = *req.Stock
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return echo.NewHTTPError(http.StatusBadRequest, "price cannot be negative")
		}
		med.Price = *req.Price
	}
	if req.MRP != nil {
		med.MRP = *req.MRP
	}
	if req.Description != nil {
		med.Description = *req.Description
	}

	if err := h.DB.Save(&med).Error; err != nil {
		l.Error("patch_medicine_failed", "status", 500, "reason", "cannot save medicine", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot save medicine")
	}

	h.publish(c, map[string]any{
		"type":       "medicine_updated",
		"medicineID": med.ID,
		"name":       med.Name,
		"stock":      med.Stock,
	})
	h.index(c, &med)

	l.Info("patch_medicine_success", "medicineID", med.ID)
	return c.JSON(http.StatusOK, med)
}

// LowStockMedicines lists medicines at or below the threshold for dashboard
// alerts.
func (h *CatalogHandler) LowStockMedicines(c echo.Context) error {
	threshold := parseIntDefault(c.QueryParam("threshold"), DefaultLowStockThreshold)

	var items []models.Medicine
	if err := h.DB.Where("stock <= ?", threshold).Order("stock ASC").Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot fetch low stock medicines")
	}
	return c.JSON(http.StatusOK, items)
}
