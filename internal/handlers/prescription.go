package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/sacredheart/pharmacy_shop/internal/logging"
	"github.com/sacredheart/pharmacy_shop/internal/models"
	"github.com/sacredheart/pharmacy_shop/internal/mykafka"
	"github.com/sacredheart/pharmacy_shop/internal/ocr"
	"github.com/sacredheart/pharmacy_shop/internal/service/token"
)

const maxPrescriptionImageSize = 10 << 20 // 10MB

type PrescriptionHandler struct {
	DB        *gorm.DB
	Producer  *mykafka.Producer
	Extractor ocr.Extractor
}

func (h *PrescriptionHandler) GetPrescriptions(c echo.Context) error {
	userID, ok := token.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}

	var prescriptions []models.Prescription
	if err := h.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&prescriptions).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot fetch prescriptions")
	}
	return c.JSON(http.StatusOK, prescriptions)
}

// Upload accepts a multipart prescription image, stores it inline as a data
// URI and runs the OCR collaborator to suggest catalog matches.
func (h *PrescriptionHandler) Upload(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "prescription.upload")

	userID, ok := token.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no image uploaded")
	}
	if fileHeader.Size > maxPrescriptionImageSize {
		return echo.NewHTTPError(http.StatusBadRequest, "image too large")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot read image")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxPrescriptionImageSize))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot read image")
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	imageURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)

	extracted, err := h.Extractor.Extract(ctx, data, mimeType)
	if err != nil {
		l.Error("upload_failed", "status", 500, "reason", "extraction failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot process prescription")
	}

	names := make([]string, 0, len(extracted))
	for _, m := range extracted {
		names = append(names, m.Name)
	}
	extractedJSON, err := json.Marshal(extracted)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot encode extraction result")
	}

	prescription := models.Prescription{
		UserID:             userID,
		ImageURL:           imageURL,
		OCRText:            strings.Join(names, ", "),
		ExtractedMedicines: string(extractedJSON),
		Status:             "pending",
	}
	if err := h.DB.Create(&prescription).Error; err != nil {
		l.Error("upload_failed", "status", 500, "reason", "cannot store prescription", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot store prescription")
	}

	h.publish(c, map[string]any{
		"type":           "prescription_uploaded",
		"prescriptionID": prescription.ID,
		"userID":         userID,
	}, userID)

	l.Info("upload_success", "prescriptionID", prescription.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"prescription":        prescription,
		"extracted_medicines": extracted,
	})
}

func (h *PrescriptionHandler) publish(c echo.Context, event map[string]any, userID uint) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "prescription_events", fmt.Sprint(userID), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}
