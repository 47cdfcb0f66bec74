package order

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// generateOrderNumber builds a short human-legible token: "SH" plus the
// current millisecond timestamp in base36 and a random hex suffix. The
// orders table carries a unique index, CreateOrder retries on collision.
func generateOrderNumber() string {
	timestamp := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	suffix := make([]byte, 2)
	rand.Read(suffix)
	return "SH" + timestamp + strings.ToUpper(hex.EncodeToString(suffix))
}

func (h *OrderHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["orderID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}
