package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/sacredheart/pharmacy_shop/internal/handlers"
	"github.com/sacredheart/pharmacy_shop/internal/handlers/order"
	"github.com/sacredheart/pharmacy_shop/internal/middleware/csrf"
	"github.com/sacredheart/pharmacy_shop/internal/service/token"
)

type Deps struct {
	DB                  *gorm.DB
	AuthHandler         *handlers.AuthHandler
	CatalogHandler      *handlers.CatalogHandler
	OrderHandler        *order.OrderHandler
	PrescriptionHandler *handlers.PrescriptionHandler
	SearchHandler       *handlers.SearchHandler
	TokenService        *token.TokenService
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.LogOut)

	v1.GET("/categories", d.CatalogHandler.GetCategories)
	v1.GET("/search", d.SearchHandler.Handler)

	medicines := v1.Group("/medicines")
	medicines.GET("", d.CatalogHandler.GetMedicines)
	medicines.GET("/:id", d.CatalogHandler.GetMedicine)

	// Guest checkout is allowed, the order handler picks up the identity
	// when a valid cookie is present.
	v1.POST("/orders", d.OrderHandler.CreateOrder, d.TokenService.OptionalAuth)
	v1.GET("/orders", d.OrderHandler.GetMyOrders, d.TokenService.AutoRefreshMiddleware)

	prescriptions := v1.Group("/prescriptions", d.TokenService.AutoRefreshMiddleware)
	prescriptions.GET("", d.PrescriptionHandler.GetPrescriptions)
	prescriptions.POST("/upload", d.PrescriptionHandler.Upload)

	// The dashboard is cookie-authed, state-changing requests must carry
	// the double-submit token on top of the admin role check.
	admin := v1.Group("/admin", d.TokenService.AutoRefreshMiddlewareAdmin, csrf.Middleware(csrf.Config{}))
	admin.GET("/orders", d.OrderHandler.GetAllOrders)
	admin.PATCH("/orders/:id", d.OrderHandler.UpdateStatus)
	admin.POST("/categories", d.CatalogHandler.CreateCategory)
	admin.POST("/medicines", d.CatalogHandler.CreateMedicine)
	admin.PATCH("/medicines/:id", d.CatalogHandler.PatchMedicine)
	admin.GET("/medicines/low-stock", d.CatalogHandler.LowStockMedicines)
}
