package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Orders  *OrderHandler
	Users   *UserHandler
	Catalog *CatalogHandler
}

// RegisterRoutes mounts every endpoint on e.
func RegisterRoutes(e *echo.Echo, h Handlers, auth *Authenticator) {
	required := auth.Required()

	e.POST("/orders", h.Orders.CreateOrder, auth.Optional()...)
	e.GET("/orders", h.Orders.ListOrders, required...)
	e.GET("/orders/:number", h.Orders.GetOrder, required...)
	e.POST("/orders/:number/cancel", h.Orders.CancelOrder, required...)
	e.PUT("/orders/:number/status", h.Orders.UpdateStatus, required...)
	e.POST("/orders/:number/fulfill", h.Orders.FulfillOrder, required...)
	e.POST("/orders/:number/refund", h.Orders.RefundOrder, required...)
	e.POST("/orders/:number/payment", h.Orders.RecordPayment, required...)

	e.POST("/users", h.Users.CreateUser)
	e.POST("/login", h.Users.Login)
	e.POST("/logout", h.Users.Logout, required...)
	e.POST("/users/:id/deactivate", h.Users.DeactivateUser, required...)

	e.GET("/products/:id", h.Catalog.GetProduct)
	e.GET("/stores/:id/products", h.Catalog.ListStoreProducts)
	e.POST("/products/:id/images", h.Catalog.UploadProductImage, required...)
	e.POST("/cart/items", h.Catalog.AddCartItem, required...)
	e.GET("/cart", h.Catalog.GetCart, required...)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"service": "marketplace",
			"time":    time.Now().Format(time.RFC3339),
		})
	})
}
