package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"marketplace/internal/entity"
	"marketplace/internal/service"
)

type OrderHandler struct {
	orders OrderService
}

func NewOrderHandler(orders OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// CreateOrder places a guest or signed-in checkout --> POST /orders
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	req := service.CheckoutRequest{}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request payload")
	}
	req.IdempotencyKey = c.Request().Header.Get("Idempotency-Key")

	orders, err := h.orders.CreateOrder(c.Request().Context(), requester(c), req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"orders": orders})
}

// ListOrders --> GET /orders
func (h *OrderHandler) ListOrders(c echo.Context) error {
	orders, err := h.orders.ListUserOrders(c.Request().Context(), requester(c))
	if err != nil {
		return errorResponse(c, err)
	}
	if orders == nil {
		orders = []*entity.Order{}
	}
	return c.JSON(http.StatusOK, map[string]any{"orders": orders})
}

// GetOrder --> GET /orders/:number
func (h *OrderHandler) GetOrder(c echo.Context) error {
	order, err := h.orders.GetOrder(c.Request().Context(), requester(c), c.Param("number"))
	return orderResponse(c, order, err)
}

// CancelOrder --> POST /orders/:number/cancel
func (h *OrderHandler) CancelOrder(c echo.Context) error {
	order, err := h.orders.Cancel(c.Request().Context(), requester(c), c.Param("number"))
	return orderResponse(c, order, err)
}

// UpdateStatus --> PUT /orders/:number/status
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	body := struct {
		Status entity.OrderStatus `json:"status"`
	}{}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "Invalid request payload")
	}
	order, err := h.orders.UpdateStatus(c.Request().Context(), requester(c), c.Param("number"), body.Status)
	return orderResponse(c, order, err)
}

// FulfillOrder --> POST /orders/:number/fulfill
func (h *OrderHandler) FulfillOrder(c echo.Context) error {
	body := struct {
		TrackingNumber string `json:"tracking_number"`
	}{}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "Invalid request payload")
	}
	order, err := h.orders.Fulfill(c.Request().Context(), requester(c), c.Param("number"), body.TrackingNumber)
	return orderResponse(c, order, err)
}

// RefundOrder --> POST /orders/:number/refund
func (h *OrderHandler) RefundOrder(c echo.Context) error {
	order, err := h.orders.Refund(c.Request().Context(), requester(c), c.Param("number"))
	return orderResponse(c, order, err)
}

// RecordPayment --> POST /orders/:number/payment
func (h *OrderHandler) RecordPayment(c echo.Context) error {
	body := struct {
		Reference string `json:"payment_reference"`
	}{}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "Invalid request payload")
	}
	order, err := h.orders.RecordPayment(c.Request().Context(), requester(c), c.Param("number"), body.Reference)
	return orderResponse(c, order, err)
}

func orderResponse(c echo.Context, order *entity.Order, err error) error {
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, order)
}
