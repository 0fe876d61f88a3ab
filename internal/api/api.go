package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"marketplace/internal/entity"
	"marketplace/internal/service"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "api").Logger()

type OrderService interface {
	CreateOrder(ctx context.Context, requester *service.Requester, req service.CheckoutRequest) ([]*entity.Order, error)
	GetOrder(ctx context.Context, requester *service.Requester, number string) (*entity.Order, error)
	ListUserOrders(ctx context.Context, requester *service.Requester) ([]*entity.Order, error)
	Cancel(ctx context.Context, requester *service.Requester, number string) (*entity.Order, error)
	UpdateStatus(ctx context.Context, requester *service.Requester, number string, target entity.OrderStatus) (*entity.Order, error)
	Fulfill(ctx context.Context, requester *service.Requester, number, trackingNumber string) (*entity.Order, error)
	Refund(ctx context.Context, requester *service.Requester, number string) (*entity.Order, error)
	RecordPayment(ctx context.Context, requester *service.Requester, number, reference string) (*entity.Order, error)
}

type UserService interface {
	Register(ctx context.Context, req service.RegisterRequest) (*entity.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, tokenID string) error
	Deactivate(ctx context.Context, requester *service.Requester, userID int64) error
	ValidateSession(ctx context.Context, tokenID string) (bool, error)
}

type CatalogService interface {
	GetProduct(ctx context.Context, id int64) (*service.ProductView, error)
	ListStoreProducts(ctx context.Context, storeID int64) ([]*service.ProductView, error)
	AttachProductImage(ctx context.Context, requester *service.Requester, productID int64, filename string, data []byte) (*entity.ProductImage, error)
}

type CartService interface {
	AddItem(ctx context.Context, requester *service.Requester, line service.CartLine) (*entity.Cart, error)
	GetCart(ctx context.Context, requester *service.Requester) (*entity.Cart, error)
}

var kindStatus = map[service.Kind]int{
	service.KindValidation: http.StatusBadRequest,
	service.KindNotFound:   http.StatusNotFound,
	service.KindConflict:   http.StatusConflict,
	service.KindState:      http.StatusUnprocessableEntity,
	service.KindPermission: http.StatusForbidden,
}

// errorResponse writes domain errors with their message and code. Anything
// else is logged and reported as a bare 500.
func errorResponse(c echo.Context, err error) error {
	var domainErr *service.Error
	if errors.As(err, &domainErr) {
		status, ok := kindStatus[domainErr.Kind]
		if !ok {
			status = http.StatusBadRequest
		}
		if errors.Is(err, service.ErrInvalidCredentials) {
			status = http.StatusUnauthorized
		}
		return c.JSON(status, map[string]string{"error": domainErr.Message, "code": domainErr.Code})
	}

	logger.Error().Err(err).Str("path", c.Path()).Msg("Unhandled error")
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}

func paramID(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// requester returns the caller set by the JWT middleware, or nil for guests.
func requester(c echo.Context) *service.Requester {
	token, ok := c.Get(contextKey).(*jwt.Token)
	if !ok || token == nil {
		return nil
	}
	claims, ok := token.Claims.(*service.Claims)
	if !ok {
		return nil
	}
	return claims.Requester()
}

func tokenID(c echo.Context) string {
	token, ok := c.Get(contextKey).(*jwt.Token)
	if !ok || token == nil {
		return ""
	}
	if claims, ok := token.Claims.(*service.Claims); ok {
		return claims.ID
	}
	return ""
}
