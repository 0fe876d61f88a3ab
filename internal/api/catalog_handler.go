package api

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"marketplace/internal/service"
)

const maxImageBytes = 10 << 20

type CatalogHandler struct {
	catalog CatalogService
	carts   CartService
}

func NewCatalogHandler(catalog CatalogService, carts CartService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, carts: carts}
}

// GetProduct --> GET /products/:id
func (h *CatalogHandler) GetProduct(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid ID")
	}
	product, err := h.catalog.GetProduct(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

// ListStoreProducts --> GET /stores/:id/products
func (h *CatalogHandler) ListStoreProducts(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid ID")
	}
	products, err := h.catalog.ListStoreProducts(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	if products == nil {
		products = []*service.ProductView{}
	}
	return c.JSON(http.StatusOK, map[string]any{"products": products})
}

// UploadProductImage takes a multipart "image" file --> POST /products/:id/images
func (h *CatalogHandler) UploadProductImage(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid ID")
	}
	file, err := c.FormFile("image")
	if err != nil {
		return badRequest(c, "image file is required")
	}
	if file.Size > maxImageBytes {
		return badRequest(c, "image is too large")
	}
	src, err := file.Open()
	if err != nil {
		return errorResponse(c, err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxImageBytes+1))
	if err != nil {
		return errorResponse(c, err)
	}

	image, err := h.catalog.AttachProductImage(c.Request().Context(), requester(c), id, file.Filename, data)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, image)
}

// AddCartItem --> POST /cart/items
func (h *CatalogHandler) AddCartItem(c echo.Context) error {
	line := service.CartLine{}
	if err := c.Bind(&line); err != nil {
		return badRequest(c, "Invalid request payload")
	}
	cart, err := h.carts.AddItem(c.Request().Context(), requester(c), line)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, cart)
}

// GetCart --> GET /cart
func (h *CatalogHandler) GetCart(c echo.Context) error {
	cart, err := h.carts.GetCart(c.Request().Context(), requester(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, cart)
}
