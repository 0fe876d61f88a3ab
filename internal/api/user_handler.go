package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"marketplace/internal/service"
)

type UserHandler struct {
	users UserService
}

// NewUserHandler creates a new instance of UserHandler
func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

// CreateUser registers an account --> POST /users
func (h *UserHandler) CreateUser(c echo.Context) error {
	req := service.RegisterRequest{}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request payload")
	}

	user, err := h.users.Register(c.Request().Context(), req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, user)
}

// Login --> POST /login
func (h *UserHandler) Login(c echo.Context) error {
	login := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{}
	if err := c.Bind(&login); err != nil {
		return badRequest(c, "Invalid request payload")
	}

	token, err := h.users.Login(c.Request().Context(), login.Email, login.Password)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

// Logout ends the current session --> POST /logout
func (h *UserHandler) Logout(c echo.Context) error {
	if err := h.users.Logout(c.Request().Context(), tokenID(c)); err != nil {
		return errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeactivateUser --> POST /users/:id/deactivate
func (h *UserHandler) DeactivateUser(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Invalid ID")
	}
	if err := h.users.Deactivate(c.Request().Context(), requester(c), id); err != nil {
		return errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
