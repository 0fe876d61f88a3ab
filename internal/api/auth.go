package api

import (
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"marketplace/internal/service"
)

const contextKey = "user"

// Authenticator builds the JWT middlewares for protected and optionally
// authenticated routes.
type Authenticator struct {
	secret   []byte
	sessions UserService
}

func NewAuthenticator(secret string, sessions UserService) *Authenticator {
	return &Authenticator{secret: []byte(secret), sessions: sessions}
}

func (a *Authenticator) config(optional bool) echojwt.Config {
	return echojwt.Config{
		SigningKey:    a.secret,
		SigningMethod: jwt.SigningMethodHS256.Alg(),
		ContextKey:    contextKey,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return new(service.Claims)
		},
		ContinueOnIgnoredError: optional,
		ErrorHandler: func(c echo.Context, err error) error {
			var missing *echojwt.TokenExtractionError
			if optional && errors.As(err, &missing) {
				return nil
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized").SetInternal(err)
		},
	}
}

// Required rejects requests without a valid, live token.
func (a *Authenticator) Required() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{echojwt.WithConfig(a.config(false)), a.session}
}

// Optional lets requests without a token through as guests. A token that is
// present must still be valid.
func (a *Authenticator) Optional() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{echojwt.WithConfig(a.config(true)), a.session}
}

// session rejects tokens whose session has been ended by logout.
func (a *Authenticator) session(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := tokenID(c)
		if id == "" || a.sessions == nil {
			return next(c)
		}
		live, err := a.sessions.ValidateSession(c.Request().Context(), id)
		if err != nil {
			return errorResponse(c, err)
		}
		if !live {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "session expired"})
		}
		return next(c)
	}
}
