package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"flexflow-api/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// httpError maps a domain error kind onto a status code and a stable message.
// Anything outside the taxonomy becomes a generic 500 so internals never leak
// to the caller; the original error is logged.
func httpError(c echo.Context, err error) error {
	var validation domain.ValidationError
	switch {
	case errors.As(err, &validation):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: validation.Reason})
	case errors.Is(err, domain.ErrInvalidToken), errors.Is(err, domain.ErrExpiredToken):
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
	default:
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}
