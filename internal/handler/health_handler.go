package handler

import (
	"accounts/internal/response"
	"accounts/internal/usecase"

	"github.com/labstack/echo/v4"
)

func RegisterHealthRoutes(e *echo.Echo) {
	e.GET("/", func(c echo.Context) error {
		return response.OK(c, usecase.CodeOK, usecase.MsgSuccess, "Hello, World!")
	})
}
