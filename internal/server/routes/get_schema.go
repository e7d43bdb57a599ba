package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/wisdom/pkg/report"
)

func GetSchemaHandler(c echo.Context) error {
	schema, err := report.Schema(c.Param("document"))
	if errors.Is(err, report.ErrUnknownDocument) {
		return c.JSON(http.StatusNotFound, messageResponse{Message: err.Error()})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusOK, schema)
}
