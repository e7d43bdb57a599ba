package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/wisdom/internal/server/middleware"
	"github.com/OFFIS-RIT/wisdom/internal/util"
	"github.com/OFFIS-RIT/wisdom/pkg/analysis"
	"github.com/OFFIS-RIT/wisdom/pkg/leaselock"
	"github.com/OFFIS-RIT/wisdom/pkg/logger"
	redisstore "github.com/OFFIS-RIT/wisdom/pkg/store/redis"
)

type messageResponse struct {
	Message string `json:"message"`
}

func app(c echo.Context) *middleware.App {
	return c.(*middleware.AppContext).App
}

// bindAndValidate binds path params and body into data and validates it.
func bindAndValidate(c echo.Context, data any) error {
	if err := c.Bind(data); err != nil {
		return err
	}
	return c.Validate(data)
}

func badRequest(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
}

func validSessionID(id string) bool {
	return util.IsNanoid(id)
}

func decayOrDefault(c echo.Context, decay *float64) *float64 {
	if decay != nil {
		return decay
	}
	return app(c).DecayFactor
}

// analysisError maps an analysis failure to a response.
func analysisError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, analysis.ErrInvalidDecay):
		return c.JSON(http.StatusBadRequest, messageResponse{Message: err.Error()})
	case errors.Is(err, redisstore.ErrSessionBusy), errors.Is(err, leaselock.ErrBusy):
		return c.JSON(http.StatusConflict, messageResponse{Message: "Session is busy"})
	case errors.Is(err, redisstore.ErrLockLost), errors.Is(err, leaselock.ErrLost):
		return c.JSON(http.StatusConflict, messageResponse{Message: "Session lock was lost, retry the request"})
	default:
		logger.Error("[Server] Session request failed", "err", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
	}
}
