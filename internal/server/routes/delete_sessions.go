package routes

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/wisdom/internal/storage"
	"github.com/OFFIS-RIT/wisdom/pkg/logger"
)

// DeleteSessionHandler drops the stored snapshot of a session and, when S3
// is configured, its uploaded reports.
func DeleteSessionHandler(c echo.Context) error {
	sessionID := c.Param("id")
	if !validSessionID(sessionID) {
		return badRequest(c)
	}

	ctx := c.Request().Context()
	a := app(c)

	err := a.Store.WithSession(ctx, sessionID, func(ctx context.Context) error {
		return a.Store.Delete(ctx, sessionID)
	})
	if err != nil {
		return analysisError(c, err)
	}

	if a.S3 != nil {
		if err := storage.DeleteFolder(ctx, a.S3, storage.SessionPrefix(sessionID)); err != nil {
			logger.Error("[Server] Failed to delete session reports", "session", sessionID, "err", err)
			return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
		}
	}

	logger.Info("[Server] Session deleted", "session", sessionID)
	return c.NoContent(http.StatusNoContent)
}
