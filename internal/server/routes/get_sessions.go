package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/wisdom/internal/storage"
	"github.com/OFFIS-RIT/wisdom/internal/util"
	"github.com/OFFIS-RIT/wisdom/pkg/logger"
	"github.com/OFFIS-RIT/wisdom/pkg/store"
)

func GetSessionSnapshotHandler(c echo.Context) error {
	sessionID := c.Param("id")
	if !validSessionID(sessionID) {
		return badRequest(c)
	}

	snapshot, err := app(c).Store.Load(c.Request().Context(), sessionID)
	if errors.Is(err, store.ErrSnapshotNotFound) {
		return c.JSON(http.StatusNotFound, messageResponse{Message: "No snapshot for session"})
	}
	if err != nil {
		logger.Error("[Server] Failed to load snapshot", "session", sessionID, "err", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusOK, snapshot)
}

func GetSessionReportsHandler(c echo.Context) error {
	type reportsResponse struct {
		Reports []string `json:"reports"`
	}

	sessionID := c.Param("id")
	if !validSessionID(sessionID) {
		return badRequest(c)
	}

	client := app(c).S3
	if client == nil {
		return c.JSON(http.StatusServiceUnavailable, messageResponse{Message: "Storage not configured"})
	}

	ids, err := storage.ListReports(c.Request().Context(), client, sessionID)
	if err != nil {
		logger.Error("[Server] Failed to list reports", "session", sessionID, "err", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusOK, reportsResponse{Reports: ids})
}

// GetSessionReportHandler answers with a short-lived download link for one
// uploaded report.
func GetSessionReportHandler(c echo.Context) error {
	type reportLinkResponse struct {
		URL string `json:"url"`
	}

	sessionID := c.Param("id")
	analysisID := c.Param("analysis_id")
	if !validSessionID(sessionID) || !util.IsNanoid(analysisID) {
		return badRequest(c)
	}

	client := app(c).S3
	if client == nil {
		return c.JSON(http.StatusServiceUnavailable, messageResponse{Message: "Storage not configured"})
	}

	url, err := storage.GenerateDownloadLink(c.Request().Context(), client, storage.ReportKey(sessionID, analysisID))
	if err != nil {
		logger.Error("[Server] Failed to sign report link", "session", sessionID, "analysis", analysisID, "err", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusOK, reportLinkResponse{URL: url})
}
