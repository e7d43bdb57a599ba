package routes

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/wisdom/internal/queue"
	"github.com/OFFIS-RIT/wisdom/internal/util"
	"github.com/OFFIS-RIT/wisdom/pkg/analysis"
	"github.com/OFFIS-RIT/wisdom/pkg/common"
	"github.com/OFFIS-RIT/wisdom/pkg/logger"
)

// CreateSessionHandler hands out a new session id. The session has no
// baseline until its first analysis.
func CreateSessionHandler(c echo.Context) error {
	type createSessionResponse struct {
		SessionID string `json:"session_id"`
	}

	id, err := util.NewID()
	if err != nil {
		logger.Error("[Server] Failed to create session id", "err", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusCreated, createSessionResponse{SessionID: id})
}

// AnalyzeSessionHandler analyzes a model against the stored snapshot of the
// session and replaces that snapshot.
func AnalyzeSessionHandler(c echo.Context) error {
	type analyzeSessionBody struct {
		SessionID   string                   `param:"id" validate:"required"`
		Model       common.OrganizationModel `json:"model" validate:"required"`
		Seed        *uint64                  `json:"seed"`
		DecayFactor *float64                 `json:"decay_factor" validate:"omitempty,gte=0,lte=1"`
	}

	data := new(analyzeSessionBody)
	if err := bindAndValidate(c, data); err != nil || !validSessionID(data.SessionID) {
		return badRequest(c)
	}

	report, err := analysis.RunSession(c.Request().Context(), app(c).Store, data.SessionID, analysis.Request{
		Model:       data.Model,
		Seed:        data.Seed,
		DecayFactor: decayOrDefault(c, data.DecayFactor),
	})
	if err != nil {
		return analysisError(c, err)
	}

	return c.JSON(http.StatusOK, report)
}

// EnqueueSessionJobHandler queues an analysis of a model document stored in
// S3. The worker uploads the report under the returned analysis id.
func EnqueueSessionJobHandler(c echo.Context) error {
	type enqueueBody struct {
		SessionID   string   `param:"id" validate:"required"`
		ModelKey    string   `json:"model_key" validate:"required"`
		Seed        *uint64  `json:"seed"`
		DecayFactor *float64 `json:"decay_factor" validate:"omitempty,gte=0,lte=1"`
	}

	type enqueueResponse struct {
		AnalysisID string `json:"analysis_id"`
	}

	data := new(enqueueBody)
	if err := bindAndValidate(c, data); err != nil || !validSessionID(data.SessionID) {
		return badRequest(c)
	}

	publisher := app(c).Queue
	if publisher == nil {
		return c.JSON(http.StatusServiceUnavailable, messageResponse{Message: "Queue not configured"})
	}

	analysisID, err := util.NewID()
	if err != nil {
		logger.Error("[Server] Failed to create analysis id", "err", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
	}

	msg, err := json.Marshal(queue.AnalysisMsg{
		SessionID:   data.SessionID,
		ModelKey:    data.ModelKey,
		AnalysisID:  analysisID,
		Seed:        data.Seed,
		DecayFactor: data.DecayFactor,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
	}

	if err := queue.PublishFIFO(publisher, queue.AnalysisQueue, msg); err != nil {
		logger.Error("[Server] Failed to enqueue analysis", "session", data.SessionID, "err", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusAccepted, enqueueResponse{AnalysisID: analysisID})
}
