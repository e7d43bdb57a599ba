package server

import (
	"github.com/OFFIS-RIT/wisdom/internal/server/middleware"
	"github.com/OFFIS-RIT/wisdom/internal/server/routes"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	apiRoutes.GET("/schema/:document", routes.GetSchemaHandler)

	// Stateless routes
	apiRoutes.POST("/analyze", routes.AnalyzeHandler, middleware.RequirePermission(middleware.PermAnalysisRun))
	apiRoutes.POST("/summary", routes.SummaryHandler, middleware.RequirePermission(middleware.PermAnalysisRun))

	// Session routes
	apiRoutes.POST("/sessions", routes.CreateSessionHandler, middleware.RequirePermission(middleware.PermSessionCreate))
	apiRoutes.DELETE("/sessions/:id", routes.DeleteSessionHandler, middleware.RequirePermission(middleware.PermSessionDelete))
	apiRoutes.GET("/sessions/:id/snapshot", routes.GetSessionSnapshotHandler, middleware.RequirePermission(middleware.PermSessionView))
	apiRoutes.POST("/sessions/:id/analyze", routes.AnalyzeSessionHandler, middleware.RequirePermission(middleware.PermAnalysisRun))
	apiRoutes.POST("/sessions/:id/jobs", routes.EnqueueSessionJobHandler, middleware.RequirePermission(middleware.PermAnalysisRun))
	apiRoutes.GET("/sessions/:id/reports", routes.GetSessionReportsHandler, middleware.RequirePermission(middleware.PermSessionView))
	apiRoutes.GET("/sessions/:id/reports/:analysis_id", routes.GetSessionReportHandler, middleware.RequirePermission(middleware.PermSessionView))
}
