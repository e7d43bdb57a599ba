package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/wisdom/pkg/analysis"
	"github.com/OFFIS-RIT/wisdom/pkg/common"
	"github.com/OFFIS-RIT/wisdom/pkg/summary"
)

// AnalyzeHandler runs a stateless analysis. The diff is computed against the
// optional previous snapshot from the request body.
func AnalyzeHandler(c echo.Context) error {
	type analyzeBody struct {
		Model       common.OrganizationModel `json:"model" validate:"required"`
		Previous    *common.Snapshot         `json:"previous"`
		Seed        *uint64                  `json:"seed"`
		DecayFactor *float64                 `json:"decay_factor" validate:"omitempty,gte=0,lte=1"`
	}

	data := new(analyzeBody)
	if err := bindAndValidate(c, data); err != nil {
		return badRequest(c)
	}

	report, _, err := analysis.Run(c.Request().Context(), analysis.Request{
		Model:       data.Model,
		Previous:    data.Previous,
		Seed:        data.Seed,
		DecayFactor: decayOrDefault(c, data.DecayFactor),
	})
	if err != nil {
		return analysisError(c, err)
	}

	return c.JSON(http.StatusOK, report)
}

// SummaryHandler returns the size-bounded projection of a model together
// with its meta context.
func SummaryHandler(c echo.Context) error {
	type summaryBody struct {
		Model            common.OrganizationModel `json:"model" validate:"required"`
		MaxPerCategory   *int                     `json:"max_per_category" validate:"omitempty,gte=0"`
		MaxRelationships *int                     `json:"max_relationships" validate:"omitempty,gte=0"`
	}

	type summaryResponse struct {
		Summary map[string][]any `json:"summary"`
		Meta    summary.Meta     `json:"meta"`
	}

	data := new(summaryBody)
	if err := bindAndValidate(c, data); err != nil {
		return badRequest(c)
	}

	opts := app(c).Summary
	if data.MaxPerCategory != nil {
		opts.MaxPerCategory = *data.MaxPerCategory
	}
	if data.MaxRelationships != nil {
		opts.MaxRelationships = *data.MaxRelationships
	}

	return c.JSON(http.StatusOK, summaryResponse{
		Summary: summary.Summarize(data.Model, opts),
		Meta:    summary.MetaContext(data.Model),
	})
}
