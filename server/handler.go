// Package server provides the HTTP API used by the dashboard.
package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/waterpistol/waterpistol/config"
	"github.com/waterpistol/waterpistol/history"
	"github.com/waterpistol/waterpistol/model"
)

// Runs lists runs and changes their visibility.
type Runs interface {
	ListRuns() ([]model.RunSummary, error)
	SetVisibility(token string, visibility model.Visibility) error
}

// Starter launches new runs.
type Starter interface {
	StartRun(params map[string]string, description string) (string, error)
}

// Handler handles HTTP requests.
type Handler struct {
	logger     zerolog.Logger
	runs       Runs
	starter    Starter
	simulation config.Simulation
	resultsDir string
}

// NewHandler creates a new handler serving run files from resultsDir.
func NewHandler(logger zerolog.Logger, runs Runs, starter Starter, simulation config.Simulation, resultsDir string) *Handler {
	return &Handler{
		logger:     logger,
		runs:       runs,
		starter:    starter,
		simulation: simulation,
		resultsDir: resultsDir,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/testruns", h.ListRuns)
	e.PATCH("/api/testruns/:name", h.UpdateVisibility)
	e.POST("/api/run", h.StartRun)
	e.GET("/api/config", h.GetConfig)
	e.GET("/simulations/*", h.Simulations)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

// ListRuns lists the visible runs, newest first.
// GET /api/testruns
func (h *Handler) ListRuns(c echo.Context) error {
	runs, err := h.runs.ListRuns()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list runs")
		return c.JSON(http.StatusInternalServerError, errorBody("failed to list runs"))
	}
	return c.JSON(http.StatusOK, runs)
}

// VisibilityRequest is the request to change the visibility of a run.
type VisibilityRequest struct {
	VisibilityStatus string `json:"visibility_status"`
}

// UpdateVisibility hides or shows a run.
// PATCH /api/testruns/:name
func (h *Handler) UpdateVisibility(c echo.Context) error {
	token := c.Param("name")
	if !history.ValidToken(token) {
		return c.JSON(http.StatusNotFound, errorBody("run not found"))
	}

	var req VisibilityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}
	visibility, ok := model.ParseVisibility(req.VisibilityStatus)
	if !ok {
		return c.JSON(http.StatusBadRequest, errorBody("visibility_status must be Visible or Hidden"))
	}

	err := h.runs.SetVisibility(token, visibility)
	switch {
	case errors.Is(err, history.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorBody("run not found"))
	case err != nil:
		h.logger.Error().Err(err).Str("run", token).Msg("Failed to update visibility")
		return c.JSON(http.StatusInternalServerError, errorBody("failed to update visibility"))
	}
	return c.String(http.StatusOK, "OK")
}

// RunRequest is the request to start a run.
type RunRequest struct {
	Description  string            `json:"description"`
	CustomParams map[string]string `json:"custom_params"`
}

// StartRun starts a run in the background. Parameters missing from the
// request take their configured default.
// POST /api/run
func (h *Handler) StartRun(c echo.Context) error {
	var req RunRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	params := h.simulation.Defaults()
	for k, v := range req.CustomParams {
		params[k] = v
	}

	token, err := h.starter.StartRun(params, req.Description)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to start run")
		return c.JSON(http.StatusInternalServerError, errorBody("failed to start run"))
	}
	return c.JSON(http.StatusAccepted, map[string]string{"name": token})
}

// GetConfig returns the simulation and its parameters.
// GET /api/config
func (h *Handler) GetConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]config.Simulation{"simulation": h.simulation})
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
