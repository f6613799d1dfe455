package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lyzr/flowrunner/cmd/workflow-runner/engine"
	"github.com/lyzr/flowrunner/cmd/workflow-runner/handlers"
	"github.com/lyzr/flowrunner/common/sdk"
)

// RegisterExecutionRoutes registers the execution endpoints. Extra middleware
// (rate limiting) applies to the execution group only, not the health check.
func RegisterExecutionRoutes(e *echo.Echo, coordinator *engine.Coordinator, store sdk.ExecutionStore, logger sdk.Logger, mw ...echo.MiddlewareFunc) {
	h := handlers.NewExecutionHandler(coordinator, store, logger)

	executions := e.Group("/api/v1/executions", mw...)
	{
		executions.POST("", h.SubmitExecution) // POST /api/v1/executions
		executions.GET("/:id", h.GetExecution) // GET /api/v1/executions/{execution_id}
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})
}
