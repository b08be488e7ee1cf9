package http

import "github.com/labstack/echo/v4"

// RegisterRoutes mounts the health check and the /api/requests resource.
// createMW wraps only the create route (idempotency).
func RegisterRoutes(e *echo.Echo, h *Handler, rh *RequestHandler, createMW ...echo.MiddlewareFunc) {
	e.GET("/health", h.Health)

	g := e.Group("/api/requests")
	g.POST("", rh.CreateRequest, createMW...)
	g.GET("", rh.ListRequests)
	g.GET("/:id", rh.GetRequest)
	g.PATCH("/:id", rh.UpdateRequest)
	g.DELETE("/:id", rh.DeleteRequest)
}
