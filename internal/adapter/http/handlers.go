package http

import (
	"net/http"
	"time"

	"timeaway-backend/internal/usecase/reconcile"

	"github.com/labstack/echo/v4"
)

// ReportSource exposes the latest reconciler pass.
type ReportSource interface {
	LastReport() *reconcile.Report
}

type Handler struct{ reports ReportSource }

// NewHandler accepts a nil source when the reconciler is disabled.
func NewHandler(reports ReportSource) *Handler { return &Handler{reports: reports} }

func (h *Handler) Health(c echo.Context) error {
	body := map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	}
	if h.reports != nil {
		body["reconciler"] = h.reports.LastReport()
	}
	return c.JSON(http.StatusOK, body)
}
