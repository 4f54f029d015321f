package queue

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aarogya/queue/internal/domain/triage"
	"github.com/aarogya/queue/internal/platform/apperr"
	"github.com/aarogya/queue/internal/platform/auth"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// RegisterRoutes mounts the dashboard endpoints. A doctor only sees the
// queue of their own tier.
func (h *Handler) RegisterRoutes(doctor *echo.Group) {
	g := doctor.Group("/queues/:tier", auth.RequireTier("tier"))
	g.GET("", h.Snapshot)
	g.GET("/next", h.Next)
}

func (h *Handler) Snapshot(c echo.Context) error {
	tier, err := triage.ParseTier(c.Param("tier"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	snap, err := h.engine.Snapshot(c.Request().Context(), tier)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (h *Handler) Next(c echo.Context) error {
	tier, err := triage.ParseTier(c.Param("tier"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	v, err := h.engine.NextForTier(c.Request().Context(), tier)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if v == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, v)
}
