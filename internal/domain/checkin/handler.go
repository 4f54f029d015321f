package checkin

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/aarogya/queue/internal/platform/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the kiosk check-in endpoints.
func (h *Handler) RegisterRoutes(kiosk *echo.Group) {
	kiosk.POST("/checkins", h.CheckIn)
	kiosk.GET("/visits/:id/status", h.Status)
}

func (h *Handler) CheckIn(c echo.Context) error {
	var req Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ticket, err := h.svc.CheckIn(c.Request().Context(), req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, ticket)
}

func (h *Handler) Status(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	view, err := h.svc.Status(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, view)
}
