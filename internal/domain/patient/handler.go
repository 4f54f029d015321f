package patient

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aarogya/queue/internal/platform/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the kiosk-facing patient endpoints.
func (h *Handler) RegisterRoutes(kiosk *echo.Group) {
	kiosk.POST("/patients/verify", h.Verify)
}

type verifyRequest struct {
	Phone string `json:"phone"`
	YOB   int    `json:"yob"`
}

func (h *Handler) Verify(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.Verify(c.Request().Context(), req.Phone, req.YOB)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if p == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "phone number and year of birth do not match")
	}
	return c.JSON(http.StatusOK, p)
}
