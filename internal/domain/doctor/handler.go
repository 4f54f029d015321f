package doctor

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aarogya/queue/internal/domain/triage"
	"github.com/aarogya/queue/internal/platform/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(doctor *echo.Group) {
	doctor.POST("/doctors/login", h.Login)
}

type loginRequest struct {
	Tier       string `json:"tier"`
	AccessCode string `json:"access_code"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	tier, err := triage.ParseTier(req.Tier)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	res, err := h.svc.Login(c.Request().Context(), tier, req.AccessCode)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}
