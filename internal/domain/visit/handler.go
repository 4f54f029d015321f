package visit

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/aarogya/queue/internal/domain/triage"
	"github.com/aarogya/queue/internal/platform/apperr"
	"github.com/aarogya/queue/internal/platform/auth"
	"github.com/aarogya/queue/pkg/pagination"
)

// PhoneNormalizer turns a phone number from a URL into its stored form.
type PhoneNormalizer interface {
	Normalize(phone string) (string, error)
}

type Handler struct {
	svc    *Service
	phones PhoneNormalizer
}

func NewHandler(svc *Service, phones PhoneNormalizer) *Handler {
	return &Handler{svc: svc, phones: phones}
}

// RegisterRoutes mounts the doctor-facing visit endpoints.
func (h *Handler) RegisterRoutes(doctor *echo.Group) {
	doctor.GET("/visits/completed", h.ListCompleted)
	doctor.GET("/visits/:id", h.GetVisit)
	doctor.POST("/visits/:id/complete", h.CompleteVisit)
	doctor.GET("/patients/:phone/history", h.ListHistory)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid visit id")
	}
	return id, nil
}

// load fetches a visit the signed-in doctor may act on.
func (h *Handler) load(c echo.Context) (*Visit, error) {
	id, err := parseID(c)
	if err != nil {
		return nil, err
	}
	v, err := h.svc.GetVisit(c.Request().Context(), id)
	if err != nil {
		return nil, apperr.ToHTTP(err)
	}
	if v == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "visit not found")
	}
	if err := auth.CheckTier(c, string(v.Tier)); err != nil {
		return nil, err
	}
	return v, nil
}

func (h *Handler) GetVisit(c echo.Context) error {
	v, err := h.load(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

type completeRequest struct {
	DoctorNotes  string  `json:"doctor_notes"`
	Prescription *string `json:"prescription"`
}

func (h *Handler) CompleteVisit(c echo.Context) error {
	var req completeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	v, err := h.load(c)
	if err != nil {
		return err
	}

	var doctorID *int64
	if s := auth.SessionFromContext(c.Request().Context()); s != nil {
		id := s.DoctorID
		doctorID = &id
	}
	done, err := h.svc.CompleteVisit(c.Request().Context(), v.ID, req.DoctorNotes, req.Prescription, doctorID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, done)
}

// ListCompleted lists recently completed visits. Without a tier filter the
// doctor's own tier is used.
func (h *Handler) ListCompleted(c echo.Context) error {
	raw := c.QueryParam("tier")
	if raw == "" {
		if s := auth.SessionFromContext(c.Request().Context()); s != nil {
			raw = s.Tier
		}
	}

	var tier *triage.Tier
	if raw != "" {
		t, err := triage.ParseTier(raw)
		if err != nil {
			return apperr.ToHTTP(err)
		}
		if err := auth.CheckTier(c, string(t)); err != nil {
			return err
		}
		tier = &t
	}

	p := pagination.FromContext(c, DefaultListLimit)
	items, err := h.svc.ListCompleted(c.Request().Context(), tier, p.Limit, p.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*Visit{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, len(items), p))
}

func (h *Handler) ListHistory(c echo.Context) error {
	phone, err := h.phones.Normalize(c.Param("phone"))
	if err != nil {
		return apperr.ToHTTP(err)
	}

	var status *Status
	if raw := c.QueryParam("status"); raw != "" {
		st, err := ParseStatus(raw)
		if err != nil {
			return apperr.ToHTTP(err)
		}
		status = &st
	}

	p := pagination.FromContext(c, DefaultListLimit)
	items, err := h.svc.ListHistory(c.Request().Context(), phone, p.Limit, status)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*Visit{}
	}
	return c.JSON(http.StatusOK, items)
}
