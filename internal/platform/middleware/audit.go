package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/aarogya/queue/internal/platform/auth"
)

// AuditEntry records a doctor touching patient data.
type AuditEntry struct {
	DoctorID   int64
	DoctorTier string
	Action     string // read, complete, list
	Resource   string // visit, queue, history
	ResourceID string
	Method     string
	Route      string
	IPAddress  string
	StatusCode int
	RequestID  string
	Timestamp  time.Time
}

// AuditRecorder persists audit entries somewhere other than the log.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// Audit logs every request made with a doctor session after it completes.
// Requests without a session, such as login, are not audited.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			session := auth.SessionFromContext(c.Request().Context())
			if session == nil {
				return err
			}

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}

			entry := AuditEntry{
				DoctorID:   session.DoctorID,
				DoctorTier: session.Tier,
				Method:     c.Request().Method,
				Route:      c.Path(),
				IPAddress:  c.RealIP(),
				StatusCode: status,
				RequestID:  GetRequestID(c),
				Timestamp:  time.Now().UTC(),
			}
			entry.Resource, entry.ResourceID = auditResource(c)
			entry.Action = auditAction(c.Request().Method, c.Path())

			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).Str("request_id", entry.RequestID).Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "doctor_audit").
				Str("request_id", entry.RequestID).
				Int64("doctor_id", entry.DoctorID).
				Str("doctor_tier", entry.DoctorTier).
				Str("action", entry.Action).
				Str("resource", entry.Resource).
				Str("resource_id", entry.ResourceID).
				Str("route", entry.Route).
				Int("status", entry.StatusCode).
				Str("remote_ip", entry.IPAddress).
				Msg("patient_data_access")

			return err
		}
	}
}

// auditResource names what a route exposes, using route parameters rather
// than parsing the raw path.
func auditResource(c echo.Context) (string, string) {
	route := c.Path()
	switch {
	case strings.Contains(route, "/history"):
		return "history", c.Param("phone")
	case strings.HasPrefix(route, "/api/v1/queues"):
		return "queue", c.Param("tier")
	case strings.HasPrefix(route, "/api/v1/visits"):
		return "visit", c.Param("id")
	default:
		return "unknown", ""
	}
}

func auditAction(method, route string) string {
	switch {
	case method == http.MethodPost && strings.HasSuffix(route, "/complete"):
		return "complete"
	case method == http.MethodGet && strings.Contains(route, ":id"):
		return "read"
	case method == http.MethodGet:
		return "list"
	default:
		return strings.ToLower(method)
	}
}
