package patient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc := newTestService()
	svc.Create(context.Background(), "9876543210", 1980, strPtr("Asha"))
	return NewHandler(svc), echo.New()
}

func postVerify(t *testing.T, h *Handler, e *echo.Echo, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients/verify", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, h.Verify(e.NewContext(req, rec))
}

func TestHandler_Verify(t *testing.T) {
	h, e := newTestHandler()

	rec, err := postVerify(t, h, e, `{"phone":"98765 43210","yob":1980}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var p Patient
	json.Unmarshal(rec.Body.Bytes(), &p)
	if p.Phone != "+919876543210" {
		t.Errorf("unexpected phone %q", p.Phone)
	}
}

func TestHandler_Verify_Mismatch(t *testing.T) {
	h, e := newTestHandler()

	_, err := postVerify(t, h, e, `{"phone":"9876543210","yob":1999}`)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestHandler_Verify_BadPhone(t *testing.T) {
	h, e := newTestHandler()

	_, err := postVerify(t, h, e, `{"phone":"123","yob":1980}`)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}
