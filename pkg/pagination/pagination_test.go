package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, target string, defaultLimit int) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec), defaultLimit)
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor(t, "/", 0)
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}

	p = paramsFor(t, "/", 3)
	if p.Limit != 3 {
		t.Errorf("expected caller default 3, got %d", p.Limit)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := paramsFor(t, "/?limit=50&offset=10", 20)
	if p.Limit != 50 {
		t.Errorf("expected limit 50, got %d", p.Limit)
	}
	if p.Offset != 10 {
		t.Errorf("expected offset 10, got %d", p.Offset)
	}
}

func TestFromContext_Clamping(t *testing.T) {
	tests := []struct {
		target     string
		wantLimit  int
		wantOffset int
	}{
		{"/?limit=500", MaxLimit, 0},
		{"/?limit=-5&offset=-1", DefaultLimit, 0},
		{"/?limit=abc&offset=xyz", DefaultLimit, 0},
		{"/?limit=0", DefaultLimit, 0},
	}
	for _, tt := range tests {
		p := paramsFor(t, tt.target, DefaultLimit)
		if p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
			t.Errorf("%s: got limit=%d offset=%d, want %d/%d", tt.target, p.Limit, p.Offset, tt.wantLimit, tt.wantOffset)
		}
	}
}

func TestNewResponse(t *testing.T) {
	p := Params{Limit: 2, Offset: 4}
	full := NewResponse([]int{1, 2}, 2, p)
	if !full.HasMore || full.Limit != 2 || full.Offset != 4 {
		t.Errorf("unexpected response %+v", full)
	}
	partial := NewResponse([]int{1}, 1, p)
	if partial.HasMore {
		t.Error("a short page has no more results")
	}
	if p.NextOffset() != 6 {
		t.Errorf("expected next offset 6, got %d", p.NextOffset())
	}
}
