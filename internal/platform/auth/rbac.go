package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireTier rejects requests whose route parameter names a tier other than
// the signed-in doctor's.
func RequireTier(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := CheckTier(c, c.Param(param)); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// CheckTier is RequireTier for handlers that learn the tier only after
// loading a record.
func CheckTier(c echo.Context, tier string) error {
	s := SessionFromContext(c.Request().Context())
	if s == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
	}
	if !strings.EqualFold(s.Tier, strings.TrimSpace(tier)) {
		return echo.NewHTTPError(http.StatusForbidden,
			fmt.Sprintf("%s doctors cannot access the %s queue", s.Tier, strings.ToUpper(tier)))
	}
	return nil
}
