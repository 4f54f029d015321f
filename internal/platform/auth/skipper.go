package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths lists routes inside authenticated groups that must stay
// reachable without a session, such as the login that issues one.
var publicPaths = map[string]bool{
	"/api/v1/doctors/login": true,
}

// AuthSkipper returns true for requests whose route should skip
// authentication. It matches on the registered route path, not the raw URL.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}
