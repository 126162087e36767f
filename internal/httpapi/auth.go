package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"gnaoua.dev/catalog/internal/auth"
)

// requireAdmin gates the editorial command surface behind HTTP basic auth:
// the username must be on the admin allowlist and the password must verify
// against the single shared admin bcrypt hash. There are no per-user rows
// or sessions to manage, since editorial commands already audit the actor
// by name in catalog.editorial_actions.
func (s *Server) requireAdmin() echo.MiddlewareFunc {
	return middleware.BasicAuth(func(username, password string, c echo.Context) (bool, error) {
		name := auth.NormalizeUsername(username)
		if _, allowed := s.adminAllowlist[name]; !allowed {
			return false, nil
		}
		if s.adminPasswordHash == "" {
			return false, nil
		}
		return auth.VerifyPassword(password, s.adminPasswordHash), nil
	})
}

func actorFromContext(c echo.Context) string {
	username, _, ok := c.Request().BasicAuth()
	if !ok {
		return ""
	}
	return auth.NormalizeUsername(username)
}

func unauthorizedResponse(c echo.Context) error {
	return fail(c, http.StatusUnauthorized, "Authentication required", nil)
}
