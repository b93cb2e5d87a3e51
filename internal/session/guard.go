package session

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/temurun/pkg/logging"
)

const (
	AdminPrefix = "/admin"
	SignInPath  = "/admin/sign-in"
)

type Guard struct {
	Auth       *Authenticator
	CookieName string
}

func IsAdminPath(p string) bool {
	return p == AdminPrefix || strings.HasPrefix(p, AdminPrefix+"/")
}

// SafeNext keeps return targets inside the admin area; anything else lands on the admin root.
func SafeNext(next string) string {
	next = strings.TrimSpace(next)
	if !IsAdminPath(next) || strings.HasPrefix(next, SignInPath) {
		return AdminPrefix
	}
	return next
}

func SignInURL(next string) string {
	return SignInPath + "?next=" + url.QueryEscape(next)
}

// Middleware must be installed with e.Use so unmatched admin paths are gated too.
func (g *Guard) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		if !IsAdminPath(path) {
			return next(c)
		}

		c.Response().Header().Set(echo.HeaderCacheControl, "no-store")

		if path == SignInPath {
			return next(c)
		}

		cookie, err := c.Cookie(g.CookieName)
		if err != nil || cookie.Value == "" || !g.Auth.Verify(cookie.Value) {
			l := logging.FromContext(c.Request().Context()).With("middleware", "admin_guard")
			l.Info("admin_guard_redirect", "path", path, "cookie_present", err == nil)
			return c.Redirect(http.StatusFound, SignInURL(path))
		}

		c.Set("role", Subject)
		return next(c)
	}
}
