package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/temurun/internal/service"
	"github.com/Skotchmaster/temurun/pkg/middleware/csrf"
)

// httpError maps service errors onto JSON error responses.
func httpError(l *slog.Logger, event string, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		msg := service.Message(err, "invalid request")
		l.Warn(event, "status", 400, "reason", msg, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, msg)
	case errors.Is(err, service.ErrNotFound):
		msg := service.Message(err, "not found")
		l.Warn(event, "status", 404, "reason", msg, "error", err)
		return echo.NewHTTPError(http.StatusNotFound, msg)
	case errors.Is(err, service.ErrIllegalTransition), errors.Is(err, service.ErrConflict):
		msg := service.Message(err, "conflict")
		l.Warn(event, "status", 409, "reason", msg, "error", err)
		return echo.NewHTTPError(http.StatusConflict, msg)
	default:
		l.Error(event, "status", 500, "reason", "internal error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// redirectErr sends the operator back to path with the error text in err.
func redirectErr(c echo.Context, l *slog.Logger, event, path string, err error, fallback string) error {
	msg := service.Message(err, fallback)
	if errors.Is(err, service.ErrValidation) || errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrIllegalTransition) {
		l.Warn(event, "status", 303, "reason", msg, "error", err)
	} else {
		l.Error(event, "status", 303, "reason", fallback, "error", err)
	}
	return c.Redirect(http.StatusSeeOther, withQuery(path, url.Values{"err": {msg}}))
}

func redirectOK(c echo.Context, path string) error {
	return c.Redirect(http.StatusSeeOther, withQuery(path, url.Values{"ok": {"1"}}))
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// flash echoes the ok/err query parameters set by the redirects above.
func flash(c echo.Context) map[string]any {
	return map[string]any{
		"ok":  c.QueryParam("ok") == "1",
		"err": c.QueryParam("err"),
	}
}

func csrfToken(c echo.Context) string {
	if v, ok := c.Get(csrf.ContextKey).(string); ok {
		return v
	}
	return ""
}

func setRetryAfter(c echo.Context, secs int) {
	c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
}
