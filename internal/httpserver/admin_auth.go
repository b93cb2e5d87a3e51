package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/temurun/internal/ratelimit"
	"github.com/Skotchmaster/temurun/internal/service"
	"github.com/Skotchmaster/temurun/internal/session"
	"github.com/Skotchmaster/temurun/internal/transport"
	"github.com/Skotchmaster/temurun/pkg/logging"
)

type AdminHTTP struct {
	Auth       *session.Authenticator
	CookieName string
	Secure     bool

	Limiter      *ratelimit.Limiter
	SignInLimit  int
	SignInWindow time.Duration

	Orders    *service.OrderService
	Catalog   *service.CatalogService
	Settings  *service.SettingsService
	Analytics *service.AnalyticsService

	Now func() time.Time
}

func (h *AdminHTTP) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// RetryMessage renders the rate-limit notice in whole minutes, rounded up.
func RetryMessage(secs int) string {
	mins := (secs + 59) / 60
	return fmt.Sprintf("Too many attempts. Please try again in ~%d minute(s).", mins)
}

func signInRedirect(next, msg string, retry int) string {
	q := url.Values{}
	q.Set("error", "1")
	q.Set("msg", msg)
	q.Set("err", msg)
	if retry > 0 {
		q.Set("retry", strconv.Itoa(retry))
	}
	if next != session.AdminPrefix {
		q.Set("next", next)
	}
	return withQuery(session.SignInPath, q)
}

// SignInPage always clears the session cookie so a broken token cannot loop.
func (h *AdminHTTP) SignInPage(c echo.Context) error {
	c.SetCookie(session.DeleteCookie(h.CookieName, h.Secure))

	retry, _ := strconv.Atoi(c.QueryParam("retry"))
	return c.JSON(http.StatusOK, map[string]any{
		"next":  session.SafeNext(c.QueryParam("next")),
		"error": c.QueryParam("error") == "1" || c.QueryParam("err") != "",
		"msg":   firstNonEmpty(c.QueryParam("msg"), c.QueryParam("err")),
		"retry": retry,
	})
}

func (h *AdminHTTP) SignIn(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.sign_in")

	var req transport.SignInRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("sign_in_error", "status", 400, "reason", "invalid body", "error", err)
		return c.Redirect(http.StatusSeeOther, signInRedirect(session.AdminPrefix, "Invalid passcode", 0))
	}
	next := session.SafeNext(req.Next)

	ip := ratelimit.ClientIP(c.Request().Header)
	res := h.Limiter.Check(ctx, ratelimit.ActionAdminSignIn, ip, h.SignInLimit, h.SignInWindow)
	if !res.Allowed {
		secs := res.RetryAfter
		if secs <= 0 {
			secs = int(h.SignInWindow.Seconds())
		}
		l.Warn("sign_in_error", "status", 429, "reason", "rate limited", "ip", ip, "retry_after", secs)
		setRetryAfter(c, secs)
		return c.Redirect(http.StatusSeeOther, signInRedirect(next, RetryMessage(secs), secs))
	}

	if !h.Auth.CheckPasscode(strings.TrimSpace(req.Passcode)) {
		l.Warn("sign_in_error", "status", 401, "reason", "invalid passcode", "ip", ip)
		return c.Redirect(http.StatusSeeOther, signInRedirect(next, "Invalid passcode", 0))
	}

	token, _, err := h.Auth.Issue()
	if err != nil {
		reason := "cannot issue session"
		if errors.Is(err, session.ErrNoSecret) {
			reason = "session secret missing"
		}
		l.Error("sign_in_error", "status", 500, "reason", reason, "error", err)
		return c.Redirect(http.StatusSeeOther, signInRedirect(next, "Sign-in is unavailable", 0))
	}

	c.SetCookie(session.CreateCookie(h.CookieName, token, h.Auth.TTL(), h.Secure))
	l.Info("sign_in_success", "ip", ip)
	return c.Redirect(http.StatusSeeOther, next)
}

func (h *AdminHTTP) SignOut(c echo.Context) error {
	c.SetCookie(session.DeleteCookie(h.CookieName, h.Secure))
	logging.FromContext(c.Request().Context()).Info("sign_out_success")
	return c.Redirect(http.StatusSeeOther, session.SignInPath)
}

func (h *AdminHTTP) Index(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"sections": []map[string]string{
			{"name": "Orders", "href": "/admin/orders"},
			{"name": "Products", "href": "/admin/products"},
			{"name": "Analytics", "href": "/admin/analytics"},
			{"name": "Settings", "href": "/admin/settings"},
		},
		"csrf_token": csrfToken(c),
	})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
