package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/temurun/internal/analytics"
	"github.com/Skotchmaster/temurun/internal/transport"
	"github.com/Skotchmaster/temurun/internal/whatsapp"
	"github.com/Skotchmaster/temurun/pkg/logging"
)

const settingsPath = "/admin/settings"

func (h *AdminHTTP) GetAnalytics(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.analytics")

	rng := analytics.Resolve(c.QueryParam("preset"), c.QueryParam("from"), c.QueryParam("to"), h.now())
	by := analytics.ParseSortBy(c.QueryParam("sort"))

	res, err := h.Analytics.Compute(ctx, rng, by)
	if err != nil {
		return httpError(l, "analytics_error", err)
	}

	return c.JSON(http.StatusOK, transport.AnalyticsResponse{Range: rng, Sort: by, Result: res})
}

func (h *AdminHTTP) GetSettings(c echo.Context) error {
	n, src := h.Settings.WANumber(c.Request().Context())
	return c.JSON(http.StatusOK, map[string]any{
		"data":       transport.SettingsResponse{WANumber: n, Source: src, Valid: whatsapp.IsLikelyValidNumber(n)},
		"flash":      flash(c),
		"csrf_token": csrfToken(c),
	})
}

func (h *AdminHTTP) SaveSettings(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.save_settings")

	if err := h.Settings.SaveWANumber(ctx, c.FormValue("wa_number")); err != nil {
		return redirectErr(c, l, "save_settings_error", settingsPath, err, "Failed to save settings")
	}

	l.Info("save_settings_success")
	return redirectOK(c, settingsPath)
}
