package httpserver

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/temurun/internal/orders"
	"github.com/Skotchmaster/temurun/internal/transport"
	"github.com/Skotchmaster/temurun/pkg/logging"
)

const ordersPath = "/admin/orders"

func (h *AdminHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_orders")

	list, err := h.Orders.ListOrders(ctx)
	if err != nil {
		return httpError(l, "list_orders_error", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data":       list,
		"statuses":   orders.All,
		"csrf_token": csrfToken(c),
	})
}

func (h *AdminHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.get_order")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("get_order_error", "status", 404, "reason", "id not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusNotFound, "Order not found")
	}

	detail, err := h.Orders.OrderDetail(ctx, id)
	if err != nil {
		return httpError(l, "get_order_error", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data":       detail,
		"wa_url":     h.Orders.HandoffURL(ctx, &detail.Order),
		"flash":      flash(c),
		"csrf_token": csrfToken(c),
	})
}

// TransitionOrder always answers with a redirect to the order page carrying
// either ok=1 or err=<reason>.
func (h *AdminHTTP) TransitionOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.transition_order")

	var req transport.TransitionRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("transition_order_error", "status", 400, "reason", "invalid body", "error", err)
		return c.Redirect(http.StatusSeeOther, withQuery(ordersPath, url.Values{"err": {"Missing order_id or next_status"}}))
	}

	rawID := strings.TrimSpace(req.OrderID)
	id, err := uuid.Parse(rawID)
	if err != nil {
		back := ordersPath
		if rawID != "" {
			back = ordersPath + "/" + url.PathEscape(rawID)
		}
		l.Warn("transition_order_error", "status", 400, "reason", "order_id not a uuid", "error", err)
		msg := "Missing order_id or next_status"
		if rawID != "" {
			msg = "Order not found"
		}
		return c.Redirect(http.StatusSeeOther, withQuery(back, url.Values{"err": {msg}}))
	}

	back := ordersPath + "/" + id.String()
	res, err := h.Orders.Transition(ctx, id, req.NextStatus, req.Note)
	if err != nil {
		return redirectErr(c, l, "transition_order_error", back, err, "Failed to update order status")
	}

	l.Info("transition_order_success", "order_id", id.String(), "from", res.From.String(), "to", res.To.String(), "changed", res.Changed)
	return redirectOK(c, back)
}
