package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/temurun/internal/cart"
	"github.com/Skotchmaster/temurun/internal/ratelimit"
	"github.com/Skotchmaster/temurun/internal/service"
	"github.com/Skotchmaster/temurun/internal/transport"
	"github.com/Skotchmaster/temurun/internal/util"
	"github.com/Skotchmaster/temurun/pkg/logging"
)

type ShopHTTP struct {
	Catalog *service.CatalogService
	Orders  *service.OrderService

	Limiter        *ratelimit.Limiter
	CheckoutLimit  int
	CheckoutWindow time.Duration

	Secure bool
}

func (h *ShopHTTP) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "shop.list_products")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Catalog.GetProducts(ctx, offset, limit)
	if err != nil {
		return httpError(l, "list_products_error", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": util.Meta(page, offset, limit, total),
	})
}

func (h *ShopHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "shop.get_product")

	p, err := h.Catalog.GetProductBySlug(ctx, c.Param("slug"))
	if err != nil {
		return httpError(l, "get_product_error", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ShopHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "shop.search")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Catalog.Search(ctx, c.QueryParam("q"), offset, limit)
	if err != nil {
		return httpError(l, "search_error", err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"query": c.QueryParam("q"),
		"data":  items,
		"meta":  util.Meta(page, offset, limit, total),
	})
}

// view prices each line from the catalog and drops lines whose product is gone.
func (h *ShopHTTP) view(c echo.Context, crt cart.Cart) (transport.CartView, error) {
	out := transport.CartView{Lines: []transport.CartLine{}}
	if len(crt.Lines) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, 0, len(crt.Lines))
	for _, ln := range crt.Lines {
		ids = append(ids, ln.ProductID)
	}
	products, err := h.Catalog.ProductsByIDs(c.Request().Context(), ids)
	if err != nil {
		return out, err
	}
	byID := make(map[uuid.UUID]int, len(products))
	for i, p := range products {
		byID[p.ID] = i
	}

	for _, ln := range crt.Lines {
		i, ok := byID[ln.ProductID]
		if !ok {
			continue
		}
		p := products[i]
		line := transport.CartLine{
			ProductID: p.ID,
			Slug:      p.Slug,
			Name:      p.Name,
			Price:     p.Price,
			Qty:       ln.Qty,
			LineTotal: p.Price * int64(ln.Qty),
		}
		if len(p.Images) > 0 {
			line.ImageURL = p.Images[0].URL
		}
		out.Lines = append(out.Lines, line)
		out.Count += ln.Qty
		out.Subtotal += line.LineTotal
	}
	return out, nil
}

func (h *ShopHTTP) respondCart(c echo.Context, l *slog.Logger, crt cart.Cart, status int) error {
	ck, err := cart.Cookie(crt, h.Secure)
	if err != nil {
		l.Error("cart_cookie_error", "status", 500, "reason", "cannot encode cart", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	c.SetCookie(ck)

	v, err := h.view(c, crt)
	if err != nil {
		l.Error("cart_view_error", "status", 500, "reason", "cannot price cart", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(status, v)
}

func (h *ShopHTTP) GetCart(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "shop.get_cart")

	v, err := h.view(c, cart.FromRequest(c.Request()))
	if err != nil {
		return httpError(l, "get_cart_error", err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *ShopHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "shop.add_to_cart")

	var req transport.CartItemRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if req.ProductID == uuid.Nil {
		l.Warn("add_to_cart_error", "status", 400, "reason", "product_id required")
		return echo.NewHTTPError(http.StatusBadRequest, "product_id required")
	}
	if _, err := h.Catalog.GetProduct(ctx, req.ProductID); err != nil {
		return httpError(l, "add_to_cart_error", err)
	}

	crt := cart.FromRequest(c.Request())
	if err := crt.Add(req.ProductID, req.Qty); err != nil {
		if errors.Is(err, cart.ErrValidation) {
			l.Warn("add_to_cart_error", "status", 400, "reason", err.Error())
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return httpError(l, "add_to_cart_error", err)
	}

	l.Info("add_to_cart_success", "product_id", req.ProductID.String(), "count", crt.Count())
	return h.respondCart(c, l, crt, http.StatusOK)
}

func (h *ShopHTTP) UpdateCartItem(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "shop.update_cart_item")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("update_cart_item_error", "status", 400, "reason", "id not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var req transport.CartItemRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_cart_item_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	crt := cart.FromRequest(c.Request())
	crt.SetQty(id, req.Qty)
	return h.respondCart(c, l, crt, http.StatusOK)
}

func (h *ShopHTTP) RemoveCartItem(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "shop.remove_cart_item")

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		l.Warn("remove_cart_item_error", "status", 400, "reason", "id not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	crt := cart.FromRequest(c.Request())
	crt.Remove(id)
	return h.respondCart(c, l, crt, http.StatusOK)
}

func (h *ShopHTTP) ClearCart(c echo.Context) error {
	c.SetCookie(cart.ClearCookie(h.Secure))
	return c.NoContent(http.StatusNoContent)
}

func (h *ShopHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "shop.checkout")

	ip := ratelimit.ClientIP(c.Request().Header)
	res := h.Limiter.Check(ctx, ratelimit.ActionCheckoutSubmit, ip, h.CheckoutLimit, h.CheckoutWindow)
	if !res.Allowed {
		secs := res.RetryAfter
		if secs <= 0 {
			secs = int(h.CheckoutWindow.Seconds())
		}
		l.Warn("checkout_error", "status", 429, "reason", "rate limited", "ip", ip, "retry_after", secs)
		setRetryAfter(c, secs)
		return echo.NewHTTPError(http.StatusTooManyRequests, RetryMessage(secs))
	}

	var req transport.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("checkout_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Orders.Checkout(ctx, req, cart.FromRequest(c.Request()))
	if err != nil {
		return httpError(l, "checkout_error", err)
	}

	c.SetCookie(cart.ClearCookie(h.Secure))
	l.Info("checkout_success", "order_id", order.ID.String(), "code", order.Code, "total", order.Total)
	return c.JSON(http.StatusCreated, transport.CheckoutResponse{
		OK:    true,
		Code:  order.Code,
		WAURL: h.Orders.HandoffURL(ctx, order),
	})
}

func (h *ShopHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "shop.get_order")

	o, err := h.Orders.GetByCode(ctx, c.Param("code"))
	if err != nil {
		return httpError(l, "get_order_error", err)
	}

	return c.JSON(http.StatusOK, transport.PublicOrder{
		Code:         o.Code,
		Status:       o.Status,
		Subtotal:     o.Subtotal,
		Total:        o.Total,
		CustomerName: o.CustomerName,
		Phone:        o.Phone,
		Address:      o.Address,
		Notes:        o.Notes,
		Items:        o.Items,
		WAURL:        h.Orders.HandoffURL(ctx, o),
	})
}
