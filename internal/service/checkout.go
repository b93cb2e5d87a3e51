package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/temurun/internal/cache"
	"github.com/Skotchmaster/temurun/internal/cart"
	"github.com/Skotchmaster/temurun/internal/events"
	"github.com/Skotchmaster/temurun/internal/models"
	"github.com/Skotchmaster/temurun/internal/orders"
	"github.com/Skotchmaster/temurun/internal/transport"
	"github.com/Skotchmaster/temurun/internal/whatsapp"
	"github.com/Skotchmaster/temurun/pkg/logging"
)

const (
	CodePrefix = "TMR-"
	// DeliveryFee is added to the subtotal; delivery is arranged over WhatsApp.
	DeliveryFee int64 = 0

	codeAttempts = 5
)

// NewOrderCode returns a human-friendly code such as TMR-4F9A1C.
func NewOrderCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return CodePrefix + strings.ToUpper(raw[:6])
}

// Checkout re-prices the cart from the catalog and creates a pending order.
func (s *OrderService) Checkout(ctx context.Context, req transport.CheckoutRequest, c cart.Cart) (*models.Order, error) {
	l := logging.FromContext(ctx).With("component", "checkout")

	name := strings.TrimSpace(req.CustomerName)
	phone := strings.TrimSpace(req.Phone)
	address := strings.TrimSpace(req.Address)
	notes := CleanNote(req.Notes)

	if name == "" || phone == "" || address == "" {
		return nil, validationf("Name, phone and address are required")
	}
	if len(whatsapp.NormalizePhone(phone)) < 8 {
		return nil, validationf("Phone number looks too short")
	}
	if len(c.Lines) == 0 {
		return nil, validationf("Your cart is empty")
	}

	ids := make([]uuid.UUID, 0, len(c.Lines))
	for _, ln := range c.Lines {
		ids = append(ids, ln.ProductID)
	}
	products, err := s.Repo.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var subtotal int64
	items := make([]models.OrderItem, 0, len(c.Lines))
	for _, ln := range c.Lines {
		p, ok := byID[ln.ProductID]
		if !ok {
			return nil, validationf("A product in your cart is no longer available")
		}
		items = append(items, models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Slug:      p.Slug,
			Price:     p.Price,
			Qty:       ln.Qty,
		})
		subtotal += p.Price * int64(ln.Qty)
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		Code:         code,
		CustomerName: name,
		Phone:        phone,
		Address:      address,
		Notes:        optional(notes),
		Subtotal:     subtotal,
		Total:        subtotal + DeliveryFee,
		Status:       orders.StatusPending.String(),
		CreatedAt:    s.now().UTC(),
		Items:        items,
	}
	if _, err := s.Repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	if err := s.Repo.AppendStatusEvent(ctx, &models.OrderStatusEvent{
		OrderID:   order.ID,
		ToStatus:  order.Status,
		CreatedAt: order.CreatedAt,
	}); err != nil {
		l.Warn("order_audit_write_failed", "order_id", order.ID.String(), "reason", "initial event not recorded", "error", err)
	}

	if err := s.cache().Delete(ctx, cache.KeyOrderList); err != nil {
		l.Warn("order_cache_invalidate_failed", "error", err)
	}
	s.publish(ctx, events.OrderEvent{
		Type:     events.TypeOrderCreated,
		OrderID:  order.ID.String(),
		Code:     order.Code,
		ToStatus: order.Status,
		Total:    order.Total,
		At:       order.CreatedAt,
	})

	l.Info("checkout_success", "order_id", order.ID.String(), "code", order.Code, "total", order.Total)
	return order, nil
}

func (s *OrderService) uniqueCode(ctx context.Context) (string, error) {
	for range codeAttempts {
		code := NewOrderCode()
		exists, err := s.Repo.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: could not allocate an order code", ErrConflict)
}
