package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/temurun/internal/cache"
	"github.com/Skotchmaster/temurun/internal/events"
	"github.com/Skotchmaster/temurun/internal/models"
	"github.com/Skotchmaster/temurun/internal/orders"
	"github.com/Skotchmaster/temurun/internal/repo"
	"github.com/Skotchmaster/temurun/internal/transport"
	"github.com/Skotchmaster/temurun/internal/whatsapp"
	"github.com/Skotchmaster/temurun/pkg/logging"
	"github.com/Skotchmaster/temurun/pkg/middleware/metrics"
)

const NoteMaxRunes = 500

type OrderService struct {
	Repo     *repo.GormRepo
	Settings *SettingsService

	Cache    cache.Cache
	CacheTTL time.Duration

	Events events.Publisher
	Topic  string

	// AuditStrict writes status and audit event in one transaction.
	AuditStrict bool

	Now func() time.Time
}

type TransitionResult struct {
	From    orders.Status
	To      orders.Status
	Changed bool
}

func (s *OrderService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *OrderService) cache() cache.Cache {
	if s.Cache == nil {
		return cache.Nop{}
	}
	return s.Cache
}

func (s *OrderService) publisher() events.Publisher {
	if s.Events == nil {
		return events.Nop{}
	}
	return s.Events
}

// CleanNote trims the note and caps it at NoteMaxRunes.
func CleanNote(note string) string {
	note = strings.TrimSpace(note)
	if r := []rune(note); len(r) > NoteMaxRunes {
		note = strings.TrimSpace(string(r[:NoteMaxRunes]))
	}
	return note
}

// Transition moves an order along the lifecycle and appends an audit event.
// Re-submitting the current status is a no-op without an audit event.
func (s *OrderService) Transition(ctx context.Context, id uuid.UUID, rawNext, note string) (TransitionResult, error) {
	l := logging.FromContext(ctx).With("component", "order_transition", "order_id", id.String())

	next := orders.Normalize(rawNext)
	note = CleanNote(note)

	if id == uuid.Nil || next == "" {
		return TransitionResult{}, validationf("Missing order_id or next_status")
	}
	if next == orders.StatusCancelled.String() && note == "" {
		metrics.RecordTransition(next, "rejected")
		return TransitionResult{}, validationf("Cancellation requires a note")
	}
	target, err := orders.Parse(next)
	if err != nil {
		metrics.RecordTransition("unknown", "rejected")
		return TransitionResult{}, validationf("Unknown status %q", strings.TrimSpace(rawNext))
	}

	stored, err := s.Repo.OrderStatus(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TransitionResult{}, notFound("Order not found")
	}
	if err != nil {
		return TransitionResult{}, err
	}

	current := orders.Status(orders.Normalize(stored))
	if current == target {
		l.Info("order_transition_noop", "status", target.String())
		metrics.RecordTransition(target.String(), "noop")
		return TransitionResult{From: current, To: target}, nil
	}
	if _, perr := orders.Parse(stored); perr != nil || !current.CanTransitionTo(target) {
		metrics.RecordTransition(target.String(), "illegal")
		return TransitionResult{}, &IllegalTransitionError{From: orders.Normalize(stored), To: target.String()}
	}

	ev := &models.OrderStatusEvent{
		OrderID:    id,
		FromStatus: ptr(current.String()),
		ToStatus:   target.String(),
		Note:       optional(note),
		CreatedAt:  s.now().UTC(),
	}

	var changed bool
	if s.AuditStrict {
		changed, err = s.Repo.TransitionOrder(ctx, id, stored, target.String(), ev)
	} else {
		changed, err = s.Repo.UpdateOrderStatus(ctx, id, stored, target.String())
	}
	if err != nil {
		metrics.RecordTransition(target.String(), "error")
		return TransitionResult{}, err
	}
	if !changed {
		// Another writer moved the order between read and update.
		latest, err := s.Repo.OrderStatus(ctx, id)
		if err != nil {
			return TransitionResult{}, err
		}
		if orders.Status(orders.Normalize(latest)) == target {
			metrics.RecordTransition(target.String(), "noop")
			return TransitionResult{From: target, To: target}, nil
		}
		metrics.RecordTransition(target.String(), "illegal")
		return TransitionResult{}, &IllegalTransitionError{From: orders.Normalize(latest), To: target.String()}
	}

	if !s.AuditStrict {
		if err := s.Repo.AppendStatusEvent(ctx, ev); err != nil {
			l.Warn("order_audit_write_failed",
				"from", current.String(), "to", target.String(), "reason", "status saved without audit event", "error", err)
			metrics.RecordAuditWriteFailure()
		}
	}

	s.invalidate(ctx, id)
	s.publish(ctx, events.OrderEvent{
		Type:       events.TypeOrderStatusChanged,
		OrderID:    id.String(),
		FromStatus: current.String(),
		ToStatus:   target.String(),
		Note:       note,
		At:         ev.CreatedAt,
	})

	metrics.RecordTransition(target.String(), "ok")
	l.Info("order_transition_success", "from", current.String(), "to", target.String())
	return TransitionResult{From: current, To: target, Changed: true}, nil
}

func (s *OrderService) invalidate(ctx context.Context, id uuid.UUID) {
	if err := s.cache().Delete(ctx, cache.KeyOrderList, cache.KeyOrder(id.String())); err != nil {
		logging.FromContext(ctx).Warn("order_cache_invalidate_failed", "order_id", id.String(), "error", err)
	}
}

func (s *OrderService) publish(ctx context.Context, ev events.OrderEvent) {
	if err := s.publisher().PublishEvent(ctx, s.Topic, ev.OrderID, ev); err != nil {
		logging.FromContext(ctx).Error("order_event_publish_failed", "type", ev.Type, "order_id", ev.OrderID, "error", err)
	}
}

// ListOrders returns the latest orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context) ([]transport.OrderSummary, error) {
	var out []transport.OrderSummary
	if s.cached(ctx, cache.KeyOrderList, &out) {
		return out, nil
	}

	rows, err := s.Repo.ListOrders(ctx, repo.ListLimit)
	if err != nil {
		return nil, err
	}
	out = make([]transport.OrderSummary, 0, len(rows))
	for _, o := range rows {
		out = append(out, transport.OrderSummary{
			ID:           o.ID,
			Code:         o.Code,
			CustomerName: o.CustomerName,
			Total:        o.Total,
			Status:       orders.Normalize(o.Status),
			CreatedAt:    o.CreatedAt,
		})
	}
	s.store(ctx, cache.KeyOrderList, out)
	return out, nil
}

// OrderDetail bundles the order, its lines, audit trail and reachable statuses.
func (s *OrderService) OrderDetail(ctx context.Context, id uuid.UUID) (*transport.OrderDetail, error) {
	key := cache.KeyOrder(id.String())

	var out transport.OrderDetail
	if s.cached(ctx, key, &out) {
		return &out, nil
	}

	order, err := s.Repo.GetOrder(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Order not found")
	}
	if err != nil {
		return nil, err
	}
	evs, err := s.Repo.ListStatusEvents(ctx, id)
	if err != nil {
		return nil, err
	}

	status := orders.Status(orders.Normalize(order.Status))
	order.Status = status.String()
	next := make([]string, 0, 2)
	for _, n := range status.Next() {
		next = append(next, n.String())
	}

	out = transport.OrderDetail{
		Order:       *order,
		Events:      evs,
		NextAllowed: next,
		Terminal:    status.Terminal(),
	}
	s.store(ctx, key, out)
	return &out, nil
}

func (s *OrderService) GetByCode(ctx context.Context, code string) (*models.Order, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, validationf("Order code is required")
	}
	order, err := s.Repo.GetOrderByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("Order not found")
	}
	if err != nil {
		return nil, err
	}
	order.Status = orders.Normalize(order.Status)
	return order, nil
}

// HandoffURL is the wa.me link prefilled with the order summary.
func (s *OrderService) HandoffURL(ctx context.Context, o *models.Order) string {
	lines := make([]whatsapp.Line, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, whatsapp.Line{Name: it.Name, Price: it.Price, Qty: it.Qty})
	}
	msg := whatsapp.BuildOrderMessage(whatsapp.OrderMessage{
		Code:         o.Code,
		Items:        lines,
		Total:        o.Total,
		CustomerName: o.CustomerName,
		Phone:        o.Phone,
		Address:      o.Address,
		Notes:        deref(o.Notes),
	})

	number := whatsapp.DefaultNumber
	if s.Settings != nil {
		number, _ = s.Settings.WANumber(ctx)
	}
	return whatsapp.BuildURL(number, msg)
}

func (s *OrderService) cached(ctx context.Context, key string, dst any) bool {
	b, ok, err := s.cache().Get(ctx, key)
	if err != nil {
		logging.FromContext(ctx).Warn("order_cache_read_failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false
	}
	return true
}

func (s *OrderService) store(ctx context.Context, key string, v any) {
	if s.CacheTTL <= 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache().Set(ctx, key, b, s.CacheTTL); err != nil {
		logging.FromContext(ctx).Warn("order_cache_write_failed", "key", key, "error", err)
	}
}

func ptr(s string) *string { return &s }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
