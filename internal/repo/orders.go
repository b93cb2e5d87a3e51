package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/temurun/internal/models"
)

func (r *GormRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.DB.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *GormRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	var n int64
	if err := r.DB.WithContext(ctx).Model(&models.Order{}).Where("code = ?", code).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) GetOrderByCode(ctx context.Context, code string) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").Where("code = ?", code).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	if err := r.DB.WithContext(ctx).
		Model(&models.Order{}).
		Order("created_at DESC").
		Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// OrderStatus returns the stored status string as-is.
func (r *GormRepo) OrderStatus(ctx context.Context, id uuid.UUID) (string, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Select("id", "status").Where("id = ?", id).First(&order).Error; err != nil {
		return "", err
	}
	return order.Status, nil
}

// UpdateOrderStatus moves the order from one status to another only if it
// still holds `from`. It reports whether a row changed.
func (r *GormRepo) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	return updateStatus(r.DB.WithContext(ctx), id, from, to)
}

func updateStatus(db *gorm.DB, id uuid.UUID, from, to string) (bool, error) {
	res := db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) AppendStatusEvent(ctx context.Context, ev *models.OrderStatusEvent) error {
	return r.DB.WithContext(ctx).Create(ev).Error
}

var errNoRowChanged = errors.New("no row changed")

// TransitionOrder applies the status change and its audit event atomically.
func (r *GormRepo) TransitionOrder(ctx context.Context, id uuid.UUID, from, to string, ev *models.OrderStatusEvent) (bool, error) {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		changed, err := updateStatus(tx, id, from, to)
		if err != nil {
			return err
		}
		if !changed {
			return errNoRowChanged
		}
		return tx.Create(ev).Error
	})
	if errors.Is(err, errNoRowChanged) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *GormRepo) ListStatusEvents(ctx context.Context, orderID uuid.UUID) ([]models.OrderStatusEvent, error) {
	var events []models.OrderStatusEvent
	if err := r.DB.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// OrdersInRange selects orders created in [from, to).
func (r *GormRepo) OrdersInRange(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	var orders []models.Order
	if err := r.DB.WithContext(ctx).
		Model(&models.Order{}).
		Select("id", "total", "status", "created_at").
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Order("created_at ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

const itemsChunk = 500

func (r *GormRepo) ItemsForOrders(ctx context.Context, ids []uuid.UUID) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0)
	for start := 0; start < len(ids); start += itemsChunk {
		end := min(start+itemsChunk, len(ids))

		var chunk []models.OrderItem
		if err := r.DB.WithContext(ctx).
			Where("order_id IN ?", ids[start:end]).
			Find(&chunk).Error; err != nil {
			return nil, err
		}
		items = append(items, chunk...)
	}
	return items, nil
}
