package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Product struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"      json:"id"`
	Slug        string         `gorm:"uniqueIndex;not null"      json:"slug"`
	Name        string         `gorm:"not null"                  json:"name"`
	Description string         `gorm:"not null;default:''"       json:"description"`
	Price       int64          `gorm:"not null;check:price>=0"   json:"price"`
	IsNew       bool           `gorm:"not null;default:false"    json:"is_new"`
	CreatedAt   time.Time      `                                 json:"created_at"`
	UpdatedAt   time.Time      `                                 json:"updated_at"`
	Images      []ProductImage `gorm:"foreignKey:ProductID"      json:"images,omitempty"`
}

type ProductImage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"           json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;index;not null"       json:"product_id"`
	Key       string    `gorm:"not null"                       json:"key"`
	URL       string    `gorm:"-"                              json:"url"`
	Sort      int       `gorm:"not null;default:0"             json:"sort"`
	CreatedAt time.Time `                                      json:"created_at"`
}

type Order struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey"      json:"id"`
	Code         string      `gorm:"uniqueIndex;not null"      json:"code"`
	CustomerName string      `gorm:"not null"                  json:"customer_name"`
	Phone        string      `gorm:"not null"                  json:"phone"`
	Address      string      `gorm:"not null"                  json:"address"`
	Notes        *string     `                                 json:"notes,omitempty"`
	Subtotal     int64       `gorm:"not null;check:subtotal>=0" json:"subtotal"`
	Total        int64       `gorm:"not null"                  json:"total"`
	Status       string      `gorm:"index;not null"            json:"status"`
	CreatedAt    time.Time   `gorm:"index"                     json:"created_at"`
	Items        []OrderItem `gorm:"foreignKey:OrderID"        json:"items,omitempty"`
}

// OrderItem snapshots name, slug and price at checkout time.
type OrderItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"          json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;index;not null"      json:"order_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null"            json:"product_id"`
	Name      string    `gorm:"not null"                      json:"name"`
	Slug      string    `gorm:"not null"                      json:"slug"`
	Price     int64     `gorm:"not null"                      json:"price"`
	Qty       int       `gorm:"not null;check:qty>0"          json:"qty"`
}

// OrderStatusEvent is append-only.
type OrderStatusEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"         json:"id"`
	OrderID    uuid.UUID `gorm:"type:uuid;index;not null"     json:"order_id"`
	FromStatus *string   `                                    json:"from_status"`
	ToStatus   string    `gorm:"not null"                     json:"to_status"`
	Note       *string   `                                    json:"note"`
	CreatedAt  time.Time `gorm:"index"                        json:"created_at"`
}

type RateLimitEvent struct {
	ID        uint      `gorm:"primaryKey"`
	Action    string    `gorm:"index:idx_rate_limit_key,priority:1;not null"`
	IP        string    `gorm:"index:idx_rate_limit_key,priority:2;not null"`
	CreatedAt time.Time `gorm:"index:idx_rate_limit_key,priority:3;not null"`
}

type Setting struct {
	Key       string    `gorm:"primaryKey"                    json:"key"`
	Value     string    `gorm:"not null"                      json:"value"`
	UpdatedAt time.Time `                                     json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (i *ProductImage) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (e *OrderStatusEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// All lists every table for AutoMigrate.
func All() []any {
	return []any{
		&Product{},
		&ProductImage{},
		&Order{},
		&OrderItem{},
		&OrderStatusEvent{},
		&RateLimitEvent{},
		&Setting{},
	}
}
