package transport

import (
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/temurun/internal/analytics"
	"github.com/Skotchmaster/temurun/internal/models"
)

type SignInRequest struct {
	Passcode string `form:"passcode"`
	Next     string `form:"next"`
}

type TransitionRequest struct {
	OrderID    string `form:"order_id"`
	NextStatus string `form:"next_status"`
	Note       string `form:"note"`
}

type CheckoutRequest struct {
	CustomerName string `json:"customer_name" form:"customer_name"`
	Phone        string `json:"phone"         form:"phone"`
	Address      string `json:"address"       form:"address"`
	Notes        string `json:"notes"         form:"notes"`
}

type CheckoutResponse struct {
	OK    bool   `json:"ok"`
	Code  string `json:"code"`
	WAURL string `json:"wa_url"`
}

type CartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" form:"product_id"`
	Qty       int       `json:"qty"        form:"qty"`
}

type CartLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Qty       int       `json:"qty"`
	LineTotal int64     `json:"line_total"`
	ImageURL  string    `json:"image_url,omitempty"`
}

type CartView struct {
	Lines    []CartLine `json:"lines"`
	Count    int        `json:"count"`
	Subtotal int64      `json:"subtotal"`
}

type OrderSummary struct {
	ID           uuid.UUID `json:"id"`
	Code         string    `json:"code"`
	CustomerName string    `json:"customer_name"`
	Total        int64     `json:"total"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type OrderDetail struct {
	Order       models.Order              `json:"order"`
	Events      []models.OrderStatusEvent `json:"events"`
	NextAllowed []string                  `json:"next_allowed"`
	Terminal    bool                      `json:"terminal"`
}

type PublicOrder struct {
	Code         string             `json:"code"`
	Status       string             `json:"status"`
	Subtotal     int64              `json:"subtotal"`
	Total        int64              `json:"total"`
	CustomerName string             `json:"customer_name"`
	Phone        string             `json:"phone"`
	Address      string             `json:"address"`
	Notes        *string            `json:"notes"`
	Items        []models.OrderItem `json:"items"`
	WAURL        string             `json:"wa_url"`
}

type AnalyticsResponse struct {
	Range  analytics.Range  `json:"range"`
	Sort   analytics.SortBy `json:"sort"`
	Result analytics.Result `json:"result"`
}

type SettingsResponse struct {
	WANumber string `json:"wa_number"`
	Source   string `json:"source"`
	Valid    bool   `json:"valid"`
}
