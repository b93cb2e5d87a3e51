package cart

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

const (
	CookieName = "temurun_cart_v1"
	cookieTTL  = 30 * 24 * 60 * 60

	MaxLines = 50
	MaxQty   = 99
)

var ErrValidation = errors.New("validation")

type Line struct {
	ProductID uuid.UUID `json:"product_id"`
	Qty       int       `json:"qty"`
}

// Cart is a guest cart; prices are never stored and are resolved from the catalog on read.
type Cart struct {
	Lines []Line `json:"lines"`
}

func clampQty(q int) int {
	if q < 1 {
		return 1
	}
	if q > MaxQty {
		return MaxQty
	}
	return q
}

func (c *Cart) index(id uuid.UUID) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) Add(id uuid.UUID, qty int) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: product_id required", ErrValidation)
	}
	if qty < 1 {
		qty = 1
	}
	if i := c.index(id); i >= 0 {
		c.Lines[i].Qty = clampQty(c.Lines[i].Qty + qty)
		return nil
	}
	if len(c.Lines) >= MaxLines {
		return fmt.Errorf("%w: cart is full", ErrValidation)
	}
	c.Lines = append(c.Lines, Line{ProductID: id, Qty: clampQty(qty)})
	return nil
}

// SetQty clamps to at least one; unknown ids are ignored.
func (c *Cart) SetQty(id uuid.UUID, qty int) {
	if i := c.index(id); i >= 0 {
		c.Lines[i].Qty = clampQty(qty)
	}
}

func (c *Cart) Remove(id uuid.UUID) {
	out := c.Lines[:0]
	for _, l := range c.Lines {
		if l.ProductID != id {
			out = append(out, l)
		}
	}
	c.Lines = out
}

func (c *Cart) Clear() { c.Lines = nil }

func (c Cart) Count() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Qty
	}
	return n
}

func Encode(c Cart) (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode drops malformed lines instead of failing the whole cart.
func Decode(s string) (Cart, error) {
	var c Cart
	if s == "" {
		return c, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cart{}, err
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cart{}, err
	}

	clean := Cart{}
	for _, l := range c.Lines {
		if l.ProductID == uuid.Nil || len(clean.Lines) >= MaxLines {
			continue
		}
		_ = clean.Add(l.ProductID, l.Qty)
	}
	return clean, nil
}

func FromRequest(r *http.Request) Cart {
	ck, err := r.Cookie(CookieName)
	if err != nil {
		return Cart{}
	}
	c, err := Decode(ck.Value)
	if err != nil {
		return Cart{}
	}
	return c
}

func Cookie(c Cart, secure bool) (*http.Cookie, error) {
	v, err := Encode(c)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    v,
		Path:     "/",
		MaxAge:   cookieTTL,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

func ClearCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
