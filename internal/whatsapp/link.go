package whatsapp

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const DefaultNumber = "+6281111111"

var e164Like = regexp.MustCompile(`^[1-9]\d{7,14}$`)

// NormalizePhone keeps digits only.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func IsLikelyValidNumber(raw string) bool {
	return e164Like.MatchString(NormalizePhone(raw))
}

type Line struct {
	Name  string
	Price int64
	Qty   int
}

type OrderMessage struct {
	Code         string
	Items        []Line
	Total        int64
	CustomerName string
	Phone        string
	Address      string
	Notes        string
}

func BuildOrderMessage(o OrderMessage) string {
	parts := []string{"Order " + o.Code}
	for _, it := range o.Items {
		parts = append(parts, fmt.Sprintf("%d× %s — %s", it.Qty, it.Name, FormatIDR(it.Price*int64(it.Qty))))
	}
	parts = append(parts,
		"Total: "+FormatIDR(o.Total),
		"Name: "+o.CustomerName,
		"Phone: "+o.Phone,
		"Address: "+o.Address,
	)
	if n := strings.TrimSpace(o.Notes); n != "" {
		parts = append(parts, "Notes: "+n)
	}
	return strings.Join(parts, "\n")
}

// BuildURL drops the phone segment when the number is not E.164-like; the text is always prefilled.
func BuildURL(rawNumber, message string) string {
	encoded := encodeComponent(message)
	if n := NormalizePhone(rawNumber); e164Like.MatchString(n) {
		return "https://wa.me/" + n + "?text=" + encoded
	}
	return "https://wa.me?text=" + encoded
}

func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// FormatIDR renders whole rupiah as "Rp 45.000".
func FormatIDR(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + "Rp " + b.String()
}
