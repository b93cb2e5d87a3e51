package analytics

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

type SortBy string

const (
	SortByRevenue  SortBy = "revenue"
	SortByQuantity SortBy = "qty"
)

// ParseSortBy defaults to revenue.
func ParseSortBy(s string) SortBy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "qty", "quantity":
		return SortByQuantity
	default:
		return SortByRevenue
	}
}

type OrderSnapshot struct {
	ID     uuid.UUID
	Total  int64
	Status string
}

type LineSnapshot struct {
	OrderID   uuid.UUID
	Name      string
	UnitPrice int64
	Qty       int64
}

type ProductStat struct {
	Name    string `json:"name"`
	Qty     int64  `json:"qty"`
	Revenue int64  `json:"revenue"`
}

type Result struct {
	OrderCount        int            `json:"order_count"`
	Revenue           int64          `json:"revenue"`
	AverageOrderValue float64        `json:"average_order_value"`
	StatusBreakdown   map[string]int `json:"status_breakdown"`
	TopProducts       []ProductStat  `json:"top_products"`
}

// Aggregate is pure; equal sort keys keep first-seen order.
func Aggregate(orders []OrderSnapshot, lines []LineSnapshot, by SortBy) Result {
	res := Result{
		OrderCount:      len(orders),
		StatusBreakdown: map[string]int{},
		TopProducts:     []ProductStat{},
	}

	for _, o := range orders {
		res.Revenue += o.Total
		res.StatusBreakdown[strings.ToLower(o.Status)]++
	}
	if res.OrderCount > 0 {
		res.AverageOrderValue = float64(res.Revenue) / float64(res.OrderCount)
	}

	index := map[string]int{}
	for _, l := range lines {
		i, ok := index[l.Name]
		if !ok {
			i = len(res.TopProducts)
			index[l.Name] = i
			res.TopProducts = append(res.TopProducts, ProductStat{Name: l.Name})
		}
		res.TopProducts[i].Qty += l.Qty
		res.TopProducts[i].Revenue += l.UnitPrice * l.Qty
	}

	SortProducts(res.TopProducts, by)
	return res
}

func SortProducts(stats []ProductStat, by SortBy) {
	sort.SliceStable(stats, func(i, j int) bool {
		if by == SortByQuantity {
			return stats[i].Qty > stats[j].Qty
		}
		return stats[i].Revenue > stats[j].Revenue
	})
}
