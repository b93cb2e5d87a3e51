package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/Skotchmaster/temurun/internal/analytics"
	"github.com/Skotchmaster/temurun/internal/repo"
)

type AnalyticsService struct {
	Repo *repo.GormRepo
}

// Compute loads orders created in [rng.From, rng.To) with their lines and
// aggregates them.
func (s *AnalyticsService) Compute(ctx context.Context, rng analytics.Range, by analytics.SortBy) (analytics.Result, error) {
	rows, err := s.Repo.OrdersInRange(ctx, rng.From, rng.To)
	if err != nil {
		return analytics.Result{}, err
	}

	snaps := make([]analytics.OrderSnapshot, 0, len(rows))
	ids := make([]uuid.UUID, 0, len(rows))
	for _, o := range rows {
		snaps = append(snaps, analytics.OrderSnapshot{ID: o.ID, Total: o.Total, Status: o.Status})
		ids = append(ids, o.ID)
	}

	items, err := s.Repo.ItemsForOrders(ctx, ids)
	if err != nil {
		return analytics.Result{}, err
	}
	lines := make([]analytics.LineSnapshot, 0, len(items))
	for _, it := range items {
		lines = append(lines, analytics.LineSnapshot{
			OrderID:   it.OrderID,
			Name:      it.Name,
			UnitPrice: it.Price,
			Qty:       int64(it.Qty),
		})
	}

	return analytics.Aggregate(snaps, lines, by), nil
}
