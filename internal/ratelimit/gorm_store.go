package ratelimit

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/temurun/internal/models"
)

type GormStore struct {
	DB *gorm.DB
}

func (s *GormStore) window(ctx context.Context, action, key string, since time.Time) *gorm.DB {
	return s.DB.WithContext(ctx).
		Model(&models.RateLimitEvent{}).
		Where("action = ? AND ip = ? AND created_at >= ?", action, key, since.UTC())
}

func (s *GormStore) Count(ctx context.Context, action, key string, since time.Time) (int64, error) {
	var n int64
	if err := s.window(ctx, action, key, since).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (s *GormStore) Oldest(ctx context.Context, action, key string, since time.Time) (time.Time, error) {
	var ev models.RateLimitEvent
	err := s.window(ctx, action, key, since).Order("created_at ASC").Take(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return ev.CreatedAt, nil
}

func (s *GormStore) Record(ctx context.Context, action, key string, at time.Time, _ time.Duration) error {
	return s.DB.WithContext(ctx).Create(&models.RateLimitEvent{
		Action:    action,
		IP:        key,
		CreatedAt: at.UTC(),
	}).Error
}
