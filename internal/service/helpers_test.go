package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/temurun/internal/events"
	"github.com/Skotchmaster/temurun/internal/models"
	"github.com/Skotchmaster/temurun/internal/orders"
	"github.com/Skotchmaster/temurun/internal/repo"
)

func InitTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

// stepClock advances one second per reading so audit events sort by time.
func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

type recordingCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{data: map[string][]byte{}}
}

func (c *recordingCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	return b, ok, nil
}

func (c *recordingCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *recordingCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (p *recordingPublisher) PublishEvent(_ context.Context, _, _ string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := event.(events.OrderEvent); ok {
		p.events = append(p.events, ev)
	}
	return nil
}

type testEnv struct {
	DB     *gorm.DB
	Repo   *repo.GormRepo
	Orders *OrderService
	Cache  *recordingCache
	Events *recordingPublisher

	seq int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := InitTestDB(t)
	r := &repo.GormRepo{DB: db}
	c := newRecordingCache()
	p := &recordingPublisher{}

	return &testEnv{
		DB:     db,
		Repo:   r,
		Cache:  c,
		Events: p,
		Orders: &OrderService{
			Repo:     r,
			Settings: &SettingsService{Repo: r},
			Cache:    c,
			CacheTTL: time.Minute,
			Events:   p,
			Topic:    "order_events",
			Now:      stepClock(),
		},
	}
}

func (env *testEnv) seedProduct(t *testing.T, slug, name string, price int64) models.Product {
	t.Helper()
	p := models.Product{Slug: slug, Name: name, Price: price}
	require.NoError(t, env.DB.Create(&p).Error)
	return p
}

func (env *testEnv) seedOrder(t *testing.T, status string) uuid.UUID {
	t.Helper()
	env.seq++
	o := models.Order{
		Code:         NewOrderCode(),
		CustomerName: "Sari",
		Phone:        "+62811222333",
		Address:      "Jl. Melati 1",
		Subtotal:     45000,
		Total:        45000,
		Status:       status,
		CreatedAt:    time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(env.seq) * time.Minute),
	}
	require.NoError(t, env.DB.Create(&o).Error)
	return o.ID
}

func (env *testEnv) status(t *testing.T, id uuid.UUID) string {
	t.Helper()
	s, err := env.Repo.OrderStatus(context.Background(), id)
	require.NoError(t, err)
	return s
}

func (env *testEnv) eventCount(t *testing.T, id uuid.UUID) int {
	t.Helper()
	evs, err := env.Repo.ListStatusEvents(context.Background(), id)
	require.NoError(t, err)
	return len(evs)
}

var pending = orders.StatusPending.String()
