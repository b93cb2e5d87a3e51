package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/temurun/internal/models"
	"github.com/Skotchmaster/temurun/internal/ratelimit"
	"github.com/Skotchmaster/temurun/internal/repo"
	"github.com/Skotchmaster/temurun/internal/service"
	"github.com/Skotchmaster/temurun/internal/session"
	"github.com/Skotchmaster/temurun/internal/storage"
	"github.com/Skotchmaster/temurun/pkg/middleware/csrf"
)

const (
	testPasscode = "letmein"
	testOrigin   = "http://example.com"

	testUploadLimit = "64K"
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

type testEnv struct {
	E     *echo.Echo
	DB    *gorm.DB
	Auth  *session.Authenticator
	Admin *AdminHTTP
	Shop  *ShopHTTP
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := InitTestDB(t)
	r := &repo.GormRepo{DB: db}

	auth := session.NewAuthenticator(session.Options{
		Secret:   []byte("test-session-secret"),
		Passcode: testPasscode,
	})
	limiter := &ratelimit.Limiter{Store: &ratelimit.GormStore{DB: db}}

	settings := &service.SettingsService{Repo: r}
	orderSvc := &service.OrderService{Repo: r, Settings: settings, Topic: "order_events"}
	catalog := &service.CatalogService{
		Repo:  r,
		Blobs: &storage.FSStore{Root: t.TempDir(), BaseURL: "/images"},
	}

	admin := &AdminHTTP{
		Auth:         auth,
		CookieName:   session.DefaultCookieName,
		Limiter:      limiter,
		SignInLimit:  5,
		SignInWindow: 10 * time.Minute,
		Orders:       orderSvc,
		Catalog:      catalog,
		Settings:     settings,
		Analytics:    &service.AnalyticsService{Repo: r},
	}
	shop := &ShopHTTP{
		Catalog:        catalog,
		Orders:         orderSvc,
		Limiter:        limiter,
		CheckoutLimit:  2,
		CheckoutWindow: 10 * time.Minute,
	}

	e := echo.New()
	Register(e, &Deps{
		DB:    db,
		Shop:  shop,
		Admin: admin,
		Guard: &session.Guard{Auth: auth, CookieName: session.DefaultCookieName},

		UploadLimit: testUploadLimit,
	})

	return &testEnv{E: e, DB: db, Auth: auth, Admin: admin, Shop: shop}
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func formRequest(method, target string, form url.Values, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	return req
}

func jsonRequest(method, target, body string, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	return req
}

func (env *testEnv) sessionCookie(t *testing.T) *http.Cookie {
	t.Helper()
	token, _, err := env.Auth.Issue()
	require.NoError(t, err)
	return &http.Cookie{Name: session.DefaultCookieName, Value: token}
}

// adminPost sends a same-origin form post carrying a valid CSRF token.
func (env *testEnv) adminPost(t *testing.T, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	const token = "csrf-test-token"
	req := formRequest(http.MethodPost, target, form,
		env.sessionCookie(t),
		&http.Cookie{Name: csrf.DefaultConfig().CookieName, Value: token},
	)
	req.Header.Set(csrf.DefaultConfig().HeaderName, token)
	req.Header.Set("Origin", testOrigin)
	return env.do(req)
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func (env *testEnv) seedProduct(t *testing.T, slug, name string, price int64) models.Product {
	t.Helper()
	p := models.Product{Slug: slug, Name: name, Price: price}
	require.NoError(t, env.DB.Create(&p).Error)
	return p
}

func (env *testEnv) seedOrder(t *testing.T, status string) models.Order {
	t.Helper()
	o := models.Order{
		Code:         service.NewOrderCode(),
		CustomerName: "Sari",
		Phone:        "+62811222333",
		Address:      "Jl. Melati 1",
		Subtotal:     45000,
		Total:        45000,
		Status:       status,
	}
	require.NoError(t, env.DB.Create(&o).Error)
	return o
}

func (env *testEnv) orderStatus(t *testing.T, o models.Order) string {
	t.Helper()
	s, err := (&repo.GormRepo{DB: env.DB}).OrderStatus(context.Background(), o.ID)
	require.NoError(t, err)
	return s
}
