package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/temurun/internal/cart"
	"github.com/Skotchmaster/temurun/internal/models"
	"github.com/Skotchmaster/temurun/internal/transport"
)

const checkoutBody = `{"customer_name":"Sari","phone":"+62 811 222 333","address":"Jl. Melati 1"}`

func (env *testEnv) addToCart(t *testing.T, p models.Product, qty int, cookies ...*http.Cookie) *http.Cookie {
	t.Helper()
	body := fmt.Sprintf(`{"product_id":%q,"qty":%d}`, p.ID.String(), qty)
	rec := env.do(jsonRequest(http.MethodPost, "/cart/items", body, cookies...))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ck := findCookie(rec, cart.CookieName)
	require.NotNil(t, ck)
	return ck
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusOK, env.do(httptest.NewRequest(http.MethodGet, "/health/live", nil)).Code)
	assert.Equal(t, http.StatusOK, env.do(httptest.NewRequest(http.MethodGet, "/health/ready", nil)).Code)
}

func TestCatalog_ListAndDetail(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, "teh-tarik", "Teh Tarik", 15000)
	env.seedProduct(t, "kopi-susu", "Kopi Susu", 18000)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/products", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Data []models.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 2)
	assert.Equal(t, "Kopi Susu", list.Data[0].Name)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/products/teh-tarik", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var p models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.EqualValues(t, 15000, p.Price)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/products/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearch_FallsBackToDatabase(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, "teh-tarik", "Teh Tarik", 15000)
	env.seedProduct(t, "kopi-susu", "Kopi Susu", 18000)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/search?q=kopi", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []models.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "kopi-susu", body.Data[0].Slug)
}

func TestCart_AddUpdateRemove(t *testing.T) {
	env := newTestEnv(t)
	kopi := env.seedProduct(t, "kopi-susu", "Kopi Susu", 18000)
	teh := env.seedProduct(t, "teh-tarik", "Teh Tarik", 15000)

	ck := env.addToCart(t, kopi, 2)
	ck = env.addToCart(t, teh, 1, ck)
	ck = env.addToCart(t, kopi, 1, ck)

	rec := env.do(jsonRequest(http.MethodPatch, "/cart/items/"+teh.ID.String(), `{"qty":0}`, ck))
	require.Equal(t, http.StatusOK, rec.Code)
	ck = findCookie(rec, cart.CookieName)

	var v transport.CartView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	require.Len(t, v.Lines, 2)
	assert.Equal(t, 3, v.Lines[0].Qty)
	assert.Equal(t, 1, v.Lines[1].Qty, "quantity is clamped to at least one")
	assert.EqualValues(t, 3*18000+15000, v.Subtotal)

	rec = env.do(jsonRequest(http.MethodDelete, "/cart/items/"+kopi.ID.String(), "", ck))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	require.Len(t, v.Lines, 1)
	assert.Equal(t, teh.ID, v.Lines[0].ProductID)
	assert.Equal(t, 1, v.Count)
}

func TestCart_RepricesFromCatalog(t *testing.T) {
	env := newTestEnv(t)
	kopi := env.seedProduct(t, "kopi-susu", "Kopi Susu", 18000)
	ck := env.addToCart(t, kopi, 2)

	require.NoError(t, env.DB.Model(&models.Product{}).Where("id = ?", kopi.ID).Update("price", 20000).Error)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(ck)
	rec := env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var v transport.CartView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.EqualValues(t, 40000, v.Subtotal)
}

func TestCart_UnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(jsonRequest(http.MethodPost, "/cart/items", `{"product_id":"7b0c6f2e-2d7e-4b8e-9a51-0f1f3c7a9d11","qty":1}`))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckout_CreatesOrder(t *testing.T) {
	env := newTestEnv(t)
	kopi := env.seedProduct(t, "kopi-susu", "Kopi Susu", 18000)
	ck := env.addToCart(t, kopi, 2)

	rec := env.do(jsonRequest(http.MethodPost, "/checkout", checkoutBody, ck))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp transport.CheckoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Regexp(t, regexp.MustCompile(`^TMR-[0-9A-F]{6}$`), resp.Code)
	assert.Contains(t, resp.WAURL, "https://wa.me/")

	cleared := findCookie(rec, cart.CookieName)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/order/"+resp.Code, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var pub transport.PublicOrder
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pub))
	assert.Equal(t, "pending", pub.Status)
	assert.EqualValues(t, 36000, pub.Total)
	require.Len(t, pub.Items, 1)
	assert.Equal(t, "Kopi Susu", pub.Items[0].Name)
}

func TestCheckout_EmptyCart(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(jsonRequest(http.MethodPost, "/checkout", checkoutBody))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckout_RateLimited(t *testing.T) {
	env := newTestEnv(t)

	submit := func() *httptest.ResponseRecorder {
		req := jsonRequest(http.MethodPost, "/checkout", checkoutBody)
		req.Header.Set("X-Real-IP", "203.0.113.7")
		return env.do(req)
	}

	for i := 0; i < env.Shop.CheckoutLimit; i++ {
		assert.Equal(t, http.StatusBadRequest, submit().Code)
	}

	rec := submit()
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "Too many attempts.")
}

func TestOrderByCode_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/order/TMR-000000", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
