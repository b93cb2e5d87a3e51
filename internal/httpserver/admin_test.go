package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/temurun/internal/session"
)

func TestRetryMessage(t *testing.T) {
	assert.Equal(t, "Too many attempts. Please try again in ~10 minute(s).", RetryMessage(600))
	assert.Equal(t, "Too many attempts. Please try again in ~2 minute(s).", RetryMessage(61))
	assert.Equal(t, "Too many attempts. Please try again in ~1 minute(s).", RetryMessage(1))
}

func TestSignIn_Success(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(formRequest(http.MethodPost, "/admin/sign-in", url.Values{
		"passcode": {testPasscode},
		"next":     {"/admin/orders"},
	}))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/orders", rec.Header().Get("Location"))

	ck := findCookie(rec, session.DefaultCookieName)
	require.NotNil(t, ck)
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, "/", ck.Path)
	assert.Equal(t, http.SameSiteLaxMode, ck.SameSite)
	assert.True(t, env.Auth.Verify(ck.Value))
}

func TestSignIn_OffsiteNextLandsOnAdmin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(formRequest(http.MethodPost, "/admin/sign-in", url.Values{
		"passcode": {testPasscode},
		"next":     {"https://evil.example/admin"},
	}))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))
}

func TestSignIn_BadPasscode(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(formRequest(http.MethodPost, "/admin/sign-in", url.Values{"passcode": {"nope"}}))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/admin/sign-in", loc.Path)
	assert.Equal(t, "1", loc.Query().Get("error"))
	assert.Equal(t, "Invalid passcode", loc.Query().Get("err"))
	assert.Nil(t, findCookie(rec, session.DefaultCookieName))
}

func TestSignIn_RateLimitedAfterFiveAttempts(t *testing.T) {
	env := newTestEnv(t)

	attempt := func(pass string) *httptest.ResponseRecorder {
		req := formRequest(http.MethodPost, "/admin/sign-in", url.Values{"passcode": {pass}})
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		return env.do(req)
	}

	for i := 0; i < 5; i++ {
		rec := attempt("wrong")
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Contains(t, rec.Header().Get("Location"), "Invalid+passcode")
	}

	rec := attempt(testPasscode)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Nil(t, findCookie(rec, session.DefaultCookieName))

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.NotEmpty(t, loc.Query().Get("retry"))
	assert.True(t, strings.HasPrefix(loc.Query().Get("msg"), "Too many attempts."))

	other := formRequest(http.MethodPost, "/admin/sign-in", url.Values{"passcode": {testPasscode}})
	other.Header.Set("X-Forwarded-For", "198.51.100.4")
	assert.Equal(t, "/admin", env.do(other).Header().Get("Location"))
}

func TestSignInPage_ClearsCookie(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/sign-in?next=/admin/orders&err=Invalid+passcode", nil)
	req.AddCookie(env.sessionCookie(t))
	rec := env.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	ck := findCookie(rec, session.DefaultCookieName)
	require.NotNil(t, ck)
	assert.Equal(t, -1, ck.MaxAge)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/admin/orders", body["next"])
	assert.Equal(t, "Invalid passcode", body["msg"])
	assert.Equal(t, true, body["error"])
}

func TestSignOut_PostClearsCookie(t *testing.T) {
	env := newTestEnv(t)

	rec := env.adminPost(t, "/admin/sign-out", url.Values{})

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, session.SignInPath, rec.Header().Get("Location"))
	ck := findCookie(rec, session.DefaultCookieName)
	require.NotNil(t, ck)
	assert.Equal(t, -1, ck.MaxAge)
	assert.Equal(t, session.CookiePath, ck.Path)
}

func TestSignOut_GetDoesNotClearCookie(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/sign-out", nil)
	req.AddCookie(env.sessionCookie(t))
	rec := env.do(req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Nil(t, findCookie(rec, session.DefaultCookieName))
}

func TestSignOut_RequiresCSRF(t *testing.T) {
	env := newTestEnv(t)

	req := formRequest(http.MethodPost, "/admin/sign-out", url.Values{}, env.sessionCookie(t))
	req.Header.Set("Origin", testOrigin)
	rec := env.do(req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, findCookie(rec, session.DefaultCookieName))
}

func TestGuard_RedirectsWithoutSession(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/admin", "/admin/orders", "/admin/does-not-exist"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, session.SignInURL(path), rec.Header().Get("Location"), path)
	}
}

func TestGuard_RejectsTamperedSession(t *testing.T) {
	env := newTestEnv(t)

	ck := env.sessionCookie(t)
	ck.Value = ck.Value[:len(ck.Value)-2] + "xx"

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req.AddCookie(ck)
	assert.Equal(t, http.StatusFound, env.do(req).Code)
}

func TestGuard_AllowsValidSession(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrder(t, "pending")

	req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
	req.AddCookie(env.sessionCookie(t))
	rec := env.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var body struct {
		Data      []map[string]any `json:"data"`
		CSRFToken string           `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)
	assert.NotEmpty(t, body.CSRFToken)
}

func TestTransitionOrder_Redirects(t *testing.T) {
	env := newTestEnv(t)
	o := env.seedOrder(t, "pending")
	back := "/admin/orders/" + o.ID.String()

	rec := env.adminPost(t, "/admin/orders/transition", url.Values{
		"order_id":    {o.ID.String()},
		"next_status": {"confirmed"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, back+"?ok=1", rec.Header().Get("Location"))
	assert.Equal(t, "confirmed", env.orderStatus(t, o))

	rec = env.adminPost(t, "/admin/orders/transition", url.Values{
		"order_id":    {o.ID.String()},
		"next_status": {"delivered"},
	})
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, back, loc.Path)
	assert.Equal(t, "Illegal transition from confirmed to delivered", loc.Query().Get("err"))
	assert.Equal(t, "confirmed", env.orderStatus(t, o))

	rec = env.adminPost(t, "/admin/orders/transition", url.Values{
		"order_id":    {o.ID.String()},
		"next_status": {"canceled"},
	})
	loc, err = url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "Cancellation requires a note", loc.Query().Get("err"))
}

func TestTransitionOrder_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.adminPost(t, "/admin/orders/transition", url.Values{})
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/admin/orders", loc.Path)
	assert.Equal(t, "Missing order_id or next_status", loc.Query().Get("err"))
}

func TestTransitionOrder_RequiresCSRF(t *testing.T) {
	env := newTestEnv(t)
	o := env.seedOrder(t, "pending")

	req := formRequest(http.MethodPost, "/admin/orders/transition", url.Values{
		"order_id":    {o.ID.String()},
		"next_status": {"confirmed"},
	}, env.sessionCookie(t))
	req.Header.Set("Origin", testOrigin)

	assert.Equal(t, http.StatusForbidden, env.do(req).Code)
	assert.Equal(t, "pending", env.orderStatus(t, o))
}

func TestAdminProducts_PriceAndBadge(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "kopi-susu", "Kopi Susu", 18000)

	rec := env.adminPost(t, "/admin/products/"+p.ID.String()+"/price", url.Values{"price": {"Rp 21.500"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/products?ok=1", rec.Header().Get("Location"))

	rec = env.adminPost(t, "/admin/products/"+p.ID.String()+"/new", url.Values{"next": {"true"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	got, err := env.Admin.Catalog.GetProduct(t.Context(), p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 21500, got.Price)
	assert.True(t, got.IsNew)
}

func TestUploadImages_RejectsOversizedBody(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, "kopi-susu", "Kopi Susu", 18000)

	rec := env.adminPost(t, "/admin/products/"+p.ID.String()+"/images", url.Values{
		"files": {strings.Repeat("x", 128<<10)},
	})

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	images, err := env.Admin.Catalog.ListImages(t.Context(), p.ID)
	require.NoError(t, err)
	assert.Empty(t, images)
}

func TestSettings_SaveAndRead(t *testing.T) {
	env := newTestEnv(t)

	rec := env.adminPost(t, "/admin/settings", url.Values{"wa_number": {"+62 812-3456-7890"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/settings?ok=1", rec.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/admin/settings", nil)
	req.AddCookie(env.sessionCookie(t))
	rec = env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			WANumber string `json:"wa_number"`
			Source   string `json:"source"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "settings", body.Data.Source)
	assert.Equal(t, "+62 812-3456-7890", body.Data.WANumber)
}

func TestAnalytics_EmptyRange(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/analytics?from=2025-01&to=2025-02&sort=qty", nil)
	req.AddCookie(env.sessionCookie(t))
	rec := env.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "qty", body["sort"])
}
